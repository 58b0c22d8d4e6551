package main

import (
	"github.com/spf13/cobra"

	"streamteam-launcher/internal/launch"
)

func newRelaunchCmd(opts *options) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "relaunch",
		Short: "Start the simulators of a previous launch again",
		Long: "relaunch reads a launch log written with --log-file and starts the same sensors\n" +
			"again under the same match id with a fresh start time.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := launch.ReadManifestFile(manifest)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.close()
			res := s.coord.Relaunch(s.ctx, mf.Match, mf.SensorIDs)
			return s.supervise(opts, res)
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "Path to a launch log written with --log-file")
	cmd.MarkFlagRequired("manifest")
	return cmd
}
