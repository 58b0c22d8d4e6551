// YAML config loader with CUE validation integration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

// Defaults used when the launcher file omits a key.
const (
	DefaultDataDir       = "./sensorData"
	DefaultConfigFile    = "config.properties"
	DefaultSidsFile      = "sids.yaml"
	DefaultJavaBin       = "java"
	DefaultJar           = "./target/streamteam-sensor-simulator-1.0.1-jar-with-dependencies.jar"
	DefaultLeadTime      = 40 * time.Second
	DefaultLogNamePrefix = "SensorSimulator"
	DefaultLogNameSuffix = "local"
	DefaultMatchIDRange  = 1000000
)

//go:embed schema/launcher.cue
var defaultSchema []byte

// LauncherConfig is the root configuration for one launcher invocation.
type LauncherConfig struct {
	DataDir          string `yaml:"data_dir"`
	ConfigFile       string `yaml:"config_file"`
	SidsFile         string `yaml:"sids_file"`
	JavaBin          string `yaml:"java_bin"`
	Jar              string `yaml:"jar"`
	LeadTimeRaw      string `yaml:"lead_time"`
	LogNamePrefix    string `yaml:"log_name_prefix"`
	LogNameSuffix    string `yaml:"log_name_suffix"`
	MatchIDRange     int    `yaml:"match_id_range"`
	ProcessOutputDir string `yaml:"process_output_dir"`

	// LeadTime is LeadTimeRaw parsed, or DefaultLeadTime.
	LeadTime time.Duration `yaml:"-"`
}

// Default returns a configuration holding only built-in defaults.
func Default() *LauncherConfig {
	cfg := &LauncherConfig{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the launcher YAML at configPath, validates it against the CUE
// schema at schemaPath (the embedded schema when empty), applies defaults and
// then environment overrides. An empty configPath yields the defaults.
func Load(configPath, schemaPath string) (*LauncherConfig, error) {
	var cfg LauncherConfig
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read launcher config: %w", err)
		}
		schema := defaultSchema
		if schemaPath != "" {
			schema, err = os.ReadFile(schemaPath)
			if err != nil {
				return nil, fmt.Errorf("cannot read CUE schema: %w", err)
			}
		}
		if err := ValidateWithCue(configPath, data, schema); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("cannot unmarshal launcher config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if cfg.LeadTimeRaw != "" {
		d, err := parseLeadTime(cfg.LeadTimeRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid lead_time: %w", err)
		}
		cfg.LeadTime = d
	}
	return &cfg, nil
}

// ApplyEnv overrides fields from STREAMTEAM_* environment variables.
func (c *LauncherConfig) ApplyEnv() error {
	if v := os.Getenv("STREAMTEAM_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("STREAMTEAM_JAVA"); v != "" {
		c.JavaBin = v
	}
	if v := os.Getenv("STREAMTEAM_JAR"); v != "" {
		c.Jar = v
	}
	if v := os.Getenv("STREAMTEAM_LEAD_TIME"); v != "" {
		if _, err := parseLeadTime(v); err != nil {
			return fmt.Errorf("invalid STREAMTEAM_LEAD_TIME: %w", err)
		}
		c.LeadTimeRaw = v
	}
	return nil
}

// parseLeadTime parses a Go duration and requires it to be positive, so the
// start time always lies in the future.
func parseLeadTime(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("lead time %q must be positive", s)
	}
	return d, nil
}

func (c *LauncherConfig) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.ConfigFile == "" {
		c.ConfigFile = DefaultConfigFile
	}
	if c.SidsFile == "" {
		c.SidsFile = DefaultSidsFile
	}
	if c.JavaBin == "" {
		c.JavaBin = DefaultJavaBin
	}
	if c.Jar == "" {
		c.Jar = DefaultJar
	}
	if c.LogNamePrefix == "" {
		c.LogNamePrefix = DefaultLogNamePrefix
	}
	if c.LogNameSuffix == "" {
		c.LogNameSuffix = DefaultLogNameSuffix
	}
	if c.MatchIDRange <= 0 {
		c.MatchIDRange = DefaultMatchIDRange
	}
	if c.LeadTime <= 0 {
		c.LeadTime = DefaultLeadTime
	}
}

// ValidateWithCue validates YAML configuration bytes against the #Launcher
// definition of a CUE schema. Unknown keys are rejected.
func ValidateWithCue(configFile string, yamlBytes, schemaBytes []byte) error {
	// Comment-only or empty documents carry nothing to validate.
	var configData map[string]interface{}
	if err := yaml.Unmarshal(yamlBytes, &configData); err != nil {
		return fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	if configData == nil {
		return nil
	}

	ctx := cuecontext.New()

	schemaVal := ctx.CompileBytes(schemaBytes, cue.Filename("launcher.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Launcher"))
	if !def.Exists() {
		return fmt.Errorf("CUE schema has no #Launcher definition")
	}

	f, err := cueyaml.Extract(configFile, yamlBytes)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	configVal := ctx.BuildFile(f)

	final := def.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
