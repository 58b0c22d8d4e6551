package launch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"streamteam-launcher/internal/event"
	"streamteam-launcher/internal/match"
)

// Manifest is a match identity and sensor order recovered from a launch log.
type Manifest struct {
	Match     match.Match
	SensorIDs []string
}

// ReadManifest decodes launch rows written by FileWriter. Sensors keep the
// order of their first launch row; later rows for the same sensor are ignored.
func ReadManifest(r io.Reader) (Manifest, error) {
	dec := json.NewDecoder(r)
	var (
		mf   Manifest
		seen = make(map[string]struct{})
		n    int
	)
	for {
		var row event.LaunchRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				break
			}
			return Manifest{}, fmt.Errorf("manifest row %d: %w", n+1, err)
		}
		n++
		if n == 1 {
			mf.Match = match.Match{Name: row.MatchName, ID: row.MatchID}
		} else if row.MatchID != mf.Match.ID || row.MatchName != mf.Match.Name {
			return Manifest{}, fmt.Errorf("manifest row %d: match %s/%d differs from %s/%d",
				n, row.MatchName, row.MatchID, mf.Match.Name, mf.Match.ID)
		}
		if _, ok := seen[row.SensorID]; ok {
			continue
		}
		seen[row.SensorID] = struct{}{}
		mf.SensorIDs = append(mf.SensorIDs, row.SensorID)
	}
	if n == 0 {
		return Manifest{}, errors.New("manifest has no launch rows")
	}
	return mf, nil
}

// ReadManifestFile opens path and reads its manifest.
func ReadManifestFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()
	return ReadManifest(f)
}
