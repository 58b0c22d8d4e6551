// Package match holds the identity of one simulated match and the files that
// belong to it on disk.
package match

import (
	"fmt"
	"io"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Match is one run of a named match. ID correlates every simulator process of
// the run.
type Match struct {
	Name string
	ID   int64
}

// Layout locates the per-match files below a data directory.
type Layout struct {
	DataDir    string
	ConfigFile string
	SidsFile   string
}

// Dir returns <data_dir>/<match>.
func (l Layout) Dir(name string) string {
	return l.join(name)
}

// ConfigPath returns the match configuration file handed to every simulator.
func (l Layout) ConfigPath(name string) string {
	return l.join(name, l.ConfigFile)
}

// SidsPath returns the file listing the match's sensor ids.
func (l Layout) SidsPath(name string) string {
	return l.join(name, l.SidsFile)
}

// DataFile returns the CSV file replayed by the simulator of sensor sid.
// The sid is joined verbatim so ids such as "ball/1" map to sub directories.
func (l Layout) DataFile(name, sid string) string {
	return l.join(name, sid+".csv")
}

// join cleans like filepath.Join but keeps a leading "./" of the data dir, so
// simulators get paths spelled the way the data dir was configured.
func (l Layout) join(elem ...string) string {
	p := filepath.Join(append([]string{l.DataDir}, elem...)...)
	if !hasDotPrefix(l.DataDir) || filepath.IsAbs(p) || strings.HasPrefix(p, "..") {
		return p
	}
	return "." + string(filepath.Separator) + p
}

func hasDotPrefix(dir string) bool {
	return strings.HasPrefix(dir, "./") || strings.HasPrefix(dir, "."+string(filepath.Separator))
}

// NewID draws a match id in [0, n) from a random UUID read from r, or from the
// default UUID source when r is nil.
func NewID(r io.Reader, n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("match id range must be positive, got %d", n)
	}
	var (
		u   uuid.UUID
		err error
	)
	if r == nil {
		u, err = uuid.NewRandom()
	} else {
		u, err = uuid.NewRandomFromReader(r)
	}
	if err != nil {
		return 0, fmt.Errorf("generate match id: %w", err)
	}
	v := new(big.Int).SetBytes(u[:])
	return v.Mod(v, big.NewInt(int64(n))).Int64(), nil
}

// New creates a match with a freshly drawn id.
func New(name string, r io.Reader, idRange int) (Match, error) {
	id, err := NewID(r, idRange)
	if err != nil {
		return Match{}, err
	}
	return Match{Name: name, ID: id}, nil
}
