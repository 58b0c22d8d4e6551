package launch

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"streamteam-launcher/internal/match"
)

// Descriptor is everything needed to start the simulator of one sensor.
type Descriptor struct {
	SensorID    string
	LogFileName string
	ConfigFile  string
	DataFile    string
	MatchID     int64
	StartTimeMs int64
	Announcer   bool
}

// Args returns the simulator argument list in its fixed order: log file name
// property, jar selector, match config, match id, data file, start time in ms
// and the announcer flag.
func (d Descriptor) Args(jar string) []string {
	return []string{
		"-DlogFileName=" + d.LogFileName,
		"-jar", jar,
		d.ConfigFile,
		strconv.FormatInt(d.MatchID, 10),
		d.DataFile,
		strconv.FormatInt(d.StartTimeMs, 10),
		strconv.FormatBool(d.Announcer),
	}
}

// Command returns the full command line, javaBin first.
func (d Descriptor) Command(javaBin, jar string) []string {
	return append([]string{javaBin}, d.Args(jar)...)
}

var sidSanitizer = strings.NewReplacer("/", "_", "\\", "_")

// LogFileName builds <prefix>_<matchID>_<sid>_<suffix> with path separators in
// sid replaced by underscores. An empty suffix drops the trailing part.
func LogFileName(prefix string, matchID int64, sid, suffix string) string {
	name := prefix + "_" + strconv.FormatInt(matchID, 10) + "_" + sidSanitizer.Replace(sid)
	if suffix != "" {
		name += "_" + suffix
	}
	return name
}

// StartTime returns now+lead in whole milliseconds since the Unix epoch.
func StartTime(now time.Time, lead time.Duration) int64 {
	return now.Add(lead).UnixMilli()
}

// ClasspathSeparator returns the JVM classpath separator for goos.
func ClasspathSeparator(goos string) string {
	if goos == "windows" {
		return ";"
	}
	return ":"
}

// HostClasspathSeparator returns the classpath separator of the running OS.
func HostClasspathSeparator() string {
	return ClasspathSeparator(runtime.GOOS)
}

// Planner turns a match and its sensor ids into launch descriptors.
type Planner struct {
	Layout        match.Layout
	LogNamePrefix string
	LogNameSuffix string
}

// Plan returns one descriptor per sensor id, in order. Only the first is the
// announcer. All descriptors share the match id and start time.
func (p Planner) Plan(m match.Match, sids []string, startMs int64) []Descriptor {
	descs := make([]Descriptor, 0, len(sids))
	for i, sid := range sids {
		descs = append(descs, Descriptor{
			SensorID:    sid,
			LogFileName: LogFileName(p.LogNamePrefix, m.ID, sid, p.LogNameSuffix),
			ConfigFile:  p.Layout.ConfigPath(m.Name),
			DataFile:    p.Layout.DataFile(m.Name, sid),
			MatchID:     m.ID,
			StartTimeMs: startMs,
			Announcer:   i == 0,
		})
	}
	return descs
}
