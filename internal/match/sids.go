package match

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// sidsDoc is the mapping form of a YAML sensor list.
type sidsDoc struct {
	Sids []string `yaml:"sids"`
}

// LoadSensorIDs reads the ordered sensor ids of a match. Files ending in .yaml
// or .yml hold either a sequence of strings or a mapping with a "sids"
// sequence. Any other file is read one id per line, skipping blank lines and
// lines starting with '#'.
func LoadSensorIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sensor ids: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLSids(data)
	default:
		return parseLineSids(data)
	}
}

func parseYAMLSids(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse sensor ids: %w", err)
	}
	if len(node.Content) == 0 {
		return []string{}, nil
	}
	root := node.Content[0]
	var sids []string
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&sids); err != nil {
			return nil, fmt.Errorf("parse sensor ids: %w", err)
		}
	case yaml.MappingNode:
		if !hasKey(root, "sids") {
			return nil, fmt.Errorf("parse sensor ids: mapping has no sids key, line %d", root.Line)
		}
		var doc sidsDoc
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse sensor ids: %w", err)
		}
		sids = doc.Sids
	default:
		return nil, fmt.Errorf("parse sensor ids: expected a sequence or a mapping with sids, line %d", root.Line)
	}
	return validateSids(sids)
}

// hasKey reports whether mapping node n holds key.
func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

func parseLineSids(data []byte) ([]string, error) {
	sids := []string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sids = append(sids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sensor ids: %w", err)
	}
	return sids, nil
}

func validateSids(sids []string) ([]string, error) {
	out := make([]string, 0, len(sids))
	for i, s := range sids {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("sensor id %d is empty", i)
		}
		out = append(out, s)
	}
	return out, nil
}
