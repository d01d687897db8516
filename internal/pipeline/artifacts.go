package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const artifactTimeFormat = "20060102T150405"

// saveArtifact writes v as pretty JSON to <dir>/<prefix>_<timestamp>.json
// and returns the file path.
func saveArtifact(dir, prefix string, at time.Time, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", prefix, at.UTC().Format(artifactTimeFormat)))

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s artifact: %w", prefix, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s artifact: %w", prefix, err)
	}

	return path, nil
}

// latestArtifact finds the newest <prefix>_*.json in dir. Timestamps in
// the names sort lexically, so the last name wins.
func latestArtifact(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read work dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"_") && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no %s artifact found in %s", prefix, dir)
	}

	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// loadArtifact reads the newest artifact for prefix into v.
func loadArtifact(dir, prefix string, v any) (string, error) {
	path, err := latestArtifact(dir, prefix)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s artifact: %w", prefix, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return "", fmt.Errorf("decode %s artifact %s: %w", prefix, path, err)
	}

	return path, nil
}
