package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteFile serializes the session report to path. The format follows the extension: .yaml/.yml for YAML, anything
// else for JSON.
func WriteFile(path string, rep *SessionReport) error {
	var buf []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		buf, err = yaml.Marshal(rep)
	default:
		buf, err = json.MarshalIndent(rep, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding report failed: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory failed: %w", err)
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("writing report failed: %w", err)
	}
	return nil
}
