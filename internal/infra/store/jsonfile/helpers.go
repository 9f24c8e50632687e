package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// validID keeps record ids usable as plain file names.
func validID(id string) bool {
	return idPattern.MatchString(id) && id != "." && id != ".."
}

func recordPath(dir, id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("invalid record id %q", id)
	}
	return filepath.Join(dir, id+".json"), nil
}

// writeJSON overwrites path with v. No locking: the last writer wins.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
