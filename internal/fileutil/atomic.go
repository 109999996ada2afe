package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to dir/name through a temp file in the same
// directory that is renamed into place, so readers never observe a partial
// file. dir is created if missing. Returns the final path.
func WriteFileAtomic(dir, name string, data []byte, perm os.FileMode) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := SecureMkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	fullPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".tmp.")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := SecureChmod(tmpPath, perm); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		return "", fmt.Errorf("rename into place: %w", err)
	}
	cleanupTmp = false
	return fullPath, nil
}
