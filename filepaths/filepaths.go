package filepaths

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory holding the file at path
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create directory %s: %w", dir, err)
		}
	}
	return nil
}
