package bundle

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteDir materializes a built bundle under root, creating directories as
// needed. Used by the CLI export path, where the target may live anywhere
// the operator can write.
func WriteDir(files []File, root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("bundle: mkdir %s: %w", root, err)
	}
	for _, f := range files {
		abs := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("bundle: mkdir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(abs, f.Data, 0o644); err != nil {
			return fmt.Errorf("bundle: write %s: %w", f.Path, err)
		}
	}
	return nil
}
