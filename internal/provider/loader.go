package provider

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
)

// ListFiles returns the absolute path of every regular file below root.
// Relative roots are resolved against the working directory. Paths are
// returned in walk order.
func ListFiles(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider path: %w", err)
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk provider path: %w", err)
	}
	return files, nil
}

// Load parses every file below root. The first file that fails to parse
// aborts the load.
func Load(root string) ([]*Provider, error) {
	files, err := ListFiles(root)
	if err != nil {
		return nil, err
	}

	providers := make([]*Provider, 0, len(files))
	for _, path := range files {
		p, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	slog.Debug("provider catalog loaded", "path", root, "providers", len(providers))
	return providers, nil
}
