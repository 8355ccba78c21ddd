package service

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joeblew999/plat-river/internal/catalog"
)

// SourceService lists the datasets in the data directory.
type SourceService struct {
	dataDir string
	catalog catalog.Catalog
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string, cat catalog.Catalog) *SourceService {
	return &SourceService{dataDir: dataDir, catalog: cat}
}

// List returns every GeoJSON file under the data directory, sorted by
// path, with the catalog layer that draws it.
func (s *SourceService) List() ([]SourceFile, error) {
	// Supported source file extensions and their types
	extToType := map[string]string{
		".geojson": "GeoJSON",
		".json":    "GeoJSON",
	}

	users := make(map[string]string, len(s.catalog.Layers)+1)
	for _, l := range append([]catalog.LayerSpec{s.catalog.River}, s.catalog.Layers...) {
		users[filepath.ToSlash(filepath.Clean(l.File))] = l.ID
	}

	files := []SourceFile{}
	err := filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.dataDir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}

		fileType, ok := extToType[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.dataDir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		files = append(files, SourceFile{
			Name:     rel,
			Size:     formatSize(info.Size()),
			FileType: fileType,
			Layer:    users[rel],
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// DataDir returns the dataset root.
func (s *SourceService) DataDir() string {
	return s.dataDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
