package internal

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/knowledge/entity"
)

var docExtensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// IsDocPath reports whether path names an indexable document.
func IsDocPath(path string) bool {
	return docExtensions[strings.ToLower(filepath.Ext(path))]
}

// ListDocFiles walks dir for documents, skipping hidden entries and
// symlinks. A missing dir yields no files.
func ListDocFiles(dir string) ([]*entity.FileEntry, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var result []*entity.FileEntry
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 || !IsDocPath(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		result = append(result, &entity.FileEntry{
			Path:    filepath.ToSlash(rel),
			AbsPath: path,
			MtimeMs: info.ModTime().UnixMilli(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// ListDirs returns dir and all of its non-hidden subdirectories.
func ListDirs(dir string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}
