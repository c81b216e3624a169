// Package positions discovers the analysed positions in a pipeline output
// directory.
package positions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"trackview/internal/labels"
	"trackview/internal/models"
	"trackview/internal/tracks"
)

// FeaturesFileName is the per-frame feature table written by segmentation.
const FeaturesFileName = "features.csv"

// RequiredFiles must all exist in a position folder for it to be viewable.
var RequiredFiles = []string{labels.FileName, FeaturesFileName, tracks.FileName}

var folderPattern = regexp.MustCompile(`^XY0*(\d+)$`)

// Discover lists the valid positions under outputDir sorted by index.
// Folders that do not match XY<n> or lack a required file are skipped.
func Discover(outputDir string) ([]models.Position, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("output directory %s: %w", outputDir, models.ErrNotFound)
		}
		return nil, fmt.Errorf("read output directory %s: %w: %v", outputDir, models.ErrIO, err)
	}

	var found []models.Position
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		match := folderPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if !hasFiles(filepath.Join(outputDir, entry.Name()), RequiredFiles) {
			continue
		}
		found = append(found, models.Position{Index: index, Folder: entry.Name()})
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Index < found[j].Index })
	return found, nil
}

// Dir returns the folder of p inside outputDir.
func Dir(outputDir string, p models.Position) string {
	return filepath.Join(outputDir, p.Folder)
}

func hasFiles(dir string, names []string) bool {
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
	}
	return true
}
