package processor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wgomg/lexmetrics/internal/utils"
)

// Codes are the classification codes carried by the first three characters
// of a corpus file name.
type Codes struct {
	Discipline string
	Time       string
	Paradigm   string
}

func (c Codes) Complete() bool {
	return c.Discipline != "" && c.Time != "" && c.Paradigm != ""
}

func ClassifyName(name string) Codes {
	base := filepath.Base(name)
	return Codes{
		Discipline: utils.RuneAt(base, 0),
		Time:       utils.RuneAt(base, 1),
		Paradigm:   utils.RuneAt(base, 2),
	}
}

// ListFiles returns the regular files directly inside dir whose name matches
// pattern, sorted by name.
func ListFiles(dir, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid file pattern %q", pattern)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		matched, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", entry.Name(), err)
		}
		if !matched {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}

	return files, nil
}
