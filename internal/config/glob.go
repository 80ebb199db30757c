package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandGlobs resolves a mix of literal paths and glob patterns into a
// sorted, de-duplicated list of regular files. Directories matched by a
// glob are skipped, so patterns like /var/log/* work even when the
// directory contains subdirectories. A pattern that matches no files at
// all is an error, as is a literal path that does not exist.
func ExpandGlobs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no file patterns provided")
	}

	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				return nil, fmt.Errorf("%s is a directory, try %s", pattern, filepath.Join(pattern, "*.log"))
			}
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		found := 0
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			add(match)
			found++
		}
		if found == 0 {
			return nil, fmt.Errorf("no matches for pattern %q", pattern)
		}
	}

	sort.Strings(files)
	return files, nil
}
