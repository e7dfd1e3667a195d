package files

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Options control enumeration.
type Options struct {
	// Supports reports whether a path has a searchable extension.
	Supports func(path string) bool

	// Ignore holds extra gitignore-style patterns. A bare name also skips
	// any directory or file with that base name.
	Ignore []string

	// UseGitignore honours .gitignore files found under the root.
	UseGitignore bool

	// Shuffle randomises the returned order.
	Shuffle bool

	// Rand seeds the shuffle. A time-seeded source is used when nil.
	Rand *rand.Rand
}

// Enumerate returns the absolute paths of every searchable document under
// root. The order is lexical unless Shuffle is set.
func Enumerate(root string, opts Options) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	matcher, err := NewIgnoreMatcher(abs, opts.Ignore, opts.UseGitignore)
	if err != nil {
		return nil, fmt.Errorf("failed to load ignore rules: %w", err)
	}

	var paths []string
	err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == abs {
				return err
			}
			return nil // Skip inaccessible entries
		}
		if path == abs {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return nil
		}
		if matcher.ShouldIgnore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if opts.Supports != nil && !opts.Supports(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", abs, err)
	}

	if opts.Shuffle {
		r := opts.Rand
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		r.Shuffle(len(paths), func(i, j int) {
			paths[i], paths[j] = paths[j], paths[i]
		})
	} else {
		sort.Strings(paths)
	}

	return paths, nil
}
