package files

import (
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is the per-directory ignore file read regardless of the
// gitignore setting.
const IgnoreFileName = ".pagegrepignore"

// scopedMatcher holds a compiled ignore file and the directory it applies to.
type scopedMatcher struct {
	matcher *ignore.GitIgnore
	baseDir string // relative to the root, empty for the root itself
}

// IgnoreMatcher decides which paths under a root are skipped during
// enumeration.
type IgnoreMatcher struct {
	root     string
	matchers []scopedMatcher
	extra    []string
}

// NewIgnoreMatcher collects the ignore files under root. Nested .gitignore
// files are read only when useGitignore is set; .pagegrepignore files are
// always read. Extra patterns apply from the root.
func NewIgnoreMatcher(root string, extra []string, useGitignore bool) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{
		root:  root,
		extra: extra,
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		if d.IsDir() {
			if path != root && m.matchesExtraName(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if name != IgnoreFileName && (!useGitignore || name != ".gitignore") {
			return nil
		}

		gi, err := ignore.CompileIgnoreFile(path)
		if err != nil {
			return nil // Skip unreadable ignore files
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return nil
		}
		if rel == "." {
			rel = ""
		}
		m.matchers = append(m.matchers, scopedMatcher{
			matcher: gi,
			baseDir: filepath.ToSlash(rel),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(extra) > 0 {
		m.matchers = append(m.matchers, scopedMatcher{
			matcher: ignore.CompileIgnoreLines(extra...),
		})
	}

	return m, nil
}

// ShouldIgnore reports whether a path relative to the root is excluded.
func (m *IgnoreMatcher) ShouldIgnore(relPath string) bool {
	normalized := filepath.ToSlash(relPath)
	if m.matchesExtraName(filepath.Base(normalized)) {
		return true
	}

	for _, sm := range m.matchers {
		rel := matcherRelPath(normalized, sm.baseDir)
		if rel == "" {
			continue
		}
		if sm.matcher.MatchesPath(rel) || sm.matcher.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}

func (m *IgnoreMatcher) matchesExtraName(base string) bool {
	for _, name := range m.extra {
		if base == name {
			return true
		}
	}
	return false
}

// matcherRelPath returns the path relative to baseDir, or "" when the path is
// outside the matcher's scope.
func matcherRelPath(normalizedPath, baseDir string) string {
	if baseDir == "" {
		return normalizedPath
	}
	if normalizedPath == baseDir {
		return "."
	}
	if strings.HasPrefix(normalizedPath, baseDir+"/") {
		return strings.TrimPrefix(normalizedPath, baseDir+"/")
	}
	return ""
}
