package driver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery resolves the ordered unit list for a run: explicit file
// arguments pass through, directories are walked against the include
// and exclude patterns.
type FileDiscovery struct {
	rootDir         string
	includePatterns []compiledPattern
	excludePatterns []compiledPattern
}

// NewFileDiscovery compiles the configured glob patterns.
func NewFileDiscovery(rootDir string, includePatterns, excludePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{rootDir: rootDir}

	for _, pattern := range includePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		fd.includePatterns = append(fd.includePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	for _, pattern := range excludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		fd.excludePatterns = append(fd.excludePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	return fd, nil
}

// Discover expands the given paths into a sorted, de-duplicated unit
// list. Paths outside the include patterns are skipped silently;
// explicit file arguments bypass the include check but honor excludes.
func (fd *FileDiscovery) Discover(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		abs := filepath.Clean(path)
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if !fd.excluded(fd.rel(p)) {
				add(p)
			}
			continue
		}
		err = filepath.Walk(p, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel := fd.rel(path)
			if info.IsDir() {
				if fd.excluded(rel + "/") {
					return filepath.SkipDir
				}
				return nil
			}
			if fd.excluded(rel) || !fd.included(rel) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Deterministic order keeps reports and worker assignment stable.
	sort.Strings(files)
	return files, nil
}

func (fd *FileDiscovery) rel(path string) string {
	rel, err := filepath.Rel(fd.rootDir, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

func (fd *FileDiscovery) included(rel string) bool {
	for _, p := range fd.includePatterns {
		if p.glob.Match(rel) || p.glob.Match("./"+rel) {
			return true
		}
		// `**/*.py` style patterns miss top-level files; match the
		// basename against the final segment too.
		if strings.HasPrefix(p.pattern, "**/") {
			if g, err := glob.Compile(strings.TrimPrefix(p.pattern, "**/"), '/'); err == nil && g.Match(rel) {
				return true
			}
		}
	}
	return false
}

func (fd *FileDiscovery) excluded(rel string) bool {
	for _, p := range fd.excludePatterns {
		if p.glob.Match(rel) {
			return true
		}
		if strings.HasPrefix(p.pattern, "**/") {
			if g, err := glob.Compile(strings.TrimPrefix(p.pattern, "**/"), '/'); err == nil && g.Match(rel) {
				return true
			}
		}
	}
	return false
}
