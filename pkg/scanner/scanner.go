package scanner

import (
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/sambabib/cpm-migrate/pkg/logger"
)

// DefaultExcludeDirs are the directory names pruned from traversal when the
// caller does not supply its own exclusion set: build output, version-control
// metadata, and dependency caches.
var DefaultExcludeDirs = []string{"bin", "obj", ".git", ".vs", "node_modules", "packages"}

// DiscoveryExtensions covers every project flavor the tool recognizes;
// MigrationExtensions is the subset the migration engine operates on.
var (
	DiscoveryExtensions = []string{".csproj", ".fsproj", ".vbproj"}
	MigrationExtensions = []string{".csproj"}
)

// Scanner finds project files under a root directory. Traversal is
// breadth-first with an explicit work queue so deep trees never grow the call
// stack, and excluded directories are pruned before being descended into.
type Scanner struct {
	extensions map[string]bool
	excluded   map[string]bool
}

// New builds a Scanner matching the given file extensions (e.g. ".csproj")
// and pruning the given directory names. Both matches are case-insensitive.
// Nil slices select DiscoveryExtensions and DefaultExcludeDirs.
func New(extensions, excludeDirs []string) *Scanner {
	if extensions == nil {
		extensions = DiscoveryExtensions
	}
	if excludeDirs == nil {
		excludeDirs = DefaultExcludeDirs
	}
	s := &Scanner{
		extensions: make(map[string]bool, len(extensions)),
		excluded:   make(map[string]bool, len(excludeDirs)),
	}
	for _, ext := range extensions {
		s.extensions[strings.ToLower(ext)] = true
	}
	for _, dir := range excludeDirs {
		s.excluded[strings.ToLower(dir)] = true
	}
	return s
}

// Projects returns a lazy sequence of project-file paths under root, in
// breadth-first order. The sequence is restartable: ranging over it again
// re-walks the tree. Directories that cannot be read are skipped rather than
// aborting the walk.
func (s *Scanner) Projects(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		queue := []string{root}
		for len(queue) > 0 {
			dir := queue[0]
			queue = queue[1:]

			entries, err := os.ReadDir(dir)
			if err != nil {
				logger.Debugf("scanner: skipping unreadable directory %s: %v", dir, err)
				continue
			}
			for _, entry := range entries {
				name := entry.Name()
				if entry.IsDir() {
					if !s.excluded[strings.ToLower(name)] {
						queue = append(queue, filepath.Join(dir, name))
					}
					continue
				}
				if s.extensions[strings.ToLower(filepath.Ext(name))] {
					if !yield(filepath.Join(dir, name)) {
						return
					}
				}
			}
		}
	}
}

// Scan collects the full sequence into a slice.
func (s *Scanner) Scan(root string) []string {
	var paths []string
	for p := range s.Projects(root) {
		paths = append(paths, p)
	}
	return paths
}
