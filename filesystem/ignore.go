package filesystem

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// defaultIgnores are skipped by the watcher even without a .gitignore.
var defaultIgnores = []string{
	".git",
	"vendor",
	"node_modules",
	"bin",
	"dist",
	".DS_Store",
	"*.log",
	"*.swp",
	"*~",
	"4913", // vim's write probe
}

// Ignorer decides which paths under a root the watcher skips, from the
// defaults above and the root's .gitignore.
type Ignorer struct {
	root     string
	patterns []string
}

// NewIgnorer creates an Ignorer for root from the defaults, extra, and
// root/.gitignore if present. extra uses .gitignore syntax.
func NewIgnorer(root string, extra ...string) *Ignorer {
	ign := &Ignorer{
		root:     root,
		patterns: append(slices.Clone(defaultIgnores), extra...),
	}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			// Negations are not supported; skipping them errs on watching more.
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
				continue
			}
			ign.patterns = append(ign.patterns, line)
		}
	}
	return ign
}

// ShouldIgnore reports whether path matches a pattern by base name or by its
// path relative to the root.
func (i *Ignorer) ShouldIgnore(path string) bool {
	name := filepath.Base(path)
	relPath, err := filepath.Rel(i.root, path)
	if err != nil || strings.HasPrefix(relPath, "..") {
		relPath = name
	}

	for _, p := range i.patterns {
		cleanP := strings.TrimSuffix(p, "/")

		// Anchored patterns only match from the root.
		isAnchored := strings.HasPrefix(cleanP, "/")
		cleanP = strings.TrimPrefix(cleanP, "/")
		cleanP = filepath.FromSlash(cleanP)

		if isAnchored {
			if relPath == cleanP || strings.HasPrefix(relPath, cleanP+string(os.PathSeparator)) {
				return true
			}
			continue
		}

		if matched, _ := filepath.Match(cleanP, name); matched {
			return true
		}
		if relPath == cleanP || strings.HasPrefix(relPath, cleanP+string(os.PathSeparator)) {
			return true
		}
		// Any directory component matching, e.g. "vendor" in "a/vendor/b.go".
		for _, part := range strings.Split(filepath.Dir(relPath), string(os.PathSeparator)) {
			if matched, _ := filepath.Match(cleanP, part); matched {
				return true
			}
		}
	}
	return false
}
