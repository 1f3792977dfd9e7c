package filesystem

import (
	"path/filepath"
	"strings"
)

// IsTestFile reports whether name is a Go test file.
func IsTestFile(name string) bool {
	return strings.HasSuffix(name, "_test.go")
}

// IsSourceFile reports whether name is a Go source file. Test files count.
func IsSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go")
}

// IsConfigFile reports whether a change to name can alter what is discovered
// without any source file changing.
func IsConfigFile(name string) bool {
	base := filepath.Base(name)
	return base == "go.mod" ||
		base == "go.sum" ||
		base == "go.work" ||
		strings.HasPrefix(base, ".lazyexplorer.")
}
