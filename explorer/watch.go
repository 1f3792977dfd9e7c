package explorer

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/jesspatton/lazyexplorer/filesystem"
)

// AffectedSources returns the tracked sources that a batch of changed files
// touches. A source matches a file equal to it or below it. A changed config
// file affects every source.
func AffectedSources(changed, tracked []string) []string {
	var out []string
	for _, path := range changed {
		if filesystem.IsConfigFile(filepath.Base(path)) {
			out = slices.Clone(tracked)
			break
		}
		for _, source := range tracked {
			if path == source || strings.HasPrefix(path, strings.TrimSuffix(source, string(filepath.Separator))+string(filepath.Separator)) {
				out = append(out, source)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
