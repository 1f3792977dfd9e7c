package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// GetChangedFiles returns the absolute paths of files that git reports as
// modified, added, renamed or untracked under root.
func GetChangedFiles(ctx context.Context, root string) ([]string, error) {
	// --porcelain output is stable across git versions and locales.
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--untracked-files=all")
	cmd.Dir = root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status in %s: %w: %s", root, err, strings.TrimSpace(stderr.String()))
	}

	// Paths are relative to the repository top level, not to root.
	top, err := gitTopLevel(ctx, root)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		// "XY path", e.g. " M store/store.go" or "?? new_test.go".
		if len(line) < 4 {
			continue
		}
		status, relPath := line[:2], line[3:]
		if strings.Contains(status, "D") {
			continue
		}
		// Renames are reported as "old -> new".
		if _, after, ok := strings.Cut(relPath, " -> "); ok {
			relPath = after
		}
		relPath = strings.Trim(relPath, "\"")

		files = append(files, filepath.Join(top, filepath.FromSlash(relPath)))
	}

	return files, nil
}

// ChangedTestDirs returns the sorted, de-duplicated directories under root
// that contain a changed Go file and at least one test file.
func ChangedTestDirs(ctx context.Context, root string) ([]string, error) {
	files, err := GetChangedFiles(ctx, root)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, f := range files {
		if !IsSourceFile(f) {
			continue
		}
		dir := filepath.Dir(f)
		if rel, err := filepath.Rel(absRoot, dir); err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if slices.Contains(dirs, dir) || !hasTestFile(dir) {
			continue
		}
		dirs = append(dirs, dir)
	}

	slices.Sort(dirs)
	return dirs, nil
}

func gitTopLevel(ctx context.Context, root string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse in %s: %w", root, err)
	}
	return filepath.FromSlash(strings.TrimSpace(string(out))), nil
}

func hasTestFile(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && IsTestFile(e.Name()) {
			return true
		}
	}
	return false
}
