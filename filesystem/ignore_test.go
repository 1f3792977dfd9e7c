package filesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnorer(t *testing.T) {
	tmpDir := t.TempDir()

	gitignoreContent := `
# Comment
ignored_dir/
*.tmp
/root_only.txt
!keep.tmp
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte(gitignoreContent), 0644); err != nil {
		t.Fatal(err)
	}

	ignorer := NewIgnorer(tmpDir)

	tests := []struct {
		path   string
		ignore bool
	}{
		{"vendor", true},                   // Default
		{".git", true},                     // Default
		{"vendor/github.com/x/y.go", true}, // Default, nested
		{"store/store.go", false},          // Normal file
		{"ignored_dir", true},              // From .gitignore
		{"src/ignored_dir", true},          // From .gitignore (recursive)
		{"src/ignored_dir/file.go", true},  // Inside an ignored directory
		{"temp.tmp", true},                 // From .gitignore (glob)
		{"src/temp.tmp", true},             // From .gitignore (glob recursive)
		{"root_only.txt", true},            // From .gitignore (root anchored)
		{"src/root_only.txt", false},       // Anchored patterns do not match deeper
		{"debug.log", true},                // Default *.log
		{"store/.store_test.go.swp", true}, // Editor swap file
	}

	for _, tt := range tests {
		fullPath := filepath.Join(tmpDir, tt.path)
		if got := ignorer.ShouldIgnore(fullPath); got != tt.ignore {
			t.Errorf("ShouldIgnore(%q) = %v, want %v", tt.path, got, tt.ignore)
		}
	}
}

func TestIgnorer_NoGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	ignorer := NewIgnorer(tmpDir)

	if ignorer.ShouldIgnore(filepath.Join(tmpDir, "main.go")) {
		t.Error("plain source file should not be ignored")
	}
	if !ignorer.ShouldIgnore(filepath.Join(tmpDir, "node_modules")) {
		t.Error("default pattern should apply without .gitignore")
	}
}

func TestIgnorer_ExtraPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	ignorer := NewIgnorer(tmpDir, "testdata/", "*_gen_test.go")

	tests := []struct {
		path   string
		ignore bool
	}{
		{"testdata/golden.go", true},
		{"pkg/testdata/x_test.go", true},
		{"pkg/zz_gen_test.go", true},
		{"pkg/store_test.go", false},
		{"vendor", true}, // Defaults still apply
	}
	for _, tt := range tests {
		if got := ignorer.ShouldIgnore(filepath.Join(tmpDir, tt.path)); got != tt.ignore {
			t.Errorf("ShouldIgnore(%q) = %v, want %v", tt.path, got, tt.ignore)
		}
	}
}
