package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const widgetTest = `package widget

import "testing"

func TestSpin(t *testing.T) {}

func TestStop(t *testing.T) {}
`

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestList_JSON(t *testing.T) {
	dir := project(t, map[string]string{"widget_test.go": widgetTest})

	out, err := execute(t, "list", "-C", dir, "-o", "json", "--log-level", "error")
	require.NoError(t, err)

	var records []caseRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "widget.TestSpin", records[0].FQN)
	assert.Equal(t, "widget.TestStop", records[1].FQN)
	assert.Equal(t, dir, records[0].Source)
	assert.Equal(t, 5, records[0].Line)
	assert.NotEmpty(t, records[0].ID)
}

func TestList_YAML(t *testing.T) {
	dir := project(t, map[string]string{"widget_test.go": widgetTest})

	out, err := execute(t, "list", "-C", dir, "-o", "yaml", "--log-level", "error")
	require.NoError(t, err)

	var records []caseRecord
	require.NoError(t, yaml.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "TestSpin", records[0].Name)
}

func TestList_Text(t *testing.T) {
	dir := project(t, map[string]string{"widget_test.go": widgetTest})

	out, err := execute(t, "list", "-C", dir, "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, dir, lines[0])
	assert.Contains(t, lines[1], "widget.TestSpin")
	assert.Contains(t, lines[1], "widget_test.go:5")
	assert.Equal(t, "2 tests", lines[3])
}

func TestList_SeveralSources(t *testing.T) {
	dir := project(t, map[string]string{
		"a/a_test.go": "package a\n\nimport \"testing\"\n\nfunc TestA(t *testing.T) {}\n",
		"b/b_test.go": "package b\n\nimport \"testing\"\n\nfunc TestB(t *testing.T) {}\n",
		"c/c_test.go": "package c\n\nimport \"testing\"\n\nfunc TestC(t *testing.T) {}\n",
	})

	out, err := execute(t, "list", "-C", dir, "-o", "json", "--log-level", "error", "a", "b", "a")
	require.NoError(t, err)

	var records []caseRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2, "duplicate sources are tracked once and c is not requested")
	assert.Equal(t, filepath.Join(dir, "a"), records[0].Source)
	assert.Equal(t, filepath.Join(dir, "b"), records[1].Source)
}

func TestList_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "list", "-C", dir, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = execute(t, "list", "-C", dir, "--engine", "bogus")
	assert.ErrorContains(t, err, "unknown engine")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "lazyexplorer dev (built from source)\n", out)
}
