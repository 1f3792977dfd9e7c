package process

import (
	"errors"
	"strings"
)

// Placeholders recognised in a command template.
const (
	SourcesPlaceholder  = "<sources>"
	SettingsPlaceholder = "<settings>"
)

// ErrEmptyCommand is returned for a template with no program.
var ErrEmptyCommand = errors.New("command template is empty")

// BuildCommand splits template on whitespace and expands its placeholders.
// A field that is exactly <sources> becomes one argument per source; inside a
// larger field the sources are joined with commas. <settings> is replaced by
// the settings document, and a field that is exactly <settings> is dropped
// when settings is empty. Placeholders never expand inside the program name.
func BuildCommand(template string, sources []string, settings string) (string, []string, error) {
	parts := strings.Fields(template)
	if len(parts) == 0 {
		return "", nil, ErrEmptyCommand
	}

	var args []string
	for _, part := range parts[1:] {
		switch {
		case part == SourcesPlaceholder:
			args = append(args, sources...)
		case part == SettingsPlaceholder:
			if settings != "" {
				args = append(args, settings)
			}
		default:
			part = strings.ReplaceAll(part, SourcesPlaceholder, strings.Join(sources, ","))
			part = strings.ReplaceAll(part, SettingsPlaceholder, settings)
			args = append(args, part)
		}
	}
	return parts[0], args, nil
}
