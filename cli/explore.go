package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jesspatton/lazyexplorer/explorer"
	"github.com/jesspatton/lazyexplorer/ui"
)

func newExploreCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explore [sources...]",
		Short: "Browse tests in the terminal",
		Long: `Open the test explorer. Sources default to the project directory. Set
log.file in the config to keep logs, since the explorer owns the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(cmd, a, args)
		},
	}
}

func runExplore(cmd *cobra.Command, a *app, sources []string) error {
	if err := a.startLogger(true); err != nil {
		return err
	}
	defer a.close()

	sources = a.sources(sources)

	e, err := explorer.FromConfig(a.cfg, a.dir, a.logger)
	if err != nil {
		return err
	}
	defer e.Close()

	p := tea.NewProgram(ui.NewModel(e, sources...),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("explorer: %w", err)
	}
	return nil
}
