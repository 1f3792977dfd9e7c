package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jesspatton/lazyexplorer/discovery"
	"github.com/jesspatton/lazyexplorer/explorer"
	"github.com/jesspatton/lazyexplorer/filesystem"
	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/store"
	"github.com/jesspatton/lazyexplorer/testobject"
)

// Output formats accepted by list.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type listOptions struct {
	output  string
	changed bool
	strict  bool
}

func newListCommand(a *app) *cobra.Command {
	opts := listOptions{}

	cmd := &cobra.Command{
		Use:   "list [sources...]",
		Short: "Discover tests and print them",
		Long: `Discover the tests in each source and print them. Sources default to the
project directory; with --changed they are the package directories that
hold test files and have uncommitted changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case formatText, formatJSON, formatYAML:
			default:
				return fmt.Errorf("unknown output format %q (want text, json or yaml)", opts.output)
			}
			if err := a.startLogger(false); err != nil {
				return err
			}
			defer a.close()
			return runList(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", formatText, "output format (text, json, yaml)")
	cmd.Flags().BoolVar(&opts.changed, "changed", false, "list packages with uncommitted changes")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail when a discovery run is aborted")
	return cmd
}

func runList(cmd *cobra.Command, a *app, opts listOptions, sources []string) error {
	ctx := cmd.Context()

	if opts.changed {
		dirs, err := filesystem.ChangedTestDirs(ctx, a.dir)
		if err != nil {
			return err
		}
		sources = append(sources, dirs...)
		if len(sources) == 0 {
			a.logger.Info("no changed test packages")
			return writeCases(cmd.OutOrStdout(), opts.output, nil)
		}
	}
	sources = a.sources(sources)

	p, err := explorer.NewPlatformEngine(a.cfg, a.dir, a.logger)
	if err != nil {
		return err
	}
	coordinator := discovery.NewCoordinator(p,
		discovery.WithSettings(a.cfg.Settings),
		discovery.WithLogger(a.logger),
	)
	defer coordinator.Close()

	var (
		mu      sync.Mutex
		aborted int
	)
	coordinator.Subscribe(func(ev discovery.Event) {
		switch ev := ev.(type) {
		case discovery.MessageReceived:
			switch ev.Level {
			case platform.Error:
				a.logger.Error(ev.Text)
			case platform.Warning:
				a.logger.Warn(ev.Text)
			default:
				a.logger.Debug(ev.Text)
			}
		case discovery.DiscoveryCompleted:
			if ev.Aborted {
				mu.Lock()
				aborted++
				mu.Unlock()
			}
		}
	})

	cases := store.NewTestCaseStore(coordinator, store.WithLogger(a.logger))
	defer cases.Close()

	// Each add waits for the others' runs; the store serializes them.
	g, gctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		g.Go(func() error {
			return cases.AddSourceAssemblyPath(gctx, source)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	mu.Lock()
	n := aborted
	mu.Unlock()
	if n > 0 {
		if opts.strict {
			return fmt.Errorf("%d discovery run(s) aborted", n)
		}
		a.logger.Warn("some discovery runs were aborted; the list may be incomplete", "runs", n)
	}

	entries := cases.Entries()
	slices.SortStableFunc(entries, func(x, y *testobject.TestCase) int {
		return cmp.Or(
			cmp.Compare(x.Source(), y.Source()),
			cmp.Compare(x.FullyQualifiedName(), y.FullyQualifiedName()),
		)
	})
	return writeCases(cmd.OutOrStdout(), opts.output, entries)
}

// caseRecord is the serialized form of a test case.
type caseRecord struct {
	ID       string             `json:"id" yaml:"id"`
	Name     string             `json:"name" yaml:"name"`
	FQN      string             `json:"fullyQualifiedName" yaml:"fullyQualifiedName"`
	Source   string             `json:"source" yaml:"source"`
	File     string             `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int                `json:"line,omitempty" yaml:"line,omitempty"`
	Executor string             `json:"executor,omitempty" yaml:"executor,omitempty"`
	Traits   []testobject.Trait `json:"traits,omitempty" yaml:"traits,omitempty"`
}

func toRecords(cases []*testobject.TestCase) []caseRecord {
	records := make([]caseRecord, 0, len(cases))
	for _, tc := range cases {
		records = append(records, caseRecord{
			ID:       tc.ID().String(),
			Name:     tc.DisplayName(),
			FQN:      tc.FullyQualifiedName(),
			Source:   tc.Source(),
			File:     tc.CodeFilePath(),
			Line:     tc.LineNumber(),
			Executor: tc.ExecutorURI(),
			Traits:   tc.Traits(),
		})
	}
	return records
}

var (
	sourceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"})
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
)

func writeCases(w io.Writer, format string, cases []*testobject.TestCase) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRecords(cases))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toRecords(cases)); err != nil {
			return err
		}
		return enc.Close()
	}

	// Entries are ordered by source, so a header starts each group.
	source := ""
	for i, tc := range cases {
		if i == 0 || tc.Source() != source {
			source = tc.Source()
			if _, err := fmt.Fprintln(w, sourceStyle.Render(source)); err != nil {
				return err
			}
		}
		line := "  " + tc.FullyQualifiedName()
		if tc.CodeFilePath() != "" {
			line += " " + dimStyle.Render(fmt.Sprintf("%s:%d", tc.CodeFilePath(), tc.LineNumber()))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d tests", len(cases))))
	return err
}
