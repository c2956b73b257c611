package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	graphview "github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/pipeline"
)

// ErrInvalid is returned by Validate when the pipeline cannot run as written.
var ErrInvalid = errors.New("pipeline is not valid")

// Describe prints the tasks of a pipeline file. Terminals get a rendered
// markdown table, anything else the plain listing.
func Describe(opts Options) error {
	p, err := pipeline.Load(opts.Path)
	if err != nil {
		return err
	}

	out := opts.stdout()
	if !isTerminal(out) {
		return p.Describe(out)
	}

	rendered, err := tui.NewRenderer()(tui.DescribeMarkdown(p))
	if err != nil {
		return p.Describe(out)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

// Graph prints a Mermaid flowchart of the pipeline. When runID is set the
// stored run is overlaid on it.
func Graph(ctx context.Context, opts Options, runID string) error {
	logger := createLogger(opts)
	src, _, err := OpenSource(opts, logger)
	if err != nil {
		return err
	}
	descs, err := src.Descriptors(ctx)
	if err != nil {
		return err
	}

	engine, closeEngine, err := NewEngine(opts, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	g, err := engine.Build(descs)
	if err != nil {
		return err
	}

	var overlay *graphview.GraphOverlay
	if runID != "" {
		record, err := engine.Runs().Load(ctx, runID)
		if err != nil {
			return err
		}
		overlay = &graphview.GraphOverlay{Visited: record.Visited, Failed: record.FailedTask}
	}

	_, err = io.WriteString(opts.stdout(), graphview.GenerateMermaid(g, overlay))
	return err
}

// Validate builds the graph, resolves every reachable action and reports
// unreachable tasks. It returns ErrInvalid when anything would fail at run time.
func Validate(ctx context.Context, opts Options) error {
	logger := createLogger(opts)
	src, name, err := OpenSource(opts, logger)
	if err != nil {
		return err
	}
	descs, err := src.Descriptors(ctx)
	if err != nil {
		return err
	}

	engine, closeEngine, err := NewEngine(opts, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	out := opts.stdout()
	g, err := engine.Validate(descs)
	if g == nil {
		fmt.Fprintf(out, "✘ %s: %v\n", name, err)
		return ErrInvalid
	}
	if unreachable := g.Unreachable(); len(unreachable) > 0 {
		fmt.Fprintf(out, "! %d task(s) can never run: %v\n", len(unreachable), unreachable)
	}
	if dangling := g.Dangling(); len(dangling) > 0 {
		fmt.Fprintf(out, "! parent id(s) %v are referenced but never defined\n", dangling)
	}
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintf(out, "✘ %s\n", line)
		}
		return ErrInvalid
	}

	fmt.Fprintf(out, "✔ %s: %d task(s), %d reachable\n", name, g.Len(), len(g.Reachable()))
	return nil
}

// ListRuns prints the run history, most recent first.
func ListRuns(ctx context.Context, opts Options) error {
	engine, closeEngine, err := NewEngine(opts, createLogger(opts))
	if err != nil {
		return err
	}
	defer closeEngine()

	records, err := engine.Runs().List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(opts.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPIPELINE\tSTATUS\tVISITED\tSTARTED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Pipeline, r.Status, len(r.Visited), r.StartedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// ShowRun prints one run record, as JSON or as the terminal summary.
func ShowRun(ctx context.Context, opts Options, runID string, asJSON bool) error {
	engine, closeEngine, err := NewEngine(opts, createLogger(opts))
	if err != nil {
		return err
	}
	defer closeEngine()

	record, err := engine.Runs().Load(ctx, runID)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(opts.stdout())
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}
	_, err = fmt.Fprintln(opts.stdout(), tui.RenderSummary(record))
	return err
}
