package progress

import (
	"io"
	"sort"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cuemby/shipyard/pkg/types"
)

// Stage is a point in a container's progress through one action, used
// only for display; the authoritative state machine lives in
// pkg/container.
type Stage string

const (
	StagePending  Stage = "pending"
	StageRunning  Stage = "running"
	StageDone     Stage = "done"
	StageAlready  Stage = "already"
	StageFailed   Stage = "failed"
)

// Reporter is the observer interface a play drives as it works through
// a container's action.
type Reporter interface {
	// Started marks container as having begun action.
	Started(container string, action types.Action)

	// Finished records container's terminal result for action.
	Finished(result types.Result)

	// Render flushes the current state of every tracked container to
	// its output.
	Render()
}

// ConsoleReporter is a Reporter backed by a go-pretty table, written out
// afresh to its output on every Render call.
type ConsoleReporter struct {
	out io.Writer

	mu    sync.Mutex
	order []string
	rows  map[string]*row
}

type row struct {
	action Action
	stage  Stage
	reason string
}

// Action is an alias kept local to avoid importing types twice in call
// sites that already have it in scope.
type Action = types.Action

// NewConsoleReporter creates a ConsoleReporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out, rows: make(map[string]*row)}
}

func (c *ConsoleReporter) Started(container string, action types.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[container]; !ok {
		c.order = append(c.order, container)
	}
	c.rows[container] = &row{action: action, stage: StageRunning}
}

func (c *ConsoleReporter) Finished(result types.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rows[container(result)]
	if !ok {
		r = &row{}
		c.order = append(c.order, container(result))
		c.rows[container(result)] = r
	}
	r.action = result.Action
	r.reason = result.Reason
	switch result.Outcome {
	case types.OutcomeDone:
		r.stage = StageDone
	case types.OutcomeAlready:
		r.stage = StageAlready
	case types.OutcomeFailed:
		r.stage = StageFailed
	}
}

func container(r types.Result) string { return r.Container }

func (c *ConsoleReporter) Render() {
	c.mu.Lock()
	names := append([]string{}, c.order...)
	snapshot := make(map[string]row, len(c.rows))
	for k, v := range c.rows {
		snapshot[k] = *v
	}
	c.mu.Unlock()

	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(tableRow("CONTAINER", "ACTION", "STATUS", "DETAIL"))

	for _, name := range names {
		r := snapshot[name]
		t.AppendRow(tableRow(name, string(r.action), styledStage(r.stage), r.reason))
	}
	t.Render()
}

func styledStage(s Stage) string {
	switch s {
	case StageDone:
		return text.FgGreen.Sprint(string(s))
	case StageAlready:
		return text.FgCyan.Sprint(string(s))
	case StageFailed:
		return text.FgRed.Sprint(string(s))
	case StageRunning:
		return text.FgYellow.Sprint(string(s))
	default:
		return string(s)
	}
}

func tableRow(values ...string) table.Row {
	r := make(table.Row, len(values))
	for i, v := range values {
		r[i] = v
	}
	return r
}

// RenderDepTree wraps tree (pkg/graph.RenderTree's output) in a bordered
// single-column panel for the deptree command.
func RenderDepTree(w io.Writer, title, tree string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(tableRow(title))
	t.AppendRow(tableRow(tree))
	t.Render()
}

// RenderValidationReport prints one row per issue a --validate pass
// found, or a single "OK" row when the document is clean.
func RenderValidationReport(w io.Writer, path string, issues []error) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(tableRow("DOCUMENT", "ISSUE"))

	if len(issues) == 0 {
		t.AppendRow(tableRow(path, text.FgGreen.Sprint("OK")))
	} else {
		for _, issue := range issues {
			t.AppendRow(tableRow(path, text.FgRed.Sprint(issue.Error())))
		}
	}
	t.Render()
}
