package progress

import (
	"bytes"
	"testing"

	"github.com/cuemby/shipyard/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestConsoleReporter_RendersStartedAndFinished(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)

	r.Started("web-1", types.ActionStart)
	r.Render()
	assert.Contains(t, buf.String(), "web-1")

	buf.Reset()
	r.Finished(types.Result{Container: "web-1", Action: types.ActionStart, Outcome: types.OutcomeDone})
	r.Render()
	assert.Contains(t, buf.String(), "web-1")
	assert.Contains(t, buf.String(), "done")
}

func TestConsoleReporter_FailedShowsReason(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf)

	r.Finished(types.Result{Container: "db-1", Action: types.ActionStop, Outcome: types.OutcomeFailed, Reason: "timeout"})
	r.Render()

	out := buf.String()
	assert.Contains(t, out, "db-1")
	assert.Contains(t, out, "timeout")
}

func TestRenderDepTree_WrapsTreeText(t *testing.T) {
	var buf bytes.Buffer
	RenderDepTree(&buf, "web", "web\n  db\n")

	out := buf.String()
	assert.Contains(t, out, "web")
}
