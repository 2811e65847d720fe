package play

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/shipyard/pkg/audit"
	"github.com/cuemby/shipyard/pkg/container"
	"github.com/cuemby/shipyard/pkg/graph"
	"github.com/cuemby/shipyard/pkg/log"
	"github.com/cuemby/shipyard/pkg/metrics"
	"github.com/cuemby/shipyard/pkg/progress"
	"github.com/cuemby/shipyard/pkg/types"
)

// Play drives a set of containers through one action, one dependency
// layer at a time.
type Play struct {
	Env         *types.Environment
	Graph       *graph.Graph
	Manager     *container.Manager
	Sinks       []audit.Sink
	Reporter    progress.Reporter
	Concurrency int // worker pool size per layer; 0 means unbounded
}

// Run executes action against targets (service or container names,
// expanded by the caller into container names), ordered by Graph.Order,
// and returns the play's summary. It returns a non-nil error for a
// failure that prevents the play from starting at all (an invalid
// selection, or a non-ignoring audit sink rejecting the play-start
// event), and also when a non-ignoring sink rejects the play-end event,
// even though the summary itself is complete by then. A non-ignoring
// sink failure mid-play cancels the remaining layers the same way an
// external interrupt does; per-container failures are otherwise
// recorded in the summary, not returned as an error.
func (p *Play) Run(ctx context.Context, targets []string, action types.Action, withDependencies, ignoreOrder bool) (audit.Summary, error) {
	playID := uuid.New().String()
	logger := log.WithPlay(playID, string(action))
	started := time.Now()

	layers, err := p.Graph.Order(targets, action, withDependencies, ignoreOrder)
	if err != nil {
		return audit.Summary{}, err
	}

	flatTargets := make([]string, 0)
	for _, l := range layers {
		flatTargets = append(flatTargets, l...)
	}

	if err := audit.Dispatch(p.Sinks, audit.Event{
		Type: audit.EventPlayStart, Time: started, PlayID: playID, Action: action, Targets: flatTargets,
	}); err != nil {
		logger.Error().Err(err).Msg("audit sink rejected play start, aborting")
		return audit.Summary{}, fmt.Errorf("play: audit sink rejected play start: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := metrics.NewTimer()
	containersByName := p.containerIndex()

	var results []types.Result
	cancelled := false

	for i, layer := range layers {
		if ctx.Err() != nil {
			logger.Warn().Int("layer", i).Msg("play cancelled before layer started")
			cancelled = true
			break
		}

		layerTimer := metrics.NewTimer()
		layerResults := p.runLayer(ctx, cancel, containersByName, layer, action, playID)
		layerTimer.ObserveDurationVec(metrics.LayerDuration, string(action))
		results = append(results, layerResults...)

		if anyFailed(layerResults) {
			logger.Warn().Int("layer", i).Msg("layer had failures, aborting before next layer")
			break
		}
	}

	if cancelled || ctx.Err() != nil {
		for _, name := range remaining(layers, results) {
			results = append(results, types.Result{
				Container: name, Action: action, Outcome: types.OutcomeFailed, Reason: "cancelled",
			})
		}
	}

	summary := summarize(playID, action, results, started)
	timer.ObserveDurationVec(metrics.PlayDuration, string(action))
	metrics.PlaysTotal.WithLabelValues(string(action), playOutcome(summary)).Inc()

	dispatchErr := audit.Dispatch(p.Sinks, audit.Event{
		Type: audit.EventPlayEnd, Time: time.Now(), PlayID: playID, Action: action, Summary: &summary,
	})

	if p.Reporter != nil {
		p.Reporter.Render()
	}

	if dispatchErr != nil {
		logger.Error().Err(dispatchErr).Msg("audit sink rejected play end")
		return summary, fmt.Errorf("play: audit sink rejected play end: %w", dispatchErr)
	}
	return summary, nil
}

func (p *Play) runLayer(ctx context.Context, cancel context.CancelFunc, byName map[string]*types.Container, layer []string, action types.Action, playID string) []types.Result {
	n := p.Concurrency
	if n <= 0 || n > len(layer) {
		n = len(layer)
	}
	if n == 0 {
		return nil
	}

	sem := make(chan struct{}, n)
	var wg sync.WaitGroup
	resultsCh := make(chan types.Result, len(layer))

	for _, name := range layer {
		c, ok := byName[name]
		if !ok {
			resultsCh <- types.Result{Container: name, Action: action, Outcome: types.OutcomeFailed, Reason: "unknown container"}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(c *types.Container) {
			defer wg.Done()
			defer func() { <-sem }()

			if p.Reporter != nil {
				p.Reporter.Started(c.Name, action)
			}
			if err := audit.Dispatch(p.Sinks, audit.Event{
				Type: audit.EventContainerActionStart, Time: time.Now(), PlayID: playID, Action: action, Container: c.Name,
			}); err != nil {
				cancel()
				result := types.Result{
					Container: c.Name, Action: action, Outcome: types.OutcomeFailed,
					Reason: fmt.Sprintf("audit sink rejected action start: %v", err),
				}
				if p.Reporter != nil {
					p.Reporter.Finished(result)
				}
				resultsCh <- result
				return
			}

			result := p.Manager.Reconcile(ctx, c, action)

			if p.Reporter != nil {
				p.Reporter.Finished(result)
			}
			if err := audit.Dispatch(p.Sinks, audit.Event{
				Type: audit.EventContainerActionEnd, Time: time.Now(), PlayID: playID, Action: action, Container: c.Name, Result: &result,
			}); err != nil {
				cancel()
			}

			resultsCh <- result
		}(c)
	}

	wg.Wait()
	close(resultsCh)

	out := make([]types.Result, 0, len(layer))
	for r := range resultsCh {
		out = append(out, r)
	}
	return out
}

func (p *Play) containerIndex() map[string]*types.Container {
	out := make(map[string]*types.Container)
	for _, svc := range p.Env.Services {
		for _, c := range svc.Instances {
			out[c.Name] = c
		}
	}
	return out
}

func anyFailed(results []types.Result) bool {
	for _, r := range results {
		if r.Outcome == types.OutcomeFailed {
			return true
		}
	}
	return false
}

// remaining lists every container named across layers that does not yet
// have a recorded result, used to mark the rest of a cancelled play.
func remaining(layers [][]string, results []types.Result) []string {
	done := make(map[string]bool, len(results))
	for _, r := range results {
		done[r.Container] = true
	}
	var out []string
	for _, layer := range layers {
		for _, name := range layer {
			if !done[name] {
				out = append(out, name)
			}
		}
	}
	return out
}

func summarize(playID string, action types.Action, results []types.Result, started time.Time) audit.Summary {
	s := audit.Summary{PlayID: playID, Action: action, Results: results, StartedAt: started, EndedAt: time.Now()}
	for _, r := range results {
		switch r.Outcome {
		case types.OutcomeDone:
			s.Done++
		case types.OutcomeAlready:
			s.Already++
		case types.OutcomeFailed:
			s.Failed++
		}
	}
	return s
}

func playOutcome(s audit.Summary) string {
	if s.Failed > 0 {
		return "failed"
	}
	return "success"
}
