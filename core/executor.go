package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/mountainsensing/msfetch/perf"
	"github.com/mountainsensing/msfetch/state"
)

// NodeAction is one command run against a node. Perform does a single
// round-trip and must be safe to repeat after a retryable failure.
// NeedsMorePasses is asked after each success, and lets an action keep
// working on the same node without using up its retry budget.
type NodeAction interface {
	Perform(ctx context.Context, node state.NodeAddress) Outcome
	NeedsMorePasses() bool
}

// Finisher is implemented by actions that produce something once every node
// has been processed.
type Finisher interface {
	Finish(ctx context.Context) error
}

type nodeState int

const (
	stateAttempting nodeState = iota
	stateNeedsMorePasses
	stateExhausted
	stateDone
)

func (s nodeState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateNeedsMorePasses:
		return "needs-more-passes"
	case stateExhausted:
		return "exhausted"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// NodeStatus is how processing of a node ended.
type NodeStatus int

const (
	NodeDone NodeStatus = iota
	NodeFailed
	NodeAbandoned
	NodeUnresolved
	NodeCancelled
)

func (s NodeStatus) String() string {
	switch s {
	case NodeDone:
		return "done"
	case NodeFailed:
		return "failed"
	case NodeAbandoned:
		return "abandoned"
	case NodeUnresolved:
		return "unresolved"
	case NodeCancelled:
		return "cancelled"
	}
	return "unknown"
}

type NodeResult struct {
	Token      string
	Node       state.NodeAddress
	Status     NodeStatus
	RoundTrips int
	Err        error
}

// Summary lists what happened to every token of a run, in order.
type Summary struct {
	Results []NodeResult
}

func (s Summary) Count(status NodeStatus) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (s Summary) RoundTrips() int {
	n := 0
	for _, r := range s.Results {
		n += r.RoundTrips
	}
	return n
}

// Executor drives a NodeAction over a list of nodes, one node at a time.
type Executor struct {
	Resolver *state.Resolver
	Networks *state.Networks
	Retries  int
	Log      *slog.Logger
}

func (e *Executor) budget() int {
	return max(e.Retries, 1)
}

func (e *Executor) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// Run processes every token in order. A node that cannot be resolved, fails
// or runs out of retries is logged and skipped; it never stops the run.
func (e *Executor) Run(ctx context.Context, tokens []string, action NodeAction) Summary {
	var summary Summary
	for _, token := range tokens {
		if ctx.Err() != nil {
			summary.Results = append(summary.Results, NodeResult{Token: token, Status: NodeCancelled, Err: context.Cause(ctx)})
			continue
		}
		node, err := e.Resolver.Resolve(ctx, token)
		if err != nil {
			e.logger().Warn("unable to resolve node, discarding it", "node", token, "error", err)
			summary.Results = append(summary.Results, NodeResult{Token: token, Status: NodeUnresolved, Err: err})
			continue
		}
		res := e.runNode(ctx, node, action)
		res.Token = token
		summary.Results = append(summary.Results, res)
	}
	return summary
}

func (e *Executor) nodeLogger(node state.NodeAddress) *slog.Logger {
	log := e.logger().With("node", node.String())
	if name, ok := e.Networks.Name(node.Addr); ok {
		log = log.With("network", name)
	}
	return log
}

func (e *Executor) runNode(ctx context.Context, node state.NodeAddress, action NodeAction) NodeResult {
	log := e.nodeLogger(node)
	res := NodeResult{Node: node}
	attempt := 0
	st := stateAttempting

	for {
		switch st {
		case stateAttempting, stateNeedsMorePasses:
			if ctx.Err() != nil {
				log.Info("stopped", "reason", context.Cause(ctx))
				res.Status = NodeCancelled
				res.Err = context.Cause(ctx)
				return res
			}
			nodeCtx := withNodeLogger(ctx, log)
			start := time.Now()
			out := action.Perform(nodeCtx, node)
			perf.RoundTripLatency.Add(float64(time.Since(start).Milliseconds()))
			perf.RoundTrips.Add(1)
			res.RoundTrips++
			res.Err = out.Cause
			if out.Kind != OutcomeSuccess && ctx.Err() != nil {
				log.Info("stopped", "reason", context.Cause(ctx), "error", out.Cause)
				res.Status = NodeCancelled
				res.Err = context.Cause(ctx)
				return res
			}

			var next nodeState
			next, attempt = e.step(out, attempt, action)
			switch {
			case out.Kind == OutcomeSuccess:
			case out.Exhausted():
				log.Info(out.Cause.Error())
			case out.Kind == OutcomeTerminal:
				log.Warn("request failed, not retrying", "error", out.Cause)
				perf.Failures.Add(1)
				res.Status = NodeFailed
			default:
				log.Warn("request failed", "error", out.Cause, "attempt", attempt, "of", e.budget())
				perf.Retries.Add(1)
			}
			log.Debug("round-trip complete", "outcome", out.Kind, "next", next)
			st = next
		case stateExhausted:
			log.Warn("giving up on node", "attempts", attempt)
			perf.Failures.Add(1)
			res.Status = NodeAbandoned
			return res
		case stateDone:
			if res.Status != NodeFailed {
				res.Status = NodeDone
				res.Err = nil
			}
			return res
		}
	}
}

// step is the transition function of the per-node loop. Every success resets
// the attempt counter, so a multi-pass action gets its full budget back after
// each item it completes.
func (e *Executor) step(out Outcome, attempt int, action NodeAction) (nodeState, int) {
	switch out.Kind {
	case OutcomeSuccess:
		if action.NeedsMorePasses() {
			return stateNeedsMorePasses, 0
		}
		return stateDone, 0
	case OutcomeTerminal:
		return stateDone, attempt
	default:
		attempt++
		if attempt >= e.budget() {
			return stateExhausted, attempt
		}
		return stateAttempting, attempt
	}
}

type loggerKey struct{}

func withNodeLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// NodeLogger returns the logger carrying the current node's context.
func NodeLogger(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return log
	}
	return slog.Default()
}
