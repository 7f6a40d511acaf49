// Package solver hosts mixed-integer linear programs and solves them by
// branch and bound over LP relaxations computed with gonum's simplex.
//
// The search is depth-first and deterministic: identical problems and options
// always explore the same tree. Termination is governed by a relative gap, a
// wall-clock limit, a node limit and the caller's context; when a limit stops
// the search the best incumbent is returned with StatusLimitReached.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	feasTol    = 1e-6
	intTol     = 1e-6
	simplexTol = 1e-9
)

var (
	// ErrInfeasible is returned when the search proves no feasible solution exists.
	ErrInfeasible = errors.New("problem is infeasible")
	// ErrNoSolution is returned when a limit stops the search before any
	// feasible solution was found.
	ErrNoSolution = errors.New("no feasible solution found before the limit")
)

// Status is the outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	// StatusOptimal means the incumbent is proven optimal within the gap.
	StatusOptimal
	// StatusLimitReached means a limit stopped the search; the incumbent is
	// feasible but not proven optimal.
	StatusLimitReached
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusLimitReached:
		return "limit_reached"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "optimal":
		*s = StatusOptimal
	case "limit_reached":
		*s = StatusLimitReached
	case "infeasible":
		*s = StatusInfeasible
	case "unknown", "":
		*s = StatusUnknown
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// EventKind identifies a progress event.
type EventKind string

const (
	EventIncumbent EventKind = "incumbent"
	EventDone      EventKind = "done"
)

// Event reports search progress.
type Event struct {
	Kind      EventKind
	Objective float64
	Bound     float64
	Nodes     int
	Elapsed   time.Duration
}

// Options controls termination.
type Options struct {
	// TimeLimit stops the search after this duration. Zero means no limit.
	TimeLimit time.Duration
	// Gap is the relative optimality gap at which the search stops.
	Gap float64
	// NodeLimit caps the number of explored nodes. Zero means no limit.
	NodeLimit int
	// OnEvent receives progress events. It is called synchronously.
	OnEvent func(Event)
}

// Result is the outcome of Solve.
type Result struct {
	Status    Status
	X         []float64
	Objective float64
	Bound     float64
	Gap       float64
	Nodes     int
	Duration  time.Duration
}

type node struct {
	lb, ub []float64
	bound  float64
}

type search struct {
	p       *Problem
	opts    Options
	start   time.Time
	best    []float64
	bestObj float64
	nodes   int
	// unproven is set when a node had to be dropped without a bound proof.
	unproven bool
}

// Solve runs branch and bound on p. It returns ErrInfeasible when no
// solution exists and ErrNoSolution when a limit or cancellation stops the
// search before any incumbent was found.
//
//gocyclo:ignore
func Solve(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	s := &search{p: p, opts: opts, start: time.Now(), bestObj: math.Inf(1)}
	if opts.Gap < 0 {
		return nil, fmt.Errorf("gap must not be negative")
	}
	root := node{lb: make([]float64, len(p.vars)), ub: make([]float64, len(p.vars)), bound: math.Inf(-1)}
	for j, v := range p.vars {
		root.lb[j], root.ub[j] = v.Lower, v.Upper
		if v.Integer {
			root.lb[j], root.ub[j] = math.Ceil(v.Lower-intTol), math.Floor(v.Upper+intTol)
		}
		if root.lb[j] > root.ub[j] {
			return s.result(StatusInfeasible), ErrInfeasible
		}
	}
	if p.incumbent != nil {
		s.accept(p.incumbent)
	}

	var deadline time.Time
	if opts.TimeLimit > 0 {
		deadline = s.start.Add(opts.TimeLimit)
	}
	stack := []node{root}
	limited := false
	gapBound := math.Inf(1)
	for len(stack) > 0 {
		if ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline)) ||
			(opts.NodeLimit > 0 && s.nodes >= opts.NodeLimit) {
			limited = true
			break
		}
		if s.best != nil {
			if b := openBound(stack); relGap(s.bestObj, b) <= opts.Gap {
				gapBound = b
				stack = stack[:0]
				break
			}
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.prunable(nd.bound) {
			continue
		}
		s.nodes++
		stack = append(stack, s.expand(nd)...)
	}

	if s.best == nil {
		if limited || s.unproven {
			if err := ctx.Err(); err != nil {
				return s.result(StatusUnknown), fmt.Errorf("%w: %w", ErrNoSolution, err)
			}
			return s.result(StatusUnknown), ErrNoSolution
		}
		return s.result(StatusInfeasible), ErrInfeasible
	}
	status := StatusOptimal
	bound := math.Min(s.bestObj, gapBound)
	if limited || s.unproven {
		if len(stack) > 0 {
			bound = math.Min(bound, openBound(stack))
		}
		if limited || relGap(s.bestObj, bound) > opts.Gap {
			status = StatusLimitReached
		}
	}
	res := s.result(status)
	res.Bound = bound
	res.Gap = relGap(s.bestObj, bound)
	s.emit(EventDone, bound)
	return res, nil
}

// expand evaluates a node and returns its children, preferred child last.
func (s *search) expand(nd node) []node {
	rel := relax(s.p, nd.lb, nd.ub)
	switch rel.status {
	case relaxInfeasible:
		return nil
	case relaxOptimal:
		bound := math.Max(rel.obj, nd.bound)
		if s.prunable(bound) {
			return nil
		}
		j := s.mostFractional(rel.x, nd)
		if j < 0 {
			x := s.round(rel.x)
			if s.p.Check(x, feasTol) == nil {
				s.accept(x)
				return nil
			}
			j = s.firstOpen(nd)
			if j < 0 {
				s.unproven = true
				return nil
			}
			return split(nd, j, math.Floor((nd.lb[j]+nd.ub[j])/2), bound, false)
		}
		v := rel.x[j]
		return split(nd, j, math.Floor(v), bound, v-math.Floor(v) >= 0.5)
	default:
		bound := math.Max(nd.bound, s.boxBound(nd))
		if s.prunable(bound) {
			return nil
		}
		j := s.firstOpen(nd)
		if j < 0 {
			if s.hasContinuousOpen(nd) {
				s.unproven = true
				return nil
			}
			x := append([]float64(nil), nd.lb...)
			if s.p.Check(x, feasTol) == nil {
				s.accept(x)
			}
			return nil
		}
		return split(nd, j, math.Floor((nd.lb[j]+nd.ub[j])/2), bound, false)
	}
}

// split branches on x[j] <= at and x[j] >= at+1. The child pushed last is
// explored first.
func split(nd node, j int, at, bound float64, upFirst bool) []node {
	down := node{lb: nd.lb, ub: append([]float64(nil), nd.ub...), bound: bound}
	down.ub[j] = at
	up := node{lb: append([]float64(nil), nd.lb...), ub: nd.ub, bound: bound}
	up.lb[j] = at + 1
	if upFirst {
		return []node{down, up}
	}
	return []node{up, down}
}

func (s *search) mostFractional(x []float64, nd node) int {
	best, bestFrac := -1, intTol
	for j, v := range s.p.vars {
		if !v.Integer || nd.ub[j]-nd.lb[j] < 0.5 {
			continue
		}
		f := x[j] - math.Floor(x[j])
		frac := math.Min(f, 1-f)
		if frac > bestFrac {
			best, bestFrac = j, frac
		}
	}
	return best
}

func (s *search) firstOpen(nd node) int {
	for j, v := range s.p.vars {
		if v.Integer && nd.ub[j]-nd.lb[j] >= 0.5 {
			return j
		}
	}
	return -1
}

func (s *search) hasContinuousOpen(nd node) bool {
	for j, v := range s.p.vars {
		if !v.Integer && nd.ub[j]-nd.lb[j] > feasTol {
			return true
		}
	}
	return false
}

// boxBound is the objective lower bound implied by the variable bounds alone.
func (s *search) boxBound(nd node) float64 {
	b := s.p.objConst
	for j, v := range s.p.vars {
		if v.Cost >= 0 {
			b += v.Cost * nd.lb[j]
		} else {
			b += v.Cost * nd.ub[j]
		}
	}
	return b
}

func (s *search) round(x []float64) []float64 {
	out := append([]float64(nil), x...)
	for j, v := range s.p.vars {
		if v.Integer {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

func (s *search) prunable(bound float64) bool {
	if s.best == nil {
		return false
	}
	return bound >= s.bestObj-1e-9*math.Max(1, math.Abs(s.bestObj))
}

func (s *search) accept(x []float64) {
	obj := s.p.Objective(x)
	if obj >= s.bestObj {
		return
	}
	s.best = append([]float64(nil), x...)
	s.bestObj = obj
	s.emit(EventIncumbent, math.NaN())
}

func (s *search) emit(kind EventKind, bound float64) {
	if s.opts.OnEvent == nil {
		return
	}
	s.opts.OnEvent(Event{Kind: kind, Objective: s.bestObj, Bound: bound, Nodes: s.nodes, Elapsed: time.Since(s.start)})
}

func (s *search) result(status Status) *Result {
	r := &Result{Status: status, Nodes: s.nodes, Duration: time.Since(s.start), Objective: math.NaN(), Bound: math.NaN(), Gap: math.NaN()}
	if s.best != nil {
		r.X = s.best
		r.Objective = s.bestObj
	}
	return r
}

func openBound(stack []node) float64 {
	b := math.Inf(1)
	for _, nd := range stack {
		b = math.Min(b, nd.bound)
	}
	return b
}

// relGap is the relative distance between an incumbent and a lower bound.
func relGap(obj, bound float64) float64 {
	if math.IsInf(bound, 1) {
		return 0
	}
	if math.IsInf(bound, -1) || math.IsNaN(bound) {
		return math.Inf(1)
	}
	d := obj - bound
	if d <= 0 {
		return 0
	}
	return d / math.Max(1e-10, math.Abs(obj))
}
