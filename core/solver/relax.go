package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

type relaxStatus int

const (
	relaxOptimal relaxStatus = iota
	relaxInfeasible
	// relaxFailed means the simplex gave no usable answer (singular basis,
	// Bland failure, shape the solver cannot take). The node stays open.
	relaxFailed
)

type relaxation struct {
	status relaxStatus
	x      []float64
	obj    float64
	err    error
}

// row is a constraint restricted to the free variables of a node, written
// as sum(coef*y) {<=,=} rhs with y = x - lb >= 0.
type row struct {
	cols  []int
	coefs []float64
	eq    bool
	rhs   float64
}

// relax solves the LP relaxation of the problem within the node bounds using
// gonum's simplex. Fixed variables are substituted out and the remaining
// ones shifted to their lower bound so that the standard form needs no
// lower-bound rows.
//
//gocyclo:ignore
func relax(p *Problem, lb, ub []float64) relaxation {
	n := len(p.vars)
	x := make([]float64, n)
	copy(x, lb)

	free := make([]int, 0, n)
	col := make([]int, n)
	for j := range p.vars {
		col[j] = -1
		if ub[j]-lb[j] > feasTol {
			col[j] = len(free)
			free = append(free, j)
		}
	}

	rows := make([]row, 0, len(p.cons))
	for _, c := range p.cons {
		r := row{rhs: c.RHS, eq: c.Sense == Equal}
		sign := 1.0
		if c.Sense == GreaterEq {
			sign = -1
			r.rhs = -r.rhs
		}
		for _, t := range c.Terms {
			r.rhs -= sign * t.Coef * lb[t.Var]
			if col[t.Var] >= 0 && t.Coef != 0 {
				r.cols = append(r.cols, col[t.Var])
				r.coefs = append(r.coefs, sign*t.Coef)
			}
		}
		if len(r.cols) == 0 {
			if r.eq && math.Abs(r.rhs) > feasTol*math.Max(1, math.Abs(c.RHS)) {
				return relaxation{status: relaxInfeasible}
			}
			if !r.eq && r.rhs < -feasTol*math.Max(1, math.Abs(c.RHS)) {
				return relaxation{status: relaxInfeasible}
			}
			continue
		}
		rows = append(rows, r)
	}

	// Upper bounds already implied by a row with non-negative coefficients do
	// not need a row of their own.
	nf := len(free)
	span := make([]float64, nf)
	implied := make([]bool, nf)
	appears := make([]bool, nf)
	for k, j := range free {
		span[k] = ub[j] - lb[j]
	}
	for _, r := range rows {
		nonNeg := true
		for _, a := range r.coefs {
			if a < 0 {
				nonNeg = false
				break
			}
		}
		for i, k := range r.cols {
			appears[k] = true
			if nonNeg && r.rhs >= 0 && r.coefs[i] > 0 && r.rhs/r.coefs[i] <= span[k]+feasTol {
				implied[k] = true
			}
		}
	}

	cost := make([]float64, 0, nf)
	keep := make([]int, 0, nf)
	remap := make([]int, nf)
	for k, j := range free {
		remap[k] = -1
		c := p.vars[j].Cost
		if !appears[k] && math.IsInf(span[k], 1) {
			if c < 0 {
				return relaxation{status: relaxFailed, err: lp.ErrUnbounded}
			}
			continue
		}
		remap[k] = len(keep)
		keep = append(keep, j)
		cost = append(cost, c)
	}
	for k := range free {
		if remap[k] < 0 || implied[k] || math.IsInf(span[k], 1) {
			continue
		}
		rows = append(rows, row{cols: []int{k}, coefs: []float64{1}, rhs: span[k]})
	}

	var nIneq, nEq int
	for _, r := range rows {
		if r.eq {
			nEq++
		} else {
			nIneq++
		}
	}
	m := nIneq + nEq
	nk := len(keep)
	if m == 0 {
		return finish(p, x, lb, keep, make([]float64, nk))
	}
	if nk < nEq {
		return relaxation{status: relaxFailed, err: errors.New("more equality rows than free variables")}
	}

	cols := nk + nIneq
	a := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	c := make([]float64, cols)
	copy(c, cost)
	slack := nk
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for idx, k := range r.cols {
			if remap[k] < 0 {
				continue
			}
			a.Set(i, remap[k], a.At(i, remap[k])+sign*r.coefs[idx])
		}
		if !r.eq {
			a.Set(i, slack, sign)
			slack++
		}
		b[i] = sign * r.rhs
	}

	_, y, err := lp.Simplex(c, a, b, simplexTol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return relaxation{status: relaxInfeasible}
	case err != nil:
		return relaxation{status: relaxFailed, err: err}
	}
	return finish(p, x, lb, keep, y[:nk])
}

func finish(p *Problem, x, lb []float64, keep []int, y []float64) relaxation {
	for i, j := range keep {
		x[j] = lb[j] + math.Max(0, y[i])
	}
	return relaxation{status: relaxOptimal, x: x, obj: p.Objective(x)}
}
