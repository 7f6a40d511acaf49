package solver

import (
	"fmt"
	"math"
)

// Sense is the relation of a linear constraint to its right-hand side.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Var is a decision variable. Integer variables have their bounds rounded
// inward when the problem is solved.
type Var struct {
	Name    string
	Lower   float64
	Upper   float64
	Integer bool
	Cost    float64
}

// Constraint is a linear row: sum(Terms) Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a minimization MIP. A Problem is not safe for concurrent use;
// concurrent solves need independent instances.
type Problem struct {
	Name      string
	vars      []Var
	cons      []Constraint
	objConst  float64
	incumbent []float64
}

// NewProblem returns an empty problem.
func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// AddVar appends a variable and returns its index.
func (p *Problem) AddVar(name string, lb, ub float64, integer bool, cost float64) int {
	p.vars = append(p.vars, Var{Name: name, Lower: lb, Upper: ub, Integer: integer, Cost: cost})
	return len(p.vars) - 1
}

// AddBinary is a shorthand for a {0,1} variable.
func (p *Problem) AddBinary(name string, cost float64) int {
	return p.AddVar(name, 0, 1, true, cost)
}

// AddConstraint appends a linear constraint and returns its index. Terms on
// the same variable are merged.
func (p *Problem) AddConstraint(name string, terms []Term, sense Sense, rhs float64) int {
	merged := make([]Term, 0, len(terms))
	pos := make(map[int]int, len(terms))
	for _, t := range terms {
		if i, ok := pos[t.Var]; ok {
			merged[i].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(merged)
		merged = append(merged, t)
	}
	p.cons = append(p.cons, Constraint{Name: name, Terms: merged, Sense: sense, RHS: rhs})
	return len(p.cons) - 1
}

// AddObjectiveConstant shifts the objective by c.
func (p *Problem) AddObjectiveConstant(c float64) { p.objConst += c }

// NumVars returns the number of variables.
func (p *Problem) NumVars() int { return len(p.vars) }

// NumConstraints returns the number of constraints.
func (p *Problem) NumConstraints() int { return len(p.cons) }

// Var returns variable i.
func (p *Problem) Var(i int) Var { return p.vars[i] }

// Constraint returns constraint i.
func (p *Problem) Constraint(i int) Constraint { return p.cons[i] }

// Objective evaluates the objective at x.
func (p *Problem) Objective(x []float64) float64 {
	obj := p.objConst
	for j, v := range p.vars {
		obj += v.Cost * x[j]
	}
	return obj
}

// Check returns an error describing the first violated bound, integrality
// requirement or constraint at x.
func (p *Problem) Check(x []float64, tol float64) error {
	if len(x) != len(p.vars) {
		return fmt.Errorf("solution has %d values, problem has %d variables", len(x), len(p.vars))
	}
	for j, v := range p.vars {
		if x[j] < v.Lower-tol || x[j] > v.Upper+tol {
			return fmt.Errorf("variable %s=%g outside [%g, %g]", v.Name, x[j], v.Lower, v.Upper)
		}
		if v.Integer && math.Abs(x[j]-math.Round(x[j])) > tol {
			return fmt.Errorf("variable %s=%g is not integral", v.Name, x[j])
		}
	}
	for _, c := range p.cons {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * x[t.Var]
		}
		if !satisfied(lhs, c.Sense, c.RHS, tol) {
			return fmt.Errorf("constraint %s violated: %g %s %g", c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}

// SetIncumbent seeds the search with a known feasible solution.
func (p *Problem) SetIncumbent(x []float64) error {
	if err := p.Check(x, feasTol); err != nil {
		return fmt.Errorf("incumbent rejected: %w", err)
	}
	p.incumbent = append([]float64(nil), x...)
	return nil
}

func satisfied(lhs float64, s Sense, rhs, tol float64) bool {
	scale := tol * math.Max(1, math.Abs(rhs))
	switch s {
	case LessEq:
		return lhs <= rhs+scale
	case GreaterEq:
		return lhs >= rhs-scale
	default:
		return math.Abs(lhs-rhs) <= scale
	}
}
