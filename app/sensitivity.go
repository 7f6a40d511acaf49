package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/repairsched/core/optimize"
	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/infra/dataset"
)

// Variant is one weight set of a sensitivity analysis.
type Variant struct {
	Name    string
	Weights params.Weights
}

// VariantResult is the outcome of one variant. Err is set when the variant
// has no schedule.
type VariantResult struct {
	Variant    Variant
	Status     string
	Objective  float64
	Gap        float64
	Components optimize.Components
	Err        error
}

// ParseVary expands "component=v1,v2,..." into one variant per value, each
// starting from base with the named weight replaced.
func ParseVary(base params.Weights, spec string) ([]Variant, error) {
	name, list, ok := strings.Cut(spec, "=")
	if !ok || list == "" {
		return nil, fmt.Errorf("vary %q: expected component=v1,v2", spec)
	}
	name = strings.TrimSpace(name)
	var out []Variant
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("vary %s: %w", name, err)
		}
		w := base
		if err := setWeight(&w, name, v); err != nil {
			return nil, err
		}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		out = append(out, Variant{Name: fmt.Sprintf("%s=%g", name, v), Weights: w})
	}
	return out, nil
}

func setWeight(w *params.Weights, name string, v float64) error {
	switch name {
	case "lead_time":
		w.LeadTime = v
	case "shipping_cost":
		w.ShippingCost = v
	case "quality_drop":
		w.QualityDrop = v
	case "repair_cost":
		w.RepairCost = v
	case "emissions":
		w.Emissions = v
	default:
		return fmt.Errorf("unknown weight %q", name)
	}
	return nil
}

// Sensitivity loads the dataset once and solves an independent model per
// variant concurrently. Results keep the order of variants. Infeasible
// variants are reported in their result; any other failure aborts the
// analysis.
func (s *Service) Sensitivity(ctx context.Context, variants []Variant) ([]VariantResult, error) {
	if len(variants) == 0 {
		return nil, errors.New("no variant to solve")
	}
	ds, err := dataset.Load(s.cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	results := make([]VariantResult, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, v := range variants {
		g.Go(func() error {
			mcfg := s.cfg.Model
			mcfg.Weights = v.Weights
			res, err := s.solve(gctx, "sensitivity/"+v.Name, ds, mcfg)
			results[i] = VariantResult{Variant: v}
			switch status := failureStatus(err); {
			case err == nil:
			case status == StatusInfeasible || status == StatusNoSolution:
				results[i].Status = status
				results[i].Err = err
				return nil
			default:
				return fmt.Errorf("variant %s: %w", v.Name, err)
			}
			sol := res.Solution
			results[i].Status = sol.Status.String()
			results[i].Objective = sol.Objective
			results[i].Gap = sol.Gap
			results[i].Components = sol.Components
			s.log.Infof("variant %s: status=%s objective=%.4f", v.Name, sol.Status, sol.Objective)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
