package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hazz-dev/resmon/internal/check"
	"github.com/hazz-dev/resmon/internal/engine"
)

// executeCheck runs an interactive check of every resource (or a single one
// when name is non-empty) and renders the results as a table. It returns an
// error when the aggregate is degraded so the exit code is usable in scripts.
func executeCheck(out io.Writer, svc *engine.Service, name string) error {
	ctx := context.Background()

	var agg engine.AggregateHealth
	if name != "" {
		result, err := svc.CheckOne(ctx, name)
		if err != nil {
			return fmt.Errorf("checking %q: %w", name, err)
		}
		agg = engine.AggregateHealth{
			Status:  engine.Aggregate([]check.Result{result}),
			Results: []check.Result{result},
		}
	} else {
		agg = svc.CheckAll(ctx)
	}

	renderResults(out, agg)

	if agg.Status != check.StatusHealthy {
		return fmt.Errorf("overall status: %s", agg.Status)
	}
	return nil
}

func renderResults(out io.Writer, agg engine.AggregateHealth) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tSTATUS\tDURATION\tMESSAGE")
	for _, r := range agg.Results {
		dur := "—"
		if r.Duration > 0 {
			dur = r.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ResourceName, r.Status, dur, r.Message)
	}
	fmt.Fprintf(w, "\nOVERALL\t%s\t\t\n", agg.Status)
	w.Flush()
}
