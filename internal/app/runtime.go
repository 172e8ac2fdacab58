package app

import (
	"context"
	"fmt"

	"query-engine/internal/engine"
	"query-engine/internal/logging"
)

// Report is the printable outcome of one request.
type Report struct {
	Plan    engine.Summary `json:"plan"`
	Results []ResultEntry  `json:"results,omitempty"`
}

// ResultEntry is the printable outcome of one mutation root field.
type ResultEntry struct {
	Key     string `json:"key"`
	ID      string `json:"id,omitempty"`
	Count   int    `json:"count,omitempty"`
	Created bool   `json:"created,omitempty"`
}

// Run plans req and, when execute is set, runs its writes. It requires Init
// to have completed.
func (a *App) Run(ctx context.Context, req engine.Request, execute bool) (*Report, error) {
	a.stateMu.Lock()
	eng, initialized := a.engine, a.initialized
	a.stateMu.Unlock()
	if !initialized {
		return nil, fmt.Errorf("app is not initialized")
	}

	if timeout := a.cfg.Engine.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx = logging.WithLogger(ctx, a.logger)

	if !execute {
		plan, err := eng.Plan(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Report{Plan: engine.Describe(plan)}, nil
	}

	resp, err := eng.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	report := &Report{Plan: engine.Describe(resp.Plan)}
	for _, r := range resp.Results {
		entry := ResultEntry{Key: r.Key, Count: r.Count, Created: r.Created}
		if r.ID != nil {
			entry.ID = r.ID.String()
		}
		report.Results = append(report.Results, entry)
	}
	return report, nil
}
