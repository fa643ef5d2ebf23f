package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dcshock/pipegen/pipegen"
)

// Observer persists a generation run and its configurations to a Store.
type Observer struct {
	store *Store
	label string
	now   func() time.Time
}

// NewObserver returns an Observer writing to store. label is free text stored
// with the run (e.g. the template path).
func NewObserver(store *Store, label string) *Observer {
	return &Observer{store: store, label: label, now: time.Now}
}

// BeforeRun implements pipegen.Observer. Inserts or resets the generation_run row with status running.
func (o *Observer) BeforeRun(ctx context.Context, runID string, total int) error {
	return o.store.BeginRun(ctx, runID, o.label, total, o.now())
}

// OnConfig implements pipegen.Observer. Inserts one generated_config row.
func (o *Observer) OnConfig(ctx context.Context, runID string, cfg *pipegen.PipelineConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", cfg.Name(), err)
	}
	return o.store.SaveConfig(ctx, runID, cfg.Index, cfg.DatasetName, cfg.ComponentNames(), doc)
}

// AfterRun implements pipegen.Observer. Updates generation_run with status, emitted count and error.
func (o *Observer) AfterRun(ctx context.Context, runID string, emitted int, err error) error {
	status := StatusSuccess
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = StatusCanceled
		} else {
			status = StatusFailed
		}
	}
	// The run context may already be done; the final status must still land.
	return o.store.FinishRun(context.WithoutCancel(ctx), runID, status, emitted, err, o.now())
}

var _ pipegen.Observer = (*Observer)(nil)
