package pipegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Observer provides pre/post hooks around a generation run so emitted configs
// can be logged, exported or recorded. BeforeRun is called before the first
// config with the total count. OnConfig is called for each config in order.
// AfterRun is called when the run finishes (success, error or cancellation).
type Observer interface {
	BeforeRun(ctx context.Context, runID string, total int) error
	OnConfig(ctx context.Context, runID string, cfg *PipelineConfig) error
	AfterRun(ctx context.Context, runID string, emitted int, err error) error
}

// RunOptions is optional and used to attach an Observer and optional RunID.
// If RunID is empty, a new UUID is generated for the run.
type RunOptions struct {
	Observer Observer
	RunID    string
}

// Run consumes one run of g, passing every config to the observer. It stops at
// the first observer error or when ctx is done, and returns the number of
// configs handed to OnConfig successfully.
func Run(ctx context.Context, g *Generator, opts *RunOptions) (int, error) {
	if opts == nil || opts.Observer == nil {
		return runConfigs(ctx, g, nil, "")
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	if err := opts.Observer.BeforeRun(ctx, runID, g.Len()); err != nil {
		return 0, fmt.Errorf("before run: %w", err)
	}
	emitted, err := runConfigs(ctx, g, opts.Observer, runID)
	if postErr := opts.Observer.AfterRun(ctx, runID, emitted, err); postErr != nil {
		// Don't mask the run error
		if err == nil {
			err = fmt.Errorf("after run: %w", postErr)
		}
	}
	return emitted, err
}

func runConfigs(ctx context.Context, g *Generator, obs Observer, runID string) (int, error) {
	emitted := 0
	for cfg := range g.Configs() {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}
		if obs != nil {
			if err := obs.OnConfig(ctx, runID, cfg); err != nil {
				return emitted, fmt.Errorf("%s: %w", cfg.Name(), err)
			}
		}
		emitted++
	}
	return emitted, nil
}

// MultiObserver returns an Observer that calls each of obs in order.
// BeforeRun and OnConfig stop at the first error; AfterRun calls every
// observer and joins their errors.
func MultiObserver(obs ...Observer) Observer {
	return multiObserver(obs)
}

type multiObserver []Observer

func (m multiObserver) BeforeRun(ctx context.Context, runID string, total int) error {
	for _, o := range m {
		if err := o.BeforeRun(ctx, runID, total); err != nil {
			return err
		}
	}
	return nil
}

func (m multiObserver) OnConfig(ctx context.Context, runID string, cfg *PipelineConfig) error {
	for _, o := range m {
		if err := o.OnConfig(ctx, runID, cfg); err != nil {
			return err
		}
	}
	return nil
}

func (m multiObserver) AfterRun(ctx context.Context, runID string, emitted int, runErr error) error {
	var errs []error
	for _, o := range m {
		if err := o.AfterRun(ctx, runID, emitted, runErr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
