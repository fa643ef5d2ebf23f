package manifest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dcshock/pipegen/config"
	"github.com/dcshock/pipegen/pipegen"
	"github.com/dcshock/pipegen/search"
)

const gridTemplate = `{
  "dataset_reader": {"data_path": "data/faq"},
  "dataset_iterator": {"name": "basic"},
  "chainer": {"pipe": [
    [{"component_name": "tfidf", "save_path": "m/tfidf.pkl"}, null],
    [{"component_name": "logreg", "main": true, "C": {"grid_search": [0.5, 2]}, "save_path": "m/lr.pkl"}]
  ]},
  "train": {"epochs": 1}
}`

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newGenerator(t *testing.T) *pipegen.Generator {
	t.Helper()
	tmpl, err := config.Parse([]byte(gridTemplate))
	if err != nil {
		t.Fatal(err)
	}
	g, err := pipegen.New(tmpl, pipegen.Options{SaveRoot: "/exp", Mode: search.ModeGrid})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestObserver_RecordsRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	g := newGenerator(t)
	n, err := pipegen.Run(ctx, g, &pipegen.RunOptions{Observer: NewObserver(s, "grid.json"), RunID: "run-1"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("emitted: got %d, want 4", n)
	}

	run, err := s.Run(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusSuccess || run.Total != 4 || run.Emitted != 4 || run.Label != "grid.json" {
		t.Errorf("run: %+v", run)
	}
	if run.FinishedAt.IsZero() || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("timestamps: started %v finished %v", run.StartedAt, run.FinishedAt)
	}

	res, err := s.Query(ctx, "run-1", 2, "chainer.pipe.0.C")
	if err != nil {
		t.Fatal(err)
	}
	if res.Float() != 0.5 {
		t.Errorf("pipe_3 C: got %s", res.Raw)
	}
	res, err = s.Query(ctx, "run-1", 0, "chainer.pipe.#.component_name")
	if err != nil {
		t.Fatal(err)
	}
	if res.Raw != `["tfidf","logreg"]` {
		t.Errorf("pipe_1 components: %s", res.Raw)
	}
	res, err = s.Query(ctx, "run-1", 0, "chainer.nothing")
	if err != nil || res.Exists() {
		t.Errorf("missing path: exists=%v err=%v", res.Exists(), err)
	}
}

func TestStore_Values(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if _, err := pipegen.Run(ctx, newGenerator(t), &pipegen.RunOptions{Observer: NewObserver(s, ""), RunID: "r"}); err != nil {
		t.Fatal(err)
	}
	vals, err := s.Values(ctx, "r", `chainer.pipe.#(component_name=="logreg").save_path`)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 4 {
		t.Fatalf("values: got %d", len(vals))
	}
	for i, v := range vals {
		want := filepath.Join("/exp", "faq", fmt.Sprintf("pipe_%d", i+1), "lr.pkl")
		if v.PipeIndex != i || v.Result.String() != want {
			t.Errorf("value %d: index %d, %q, want %q", i, v.PipeIndex, v.Result.String(), want)
		}
	}
}

func TestObserver_FailedAndCanceled(t *testing.T) {
	s := openStore(t)
	boom := errors.New("boom")

	failing := pipegen.MultiObserver(NewObserver(s, ""), failAt{index: 1, err: boom})
	if _, err := pipegen.Run(context.Background(), newGenerator(t), &pipegen.RunOptions{Observer: failing, RunID: "bad"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	run, err := s.Run(context.Background(), "bad")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusFailed || run.Emitted != 1 || run.Error == "" {
		t.Errorf("failed run: %+v", run)
	}

	ctx, cancel := context.WithCancel(context.Background())
	canceling := pipegen.MultiObserver(NewObserver(s, ""), cancelAt{cancel: cancel})
	if _, err := pipegen.Run(ctx, newGenerator(t), &pipegen.RunOptions{Observer: canceling, RunID: "stop"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	run, err = s.Run(context.Background(), "stop")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusCanceled {
		t.Errorf("canceled run: %+v", run)
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	if _, err := s.Run(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Run: %v", err)
	}
	if _, err := s.Config(ctx, "nope", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("Config: %v", err)
	}
	if err := s.FinishRun(ctx, "nope", StatusSuccess, 0, nil, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishRun: %v", err)
	}
}

func TestStore_RunsAndRerun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.BeginRun(ctx, "a", "", 3, t0); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginRun(ctx, "b", "", 5, t0.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveConfig(ctx, "a", 0, "ds", []string{"x"}, []byte("{not json")); err == nil {
		t.Error("expected invalid JSON to be rejected")
	}
	// Beginning the same run again resets it.
	if err := s.FinishRun(ctx, "a", StatusFailed, 2, errors.New("x"), t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginRun(ctx, "a", "again", 3, t0.Add(2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "a" || runs[1].RunID != "b" {
		t.Fatalf("runs: %+v", runs)
	}
	if runs[0].Status != StatusRunning || runs[0].Error != "" || !runs[0].FinishedAt.IsZero() || runs[0].Label != "again" {
		t.Errorf("rerun not reset: %+v", runs[0])
	}
}

// failAt fails OnConfig at one index.
type failAt struct {
	index int
	err   error
}

func (f failAt) BeforeRun(context.Context, string, int) error { return nil }
func (f failAt) OnConfig(_ context.Context, _ string, cfg *pipegen.PipelineConfig) error {
	if cfg.Index == f.index {
		return f.err
	}
	return nil
}
func (f failAt) AfterRun(context.Context, string, int, error) error { return nil }

// cancelAt cancels the run context after the first config.
type cancelAt struct {
	cancel context.CancelFunc
}

func (c cancelAt) BeforeRun(context.Context, string, int) error { return nil }
func (c cancelAt) OnConfig(context.Context, string, *pipegen.PipelineConfig) error {
	c.cancel()
	return nil
}
func (c cancelAt) AfterRun(context.Context, string, int, error) error { return nil }
