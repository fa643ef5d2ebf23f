package pipegen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DirWriter is an Observer that writes every config to <dir>/pipe_<n+1>.json
// as indented JSON.
type DirWriter struct {
	dir string
}

// NewDirWriter returns a DirWriter for dir. The directory is created at BeforeRun.
func NewDirWriter(dir string) *DirWriter {
	return &DirWriter{dir: dir}
}

// Path returns the file cfg is written to.
func (w *DirWriter) Path(cfg *PipelineConfig) string {
	return filepath.Join(w.dir, cfg.Name()+".json")
}

// BeforeRun implements Observer.
func (w *DirWriter) BeforeRun(ctx context.Context, runID string, total int) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("dir writer: %w", err)
	}
	return nil
}

// OnConfig implements Observer.
func (w *DirWriter) OnConfig(ctx context.Context, runID string, cfg *PipelineConfig) error {
	f, err := os.Create(w.Path(cfg))
	if err != nil {
		return fmt.Errorf("dir writer: %w", err)
	}
	if err := encodePretty(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("dir writer: encode %s: %w", cfg.Name(), err)
	}
	return f.Close()
}

// AfterRun implements Observer.
func (w *DirWriter) AfterRun(ctx context.Context, runID string, emitted int, err error) error {
	return nil
}

func encodePretty(f *os.File, v any) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var _ Observer = (*DirWriter)(nil)
