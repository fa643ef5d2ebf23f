package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/dcshock/pipegen/config"
	"github.com/dcshock/pipegen/docstore"
	"github.com/dcshock/pipegen/manifest"
	"github.com/dcshock/pipegen/pipegen"
	"github.com/dcshock/pipegen/search"
	"github.com/tidwall/gjson"
)

var (
	// errUsage reports a flag error already printed by the flag set.
	errUsage = errors.New("usage")
	// errHelp reports that -h was handled.
	errHelp = errors.New("help")
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pipegen "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return errUsage
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// genFlags are the flags shared by generate and count.
type genFlags struct {
	config   string
	save     string
	mode     string
	samples  int
	seed     uint64
	testMode bool
}

func (g *genFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.config, "config", "", "experiment template (YAML or JSON file, or http(s) URL)")
	fs.StringVar(&g.save, "save", "", "root directory for rewritten save/load paths")
	fs.StringVar(&g.mode, "mode", search.ModeRandom, "hyperparameter search mode: random or grid")
	fs.IntVar(&g.samples, "samples", search.DefaultSampleCount, "random mode: samples per searchable component")
	fs.Uint64Var(&g.seed, "seed", search.DefaultSeed, "random mode: sampler seed")
	fs.BoolVar(&g.testMode, "test", false, "place outputs under <save>/tmp")
}

func (g *genFlags) generator(ctx context.Context) (*pipegen.Generator, error) {
	if g.config == "" || g.save == "" {
		return nil, errors.New("-config and -save are required")
	}
	tmpl, err := config.Load(ctx, g.config)
	if err != nil {
		return nil, err
	}
	return pipegen.New(tmpl, pipegen.Options{
		SaveRoot:    g.save,
		Mode:        g.mode,
		SampleCount: g.samples,
		Seed:        g.seed,
		TestMode:    g.testMode,
	})
}

func cmdGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("generate", stderr)
	var (
		gf      genFlags
		outDir  string
		dbPath  string
		runID   string
		verbose bool
	)
	gf.register(fs)
	fs.StringVar(&outDir, "out", "", "write each configuration to <out>/pipe_<n>.json")
	fs.StringVar(&dbPath, "manifest", "", "record the run in this SQLite manifest")
	fs.StringVar(&runID, "run-id", "", "run id (default: random UUID)")
	fs.BoolVar(&verbose, "v", false, "log every generated configuration")
	if err := parse(fs, args); err != nil {
		return err
	}
	logger := newLogger(stderr, verbose)

	gen, err := gf.generator(ctx)
	if err != nil {
		return err
	}
	observers := []pipegen.Observer{pipegen.NewLogObserver(logger)}
	if outDir != "" {
		observers = append(observers, pipegen.NewDirWriter(outDir))
	}
	if dbPath != "" {
		store, err := manifest.Open(ctx, dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		observers = append(observers, manifest.NewObserver(store, gf.config))
	}
	if outDir == "" && dbPath == "" {
		observers = append(observers, &printer{w: stdout})
	}

	var recorder runIDRecorder
	observers = append(observers, &recorder)
	n, err := pipegen.Run(ctx, gen, &pipegen.RunOptions{
		Observer: pipegen.MultiObserver(observers...),
		RunID:    runID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "run %s: %d configurations\n", recorder.id, n)
	return nil
}

func cmdCount(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("count", stderr)
	var gf genFlags
	gf.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	gen, err := gf.generator(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, gen.Len())
	return nil
}

func cmdShow(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("show", stderr)
	var (
		dbPath string
		runID  string
		pipe   int
		path   string
	)
	fs.StringVar(&dbPath, "manifest", "", "SQLite manifest written by generate")
	fs.StringVar(&runID, "run", "", "run id; without it, list runs")
	fs.IntVar(&pipe, "pipe", 0, "pipe number (N in pipe_N); without it, evaluate -path on every config")
	fs.StringVar(&path, "path", "", "gjson path to extract (e.g. chainer.pipe.#.component_name)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if dbPath == "" {
		return errors.New("-manifest is required")
	}
	store, err := manifest.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch {
	case runID == "":
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Fprintf(stdout, "%s\t%s\t%d/%d\t%s\t%s\n",
				r.RunID, r.Status, r.Emitted, r.Total, r.StartedAt.Format("2006-01-02 15:04:05"), r.Label)
		}
	case pipe > 0:
		if path == "" {
			doc, err := store.Config(ctx, runID, pipe-1)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, gjson.GetBytes(doc, "@pretty").Raw)
			return nil
		}
		res, err := store.Query(ctx, runID, pipe-1, path)
		if err != nil {
			return err
		}
		if !res.Exists() {
			return fmt.Errorf("path %q matches nothing in pipe_%d", path, pipe)
		}
		fmt.Fprintln(stdout, res.String())
	case path != "":
		vals, err := store.Values(ctx, runID, path)
		if err != nil {
			return err
		}
		for _, v := range vals {
			fmt.Fprintf(stdout, "pipe_%d\t%s\n", v.PipeIndex+1, v.Result.String())
		}
	default:
		r, err := store.Run(ctx, runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "run:      %s\nstatus:   %s\nemitted:  %d/%d\nlabel:    %s\n", r.RunID, r.Status, r.Emitted, r.Total, r.Label)
		if r.Error != "" {
			fmt.Fprintf(stdout, "error:    %s\n", r.Error)
		}
	}
	return nil
}

func cmdDocs(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("docs", stderr)
	var (
		storePath string
		dataDir   string
		content   string
		id        string
	)
	fs.StringVar(&storePath, "store", "", "SQLite document store (path or http(s) URL)")
	fs.StringVar(&dataDir, "data-dir", "", "download directory for remote stores")
	fs.StringVar(&content, "content", docstore.ContentText, "content column: text or title")
	fs.StringVar(&id, "id", "", "print the content of this document")
	if err := parse(fs, args); err != nil {
		return err
	}
	if storePath == "" {
		return errors.New("-store is required")
	}
	s, err := docstore.Open(ctx, storePath, &docstore.Options{
		DataDir:     dataDir,
		ContentType: content,
		Logger:      newLogger(stderr, false),
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if id == "" {
		fmt.Fprintf(stdout, "%s\t%d documents\n", s.Table(), s.Len())
		return nil
	}
	text, ok, err := s.Content(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("document %q not found", id)
	}
	fmt.Fprintln(stdout, text)
	return nil
}

// printer writes each configuration to w as one JSON line.
type printer struct {
	w io.Writer
}

func (p *printer) BeforeRun(context.Context, string, int) error { return nil }

func (p *printer) OnConfig(_ context.Context, _ string, cfg *pipegen.PipelineConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.w, "%s\n", b)
	return err
}

func (p *printer) AfterRun(context.Context, string, int, error) error { return nil }

// runIDRecorder remembers the run id assigned by pipegen.Run.
type runIDRecorder struct {
	id string
}

func (r *runIDRecorder) BeforeRun(_ context.Context, runID string, _ int) error {
	r.id = runID
	return nil
}

func (r *runIDRecorder) OnConfig(context.Context, string, *pipegen.PipelineConfig) error { return nil }

func (r *runIDRecorder) AfterRun(context.Context, string, int, error) error { return nil }
