package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dcshock/pipegen/httpfetch"
	"gopkg.in/yaml.v3"
)

// Top-level template keys.
const (
	KeyDatasetReader   = "dataset_reader"
	KeyDatasetIterator = "dataset_iterator"
	KeyChainer         = "chainer"
	KeyPipe            = "pipe"
	KeyTrain           = "train"
	KeyMetadata        = "metadata"
	KeyDataPath        = "data_path"
	KeyBatchSize       = "batch_size"
)

// Template is a parsed experiment description: one or more dataset readers,
// a single dataset iterator, a chainer whose pipe stages hold candidate
// components, and a train block.
type Template struct {
	DatasetReaders  []*Object
	DatasetIterator *Object
	Chainer         *Chainer
	Train           *Object
	Metadata        *Object // optional
}

// Chainer is the chainer section. Raw holds every key as written (in, out,
// in_y, pipe, ...); Pipe is the decoded pipe.
type Chainer struct {
	Raw  *Object
	Pipe []Stage
}

// UnmarshalYAML lets a Template be decoded directly with yaml.Unmarshal.
func (t *Template) UnmarshalYAML(value *yaml.Node) error {
	var root Object
	if err := root.UnmarshalYAML(value); err != nil {
		return configErrorf("template: %v", err)
	}
	parsed, err := FromObject(&root)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// Parse parses a YAML or JSON template.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		if IsConfigError(err) {
			return nil, err
		}
		return nil, configErrorf("parse template: %v", err)
	}
	if t.Chainer == nil {
		return nil, configErrorf("template has no %q component; structure search cannot start without it", KeyChainer)
	}
	return &t, nil
}

// Load reads a template from a local path (with ~ expansion) or an http(s) URL.
func Load(ctx context.Context, path string) (*Template, error) {
	var data []byte
	if isRemote(path) {
		body, err := httpfetch.Get(ctx, nil, path)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
		data = body
	} else {
		p, err := ExpandPath(path)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
		data, err = os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return t, nil
}

// FromObject builds a Template from an already decoded document. Shape errors
// (a missing chainer, a list of dataset iterators) are reported here; see
// Validate for the remaining checks.
func FromObject(root *Object) (*Template, error) {
	if !root.Has(KeyChainer) {
		return nil, configErrorf("template has no %q component; structure search cannot start without it", KeyChainer)
	}
	t := &Template{}

	switch r := lookup(root, KeyDatasetReader).(type) {
	case nil:
	case *Object:
		t.DatasetReaders = []*Object{r}
	case []any:
		for i, e := range r {
			obj, ok := e.(*Object)
			if !ok {
				return nil, configErrorf("%s %d: expected a mapping, got %s", KeyDatasetReader, i+1, kindOf(e))
			}
			t.DatasetReaders = append(t.DatasetReaders, obj)
		}
	default:
		return nil, configErrorf("%s: expected a mapping or a list, got %s", KeyDatasetReader, kindOf(r))
	}

	switch it := lookup(root, KeyDatasetIterator).(type) {
	case nil:
	case *Object:
		t.DatasetIterator = it
	case []any:
		return nil, configErrorf("%s must be a single mapping for the whole experiment, got a list", KeyDatasetIterator)
	default:
		return nil, configErrorf("%s: expected a mapping, got %s", KeyDatasetIterator, kindOf(it))
	}

	chainer, ok := lookup(root, KeyChainer).(*Object)
	if !ok {
		return nil, configErrorf("%s: expected a mapping", KeyChainer)
	}
	c, err := decodeChainer(chainer)
	if err != nil {
		return nil, err
	}
	t.Chainer = c

	if v := lookup(root, KeyTrain); v != nil {
		train, ok := v.(*Object)
		if !ok {
			return nil, configErrorf("%s: expected a mapping, got %s", KeyTrain, kindOf(v))
		}
		t.Train = train
	}
	if v := lookup(root, KeyMetadata); v != nil {
		meta, ok := v.(*Object)
		if !ok {
			return nil, configErrorf("%s: expected a mapping, got %s", KeyMetadata, kindOf(v))
		}
		t.Metadata = meta
	}
	return t, nil
}

func lookup(o *Object, key string) any {
	v, _ := o.Get(key)
	return v
}

func decodeChainer(obj *Object) (*Chainer, error) {
	c := &Chainer{Raw: obj}
	raw, ok := obj.Get(KeyPipe)
	if !ok {
		return nil, configErrorf("%s has no %q", KeyChainer, KeyPipe)
	}
	stages, ok := raw.([]any)
	if !ok {
		return nil, configErrorf("%s.%s: expected a list of stages, got %s", KeyChainer, KeyPipe, kindOf(raw))
	}
	for i, s := range stages {
		stage, err := decodeStage(s)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i+1, err)
		}
		c.Pipe = append(c.Pipe, stage)
	}
	return c, nil
}

// decodeStage accepts a list of candidates (null entries skip the stage) or a
// bare mapping, which is a stage with a single candidate.
func decodeStage(v any) (Stage, error) {
	switch t := v.(type) {
	case *Object:
		comp, err := NewComponent(t)
		if err != nil {
			return Stage{}, err
		}
		return Stage{Candidates: []Candidate{Use(comp)}}, nil
	case []any:
		if len(t) == 0 {
			return Stage{}, configErrorf("no candidates; write [null] for a stage that may be left out")
		}
		var s Stage
		for j, e := range t {
			switch ce := e.(type) {
			case nil:
				s.Candidates = append(s.Candidates, Skip())
			case *Object:
				comp, err := NewComponent(ce)
				if err != nil {
					return Stage{}, fmt.Errorf("candidate %d: %w", j+1, err)
				}
				s.Candidates = append(s.Candidates, Use(comp))
			default:
				return Stage{}, configErrorf("candidate %d: expected a mapping or null, got %s", j+1, kindOf(e))
			}
		}
		return s, nil
	default:
		return Stage{}, configErrorf("expected a list of candidates, got %s", kindOf(v))
	}
}

// Clone returns a deep copy of t.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := &Template{
		DatasetIterator: t.DatasetIterator.Clone(),
		Train:           t.Train.Clone(),
		Metadata:        t.Metadata.Clone(),
	}
	for _, r := range t.DatasetReaders {
		out.DatasetReaders = append(out.DatasetReaders, r.Clone())
	}
	if t.Chainer != nil {
		out.Chainer = &Chainer{Raw: t.Chainer.Raw.Clone()}
		for _, s := range t.Chainer.Pipe {
			stage := Stage{Candidates: make([]Candidate, len(s.Candidates))}
			for i, c := range s.Candidates {
				if comp, ok := c.Component(); ok {
					stage.Candidates[i] = Use(comp.Clone())
				}
			}
			out.Chainer.Pipe = append(out.Chainer.Pipe, stage)
		}
	}
	return out
}

// Validate checks the required sections and that every present candidate
// carries component_name and every reader a data_path whose last segment
// names the dataset.
func (t *Template) Validate() error {
	if t.Chainer == nil {
		return configErrorf("template has no %q component; structure search cannot start without it", KeyChainer)
	}
	if t.DatasetIterator == nil {
		return configErrorf("template has no %q", KeyDatasetIterator)
	}
	if len(t.DatasetReaders) == 0 {
		return configErrorf("template has no %q", KeyDatasetReader)
	}
	if t.Train == nil {
		return configErrorf("template has no %q", KeyTrain)
	}
	if err := t.ValidateComponents(); err != nil {
		return err
	}
	for i, r := range t.DatasetReaders {
		p, ok := r.String(KeyDataPath)
		if !ok {
			return configErrorf("%s %d has no string %q", KeyDatasetReader, i+1, KeyDataPath)
		}
		switch LastSegment(p) {
		case "", ".", "..":
			return configErrorf("%s %d: %s %q does not end in a dataset name", KeyDatasetReader, i+1, KeyDataPath, p)
		}
	}
	return nil
}

// ValidateComponents checks that every present candidate of every stage carries
// component_name. Positions in the error are 1-based.
func (t *Template) ValidateComponents() error {
	if t.Chainer == nil {
		return nil
	}
	for i, stage := range t.Chainer.Pipe {
		for j, cand := range stage.Candidates {
			comp, ok := cand.Component()
			if !ok {
				continue
			}
			if !comp.HasName() {
				return configErrorf("pipeline element at stage %d, candidate %d has no %q key", i+1, j+1, KeyComponentName)
			}
		}
	}
	return nil
}

// ExpandPath expands a leading ~ to the home directory and makes p absolute.
func ExpandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", p, err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return abs, nil
}

// LastSegment returns the part of p after its last '/'.
func LastSegment(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
