package config

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Keys with special meaning inside a component descriptor.
const (
	KeyComponentName = "component_name"
	KeyMain          = "main"
	KeySavePath      = "save_path"
	KeyLoadPath      = "load_path"

	// KeyGridSearch flags a parameter for grid search: {"grid_search": [v1, v2, ...]}.
	KeyGridSearch = "grid_search"
	// RandomPrefix prefixes every random search directive key.
	RandomPrefix = "random_"
)

// ParamValue is the value of one component parameter: Literal, RandomSearch or GridSearch.
type ParamValue interface {
	isParamValue()
}

// Literal is a concrete parameter value.
type Literal struct {
	Value any
}

// GridSearch lists the values a parameter takes under grid search.
type GridSearch struct {
	Values []any
	raw    *Object
}

// RandomKind is the sampling rule of a RandomSearch directive.
type RandomKind int

const (
	// RandomBool samples true or false.
	RandomBool RandomKind = iota + 1
	// RandomRange samples a number in [Low, High].
	RandomRange
	// RandomChoice samples one of Choices.
	RandomChoice
)

// RandomSearch describes how to sample a parameter under random search.
//
//	{"random_range": [0.0001, 0.1], "scale": "log"}
//	{"random_range": [1, 10], "discrete": true}
//	{"random_choice": ["adam", "sgd"]}
//	{"random_bool": true}
type RandomSearch struct {
	Kind      RandomKind
	Low, High float64
	Log       bool // sample uniformly in log space
	Discrete  bool // round the sample to an integer
	Choices   []any
	raw       *Object
}

func (Literal) isParamValue()      {}
func (GridSearch) isParamValue()   {}
func (RandomSearch) isParamValue() {}

// Param is one named parameter of a component.
type Param struct {
	Key   string
	Value ParamValue
}

// Component is a descriptor of one concrete pipeline element. Parameters keep
// their document order.
type Component struct {
	params []Param
}

// NewComponent builds a component from an object, decoding search directives.
func NewComponent(obj *Object) (Component, error) {
	var c Component
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		pv, err := decodeParam(v)
		if err != nil {
			return Component{}, fmt.Errorf("parameter %q: %w", k, err)
		}
		c.params = append(c.params, Param{Key: k, Value: pv})
	}
	return c, nil
}

// MustComponent is NewComponent for literals in code and tests. It panics on error.
func MustComponent(obj *Object) Component {
	c, err := NewComponent(obj)
	if err != nil {
		panic(err)
	}
	return c
}

// Params returns the parameters in order. The slice is a copy; values are shared.
func (c Component) Params() []Param {
	return append([]Param(nil), c.params...)
}

// Len returns the number of parameters.
func (c Component) Len() int { return len(c.params) }

// Get returns the value of key.
func (c Component) Get(key string) (ParamValue, bool) {
	for _, p := range c.params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Literal returns the concrete value of key. Search directives are not literals.
func (c Component) Literal(key string) (any, bool) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	lit, ok := v.(Literal)
	if !ok {
		return nil, false
	}
	return lit.Value, true
}

// Set replaces the value of key, appending it when absent.
func (c *Component) Set(key string, v ParamValue) {
	for i := range c.params {
		if c.params[i].Key == key {
			c.params[i].Value = v
			return
		}
	}
	c.params = append(c.params, Param{Key: key, Value: v})
}

// SetLiteral is Set(key, Literal{v}).
func (c *Component) SetLiteral(key string, v any) { c.Set(key, Literal{Value: v}) }

// Name returns component_name, if it is a string.
func (c Component) Name() string {
	s, _ := c.stringParam(KeyComponentName)
	return s
}

// HasName reports whether the component carries a component_name key.
func (c Component) HasName() bool {
	_, ok := c.Get(KeyComponentName)
	return ok
}

// Main reports whether the component is flagged "main": true.
func (c Component) Main() bool {
	v, ok := c.Literal(KeyMain)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// SavePath returns save_path when it is a string.
func (c Component) SavePath() (string, bool) { return c.stringParam(KeySavePath) }

// LoadPath returns load_path when it is a string.
func (c Component) LoadPath() (string, bool) { return c.stringParam(KeyLoadPath) }

func (c Component) stringParam(key string) (string, bool) {
	v, ok := c.Literal(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Searchable reports whether any top-level parameter is a random search directive.
func (c Component) Searchable() bool {
	for _, p := range c.params {
		if _, ok := p.Value.(RandomSearch); ok {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c.
func (c Component) Clone() Component {
	out := Component{params: make([]Param, len(c.params))}
	for i, p := range c.params {
		out.params[i] = Param{Key: p.Key, Value: cloneParam(p.Value)}
	}
	return out
}

func cloneParam(v ParamValue) ParamValue {
	switch t := v.(type) {
	case Literal:
		return Literal{Value: CloneValue(t.Value)}
	case GridSearch:
		vals, _ := CloneValue(t.Values).([]any)
		return GridSearch{Values: vals, raw: t.raw.Clone()}
	case RandomSearch:
		choices, _ := CloneValue(t.Choices).([]any)
		t.Choices = choices
		t.raw = t.raw.Clone()
		return t
	}
	return v
}

// Object converts the component back to a plain object. Unresolved search
// directives are written as they appeared in the template.
func (c Component) Object() *Object {
	o := NewObject()
	for _, p := range c.params {
		switch t := p.Value.(type) {
		case Literal:
			o.Set(p.Key, CloneValue(t.Value))
		case GridSearch:
			o.Set(p.Key, t.directive())
		case RandomSearch:
			o.Set(p.Key, t.directive())
		}
	}
	return o
}

// MarshalJSON writes the component as an ordered JSON object.
func (c Component) MarshalJSON() ([]byte, error) {
	return c.Object().MarshalJSON()
}

// String renders the component as JSON, for logs and test failures.
func (c Component) String() string {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<component: %v>", err)
	}
	return string(b)
}

func (g GridSearch) directive() *Object {
	if g.raw != nil {
		return g.raw.Clone()
	}
	vals, _ := CloneValue(g.Values).([]any)
	return ObjectOf(KeyGridSearch, vals)
}

func (r RandomSearch) directive() *Object {
	if r.raw != nil {
		return r.raw.Clone()
	}
	o := NewObject()
	switch r.Kind {
	case RandomBool:
		o.Set(RandomPrefix+"bool", true)
	case RandomRange:
		o.Set(RandomPrefix+"range", []any{r.Low, r.High})
		if r.Log {
			o.Set("scale", "log")
		}
		if r.Discrete {
			o.Set("discrete", true)
		}
	case RandomChoice:
		choices, _ := CloneValue(r.Choices).([]any)
		o.Set(RandomPrefix+"choice", choices)
	}
	return o
}

func decodeParam(v any) (ParamValue, error) {
	obj, ok := v.(*Object)
	if !ok {
		return Literal{Value: v}, nil
	}
	if g, ok := obj.Get(KeyGridSearch); ok {
		vals, ok := g.([]any)
		if !ok || len(vals) == 0 {
			return nil, configErrorf("%s must be a non-empty list, got %s", KeyGridSearch, kindOf(g))
		}
		return GridSearch{Values: vals, raw: obj}, nil
	}
	var random bool
	for _, k := range obj.Keys() {
		if strings.HasPrefix(k, RandomPrefix) {
			random = true
			break
		}
	}
	if !random {
		return Literal{Value: obj}, nil
	}
	r, err := decodeRandom(obj)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func decodeRandom(obj *Object) (RandomSearch, error) {
	for _, k := range obj.Keys() {
		switch k {
		case RandomPrefix + "bool", RandomPrefix + "range", RandomPrefix + "choice":
		default:
			if strings.HasPrefix(k, RandomPrefix) {
				return RandomSearch{}, configErrorf("unsupported random search directive %q", k)
			}
		}
	}
	r := RandomSearch{raw: obj}
	if b, ok := obj.Get(RandomPrefix + "bool"); ok {
		if flag, _ := b.(bool); flag {
			r.Kind = RandomBool
			return r, nil
		}
	}
	if rng, ok := obj.Get(RandomPrefix + "range"); ok {
		bounds, ok := rng.([]any)
		if !ok || len(bounds) != 2 {
			return RandomSearch{}, configErrorf("%srange must be a [low, high] pair", RandomPrefix)
		}
		lo, okLo := toFloat(bounds[0])
		hi, okHi := toFloat(bounds[1])
		if !okLo || !okHi {
			return RandomSearch{}, configErrorf("%srange bounds must be numbers", RandomPrefix)
		}
		if lo > hi {
			return RandomSearch{}, configErrorf("%srange low %v is greater than high %v", RandomPrefix, lo, hi)
		}
		r.Kind, r.Low, r.High = RandomRange, lo, hi
		if scale, ok := obj.String("scale"); ok && scale == "log" {
			if lo <= 0 {
				return RandomSearch{}, configErrorf("%srange with log scale needs positive bounds", RandomPrefix)
			}
			r.Log = true
		}
		if d, ok := obj.Get("discrete"); ok {
			r.Discrete, _ = d.(bool)
		}
		return r, nil
	}
	if ch, ok := obj.Get(RandomPrefix + "choice"); ok {
		choices, ok := ch.([]any)
		if !ok || len(choices) == 0 {
			return RandomSearch{}, configErrorf("%schoice must be a non-empty list", RandomPrefix)
		}
		r.Kind, r.Choices = RandomChoice, choices
		return r, nil
	}
	return RandomSearch{}, configErrorf("random search directive has no sampling rule")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	}
	return 0, false
}

// Candidate is one option for a stage: either a component or an explicit skip.
type Candidate struct {
	component Component
	present   bool
}

// Use returns a candidate holding c.
func Use(c Component) Candidate { return Candidate{component: c, present: true} }

// Skip returns a candidate that leaves its stage out of the pipeline.
func Skip() Candidate { return Candidate{} }

// Component returns the candidate's component, or false for a skip.
func (c Candidate) Component() (Component, bool) { return c.component, c.present }

// Skipped reports whether the candidate leaves its stage out.
func (c Candidate) Skipped() bool { return !c.present }

// Stage is one position of chainer.pipe with its mutually exclusive candidates.
type Stage struct {
	Candidates []Candidate
}
