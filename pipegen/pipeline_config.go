package pipegen

import (
	"encoding/json"
	"fmt"

	"github.com/dcshock/pipegen/config"
)

// PipelineConfig is one generated, fully concrete pipeline configuration.
type PipelineConfig struct {
	Index       int    // 0-based position in the run
	DatasetName string // last segment of the reader's data_path

	DatasetReader   *config.Object
	DatasetIterator *config.Object
	Chainer         *config.Object // chainer keys as in the template; "pipe" is replaced by Pipe on output
	Pipe            []config.Component
	Train           *config.Object
	Metadata        *config.Object // nil when the template has none
}

// Name returns "pipe_<Index+1>", the directory name of the config's main component.
func (c *PipelineConfig) Name() string {
	return fmt.Sprintf("pipe_%d", c.Index+1)
}

// ComponentNames returns the component_name of every pipe element, in order.
func (c *PipelineConfig) ComponentNames() []string {
	out := make([]string, len(c.Pipe))
	for i, comp := range c.Pipe {
		out[i] = comp.Name()
	}
	return out
}

// Object assembles the config as a document in template key order.
func (c *PipelineConfig) Object() *config.Object {
	pipe := make([]any, len(c.Pipe))
	for i, comp := range c.Pipe {
		pipe[i] = comp.Object()
	}
	chainer := c.Chainer.Clone()
	if chainer == nil {
		chainer = config.NewObject()
	}
	chainer.Set(config.KeyPipe, pipe)

	o := config.ObjectOf(
		config.KeyDatasetReader, c.DatasetReader.Clone(),
		config.KeyDatasetIterator, c.DatasetIterator.Clone(),
		config.KeyChainer, chainer,
		config.KeyTrain, c.Train.Clone(),
	)
	if c.Metadata != nil {
		o.Set(config.KeyMetadata, c.Metadata.Clone())
	}
	return o
}

// MarshalJSON writes the config with keys dataset_reader, dataset_iterator,
// chainer, train and, when present, metadata.
func (c *PipelineConfig) MarshalJSON() ([]byte, error) {
	return c.Object().MarshalJSON()
}

// String renders the config as compact JSON.
func (c *PipelineConfig) String() string {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", c.Name(), err)
	}
	return string(b)
}
