// Package config parses experiment templates: a YAML or JSON document with
// dataset_reader, dataset_iterator, chainer and train sections, where each
// stage of chainer.pipe lists candidate components and component parameters
// may carry search directives:
//
//	chainer:
//	  pipe:
//	    - - component_name: tfidf_vectorizer
//	        save_path: models/tfidf.pkl
//	      - ~                                   # or skip this stage
//	    - component_name: logreg
//	      main: true
//	      C: {random_range: [0.001, 10], scale: log}
//	      penalty: {grid_search: [l1, l2]}
//
// Parse (or Load, for files and URLs) decodes the document once. Search
// directives become RandomSearch or GridSearch parameter values; everything
// else is a Literal. Objects keep document key order so generated configs
// read like the template they came from.
//
// All template problems are reported as errors wrapping ErrInvalidConfig.
package config
