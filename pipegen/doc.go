// Package pipegen turns one experiment template into every concrete pipeline
// configuration it describes.
//
// A template lists, for each stage of chainer.pipe, the candidate components
// that may fill it (null skips the stage), one or more dataset readers, and a
// train block whose batch_size may be a list. The Enumerator walks the product
// readers × train variants × stage candidates; a search strategy (random or
// grid, see package search) then resolves hyperparameter directives; finally
// every persistence path is relocated so each generated pipeline writes under
// its own directory:
//
//	root[/tmp]/<dataset>/pipe_<n+1>/<file>   main component, save_path and load_path
//	root[/tmp]/<dataset>/<file>              other components, save_path only
//
// Generation is lazy. New counts the configurations once up front (Len);
// every call to Configs starts a fresh, independent run:
//
//	gen, err := pipegen.New(tmpl, pipegen.Options{SaveRoot: "~/experiments", Mode: search.ModeGrid})
//	if err != nil {
//		return err
//	}
//	for cfg := range gen.Configs() {
//		// cfg is a *PipelineConfig, ready to be marshaled and trained
//	}
//
// Run drives a generator through an Observer (LogObserver, DirWriter, or the
// manifest package's SQLite observer) with a run id, the same way a pipeline
// run is observed.
package pipegen
