// Package manifest records generation runs in a SQLite database so the
// configurations of a run can be listed and inspected after the fact.
//
//   - Store: opens (and migrates) the database; lists runs; returns stored
//     configurations and evaluates gjson paths against them.
//   - Observer: a pipegen.Observer that writes the run (generation_run) and
//     every emitted configuration (generated_config). Pass it in
//     pipegen.RunOptions, alone or through pipegen.MultiObserver.
//
// Run status moves from "running" to "success", "failed" or "canceled".
package manifest
