package pipegen

import (
	"fmt"
	"path/filepath"

	"github.com/dcshock/pipegen/config"
)

// RewritePaths relocates the persistence paths of the n-th generated pipeline
// (0-based) and returns comps, which it modifies in place.
//
// The main component gets save_path and load_path (when present) moved to
// root[/tmp]/dataset/pipe_<n+1>/<file>. Every other component only gets
// save_path moved to root[/tmp]/dataset/<file>; its load_path is left alone.
// <file> is the part of the original path after its last '/'.
func RewritePaths(comps []config.Component, n int, saveRoot, dataset string, testMode bool) []config.Component {
	base := saveRoot
	if testMode {
		base = filepath.Join(base, "tmp")
	}
	base = filepath.Join(base, dataset)
	pipeDir := filepath.Join(base, fmt.Sprintf("pipe_%d", n+1))

	for i := range comps {
		c := &comps[i]
		if c.Main() {
			if p, ok := c.SavePath(); ok {
				c.SetLiteral(config.KeySavePath, filepath.Join(pipeDir, config.LastSegment(p)))
			}
			if p, ok := c.LoadPath(); ok {
				c.SetLiteral(config.KeyLoadPath, filepath.Join(pipeDir, config.LastSegment(p)))
			}
			continue
		}
		if p, ok := c.SavePath(); ok {
			c.SetLiteral(config.KeySavePath, filepath.Join(base, config.LastSegment(p)))
		}
	}
	return comps
}
