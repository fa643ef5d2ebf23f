package pipegen

import (
	"path/filepath"
	"testing"

	"github.com/dcshock/pipegen/config"
)

func TestRewritePaths(t *testing.T) {
	comps := []config.Component{
		config.MustComponent(config.ObjectOf(
			"component_name", "vocab",
			"save_path", "~/old/models/vocab.dict",
			"load_path", "~/old/models/vocab.dict",
		)),
		config.MustComponent(config.ObjectOf(
			"component_name", "model",
			"main", true,
			"save_path", "models/model.bin",
			"load_path", "models/model.bin",
		)),
		config.MustComponent(config.ObjectOf("component_name", "plain")),
	}
	got := RewritePaths(comps, 4, "/exp", "squad", false)

	if p, _ := got[1].SavePath(); p != filepath.Join("/exp", "squad", "pipe_5", "model.bin") {
		t.Errorf("main save_path: %q", p)
	}
	if p, _ := got[1].LoadPath(); p != filepath.Join("/exp", "squad", "pipe_5", "model.bin") {
		t.Errorf("main load_path: %q", p)
	}
	if p, _ := got[0].SavePath(); p != filepath.Join("/exp", "squad", "vocab.dict") {
		t.Errorf("aux save_path: %q", p)
	}
	if p, _ := got[0].LoadPath(); p != "~/old/models/vocab.dict" {
		t.Errorf("aux load_path must not change: %q", p)
	}
	if got[2].Len() != 1 {
		t.Errorf("component without paths gained keys: %v", got[2])
	}
}

func TestRewritePaths_TestMode(t *testing.T) {
	comps := []config.Component{
		config.MustComponent(config.ObjectOf("component_name", "m", "main", true, "save_path", "x/model.bin")),
	}
	RewritePaths(comps, 0, "/exp", "ds", true)
	if p, _ := comps[0].SavePath(); p != filepath.Join("/exp", "tmp", "ds", "pipe_1", "model.bin") {
		t.Errorf("save_path: %q", p)
	}
}

func TestRewritePaths_MainMustBeBool(t *testing.T) {
	comps := []config.Component{
		config.MustComponent(config.ObjectOf("component_name", "m", "main", "yes", "save_path", "x/model.bin")),
	}
	RewritePaths(comps, 0, "/exp", "ds", false)
	if p, _ := comps[0].SavePath(); p != filepath.Join("/exp", "ds", "model.bin") {
		t.Errorf("non-bool main treated as main: %q", p)
	}
}
