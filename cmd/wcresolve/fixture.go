package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/chrisyuyangshen/subversion/pkg/wc"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store"
	"github.com/chrisyuyangshen/subversion/pkg/wc/store/memstore"
)

// fixtureLayer is the YAML form of a single (path, op-depth) node row,
// seeded directly into a memstore before any resolution runs.
type fixtureLayer struct {
	Path     string            `yaml:"path"`
	OpDepth  int               `yaml:"opDepth"`
	Kind     string            `yaml:"kind"`
	Status   string            `yaml:"status"`
	Revision int64             `yaml:"revision"`
	Checksum string            `yaml:"checksum"`
	Props    map[string]string `yaml:"props"`
}

// fixtureMove is the YAML form of a MoveRecord.
type fixtureMove struct {
	SrcRelpath string `yaml:"srcRelpath"`
	DstRelpath string `yaml:"dstRelpath"`
	SrcOpDepth int    `yaml:"srcOpDepth"`
}

// fixture is the top-level YAML document a resolve/bump invocation loads:
// the move under consideration, the update that produced the conflict,
// and the node rows both sides of the walk need.
type fixture struct {
	Move        fixtureMove    `yaml:"move"`
	Operation   string         `yaml:"operation"`
	OldRevision int64          `yaml:"oldRevision"`
	NewRevision int64          `yaml:"newRevision"`
	Layers      []fixtureLayer `yaml:"layers"`
}

// loadFixture reads and parses a YAML fixture file.
func loadFixture(path string) (*fixture, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read fixture file")
	}
	var f fixture
	if err := yaml.Unmarshal(contents, &f); err != nil {
		return nil, errors.Wrap(err, "unable to parse fixture file")
	}
	return &f, nil
}

// kindFromString parses a fixture's textual node kind.
func kindFromString(s string) store.Kind {
	switch s {
	case "directory":
		return store.KindDirectory
	case "symlink":
		return store.KindSymlink
	default:
		return store.KindFile
	}
}

// presenceFromString parses a fixture's textual presence, defaulting to
// PresenceNormal for an empty or unrecognized value.
func presenceFromString(s string) store.Presence {
	switch s {
	case "base-deleted":
		return store.PresenceBaseDeleted
	case "excluded":
		return store.PresenceExcluded
	case "incomplete":
		return store.PresenceIncomplete
	case "deleted":
		return store.PresenceDeleted
	default:
		return store.PresenceNormal
	}
}

// operationFromString parses a fixture's textual operation, defaulting to
// OperationUpdate.
func operationFromString(s string) wc.Operation {
	if s == "switch" {
		return wc.OperationSwitch
	}
	return wc.OperationUpdate
}

// build populates a fresh memstore backend and Resolve/Bump request from
// the fixture.
func (f *fixture) build() (*memstore.Store, wc.Request) {
	backend := memstore.New()
	for _, layer := range f.Layers {
		backend.PutLayer(layer.Path, layer.OpDepth, store.Info{
			Status:   presenceFromString(layer.Status),
			Kind:     kindFromString(layer.Kind),
			Revision: layer.Revision,
			Checksum: []byte(layer.Checksum),
			Props:    layer.Props,
		})
	}
	backend.PutMove(f.Move.SrcRelpath, f.Move.DstRelpath, f.Move.SrcOpDepth)

	request := wc.Request{
		Move: wc.MoveRecord{
			SrcRelpath: f.Move.SrcRelpath,
			DstRelpath: f.Move.DstRelpath,
			SrcOpDepth: f.Move.SrcOpDepth,
		},
		Operation:   operationFromString(f.Operation),
		OldRevision: f.OldRevision,
		NewRevision: f.NewRevision,
	}
	return backend, request
}
