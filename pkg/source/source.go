// Package source holds the sound sources tracked during a session.
package source

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-soundfield/pkg/spatial"
)

// Sentinel errors for common error conditions.
var (
	// ErrEmpty is returned when a registry would hold no sources.
	ErrEmpty = errors.New("source: no sources")

	// ErrUnknownSource is returned for an id outside the registry.
	ErrUnknownSource = errors.New("source: unknown source")
)

// Layer groups sources by how the renderer treats them.
type Layer string

const (
	// LayerStandard is a discrete point source.
	LayerStandard Layer = "standard"

	// LayerAmbient is a diffuse bed. Ambient sources also receive aperture
	// and background level at session start.
	LayerAmbient Layer = "ambient"
)

// Source is a virtual sound source in world space.
type Source struct {
	ID       int             `json:"id" yaml:"-"` // 0-based, assigned by the registry
	Name     string          `json:"name" yaml:"name"`
	Position spatial.Vector3 `json:"position" yaml:"position"`
	Layer    Layer           `json:"layer" yaml:"layer"`
}

// Ambient reports whether the source belongs to the ambient layer.
func (s Source) Ambient() bool {
	return s.Layer == LayerAmbient
}

// Index returns the 1-based protocol index.
func (s Source) Index() int {
	return s.ID + 1
}

// Registry is the ordered, fixed set of sources for one session. Ids are
// positions in the list and never change; only positions may move.
type Registry struct {
	sources []Source
}

// NewRegistry builds a registry from sources in the given order. Ids are
// reassigned to match that order and an empty layer defaults to standard.
func NewRegistry(sources []Source) (*Registry, error) {
	if len(sources) == 0 {
		return nil, ErrEmpty
	}

	r := &Registry{sources: make([]Source, len(sources))}
	for i, s := range sources {
		switch s.Layer {
		case "":
			s.Layer = LayerStandard
		case LayerStandard, LayerAmbient:
		default:
			return nil, fmt.Errorf("source: %q has unknown layer %q", s.Name, s.Layer)
		}
		s.ID = i
		r.sources[i] = s
	}
	return r, nil
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// All returns a copy of the sources in id order.
func (r *Registry) All() []Source {
	return append([]Source(nil), r.sources...)
}

// Get returns the source with the given id.
func (r *Registry) Get(id int) (Source, error) {
	if id < 0 || id >= len(r.sources) {
		return Source{}, fmt.Errorf("%w: %d", ErrUnknownSource, id)
	}
	return r.sources[id], nil
}

// Move updates a source's world position. The next tick picks it up.
func (r *Registry) Move(id int, pos spatial.Vector3) error {
	if id < 0 || id >= len(r.sources) {
		return fmt.Errorf("%w: %d", ErrUnknownSource, id)
	}
	r.sources[id].Position = pos
	return nil
}

// Ambient returns the ambient-layer sources in id order.
func (r *Registry) Ambient() []Source {
	var out []Source
	for _, s := range r.sources {
		if s.Ambient() {
			out = append(out, s)
		}
	}
	return out
}
