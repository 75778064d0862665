package source

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-soundfield/pkg/spatial"
)

// Default scene tags.
const (
	DefaultMarkerTag  = "SoundSource"
	DefaultAmbientTag = "Ambient"
)

// Discoverer finds the sources present in the environment. It is queried
// once at session start.
type Discoverer interface {
	Discover(ctx context.Context) ([]Source, error)
}

// DiscovererFunc adapts a function to the Discoverer interface.
type DiscovererFunc func(ctx context.Context) ([]Source, error)

// Discover calls f(ctx).
func (f DiscovererFunc) Discover(ctx context.Context) ([]Source, error) {
	return f(ctx)
}

// Static returns a Discoverer that always reports the given sources.
func Static(sources []Source) Discoverer {
	return DiscovererFunc(func(context.Context) ([]Source, error) {
		return append([]Source(nil), sources...), nil
	})
}

// Resolve builds the session registry. With autoDetect the discoverer is
// asked once; otherwise the manual list is used as is.
func Resolve(ctx context.Context, autoDetect bool, manual []Source, d Discoverer) (*Registry, error) {
	sources := manual
	if autoDetect {
		if d == nil {
			return nil, fmt.Errorf("source: auto-detect enabled without a discoverer")
		}
		found, err := d.Discover(ctx)
		if err != nil {
			return nil, fmt.Errorf("source: discovery: %w", err)
		}
		sources = found
	}
	return NewRegistry(sources)
}

// SceneObject is one object in a scene description.
type SceneObject struct {
	Name     string          `yaml:"name"`
	Position spatial.Vector3 `yaml:"position"`
	Tags     []string        `yaml:"tags"`
}

// Scene is a description of the installation space.
type Scene struct {
	Objects []SceneObject `yaml:"objects"`
}

// ParseScene decodes a YAML scene description.
func ParseScene(data []byte) (*Scene, error) {
	var scene Scene
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("source: parse scene: %w", err)
	}
	return &scene, nil
}

// Tagged returns the sources for every object carrying marker, sorted by
// name so ids are stable between runs. Objects that also carry ambient join
// the ambient layer.
func (s *Scene) Tagged(marker, ambient string) []Source {
	var out []Source
	for _, obj := range s.Objects {
		if !hasTag(obj.Tags, marker) {
			continue
		}
		layer := LayerStandard
		if ambient != "" && hasTag(obj.Tags, ambient) {
			layer = LayerAmbient
		}
		out = append(out, Source{Name: obj.Name, Position: obj.Position, Layer: layer})
	}
	slices.SortStableFunc(out, func(a, b Source) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SceneFile discovers sources by reading a YAML scene file.
type SceneFile struct {
	Path       string
	MarkerTag  string // Defaults to DefaultMarkerTag
	AmbientTag string // Defaults to DefaultAmbientTag
}

// Discover implements Discoverer.
func (f SceneFile) Discover(ctx context.Context) ([]Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("source: read scene: %w", err)
	}
	scene, err := ParseScene(data)
	if err != nil {
		return nil, err
	}

	marker, ambient := f.MarkerTag, f.AmbientTag
	if marker == "" {
		marker = DefaultMarkerTag
	}
	if ambient == "" {
		ambient = DefaultAmbientTag
	}
	return scene.Tagged(marker, ambient), nil
}
