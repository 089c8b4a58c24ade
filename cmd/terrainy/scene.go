package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/fabian-becker/Terrainy/internal/feature"
)

// sceneFile is the on-disk scene format: a flat list of feature
// definitions blended in order.
type sceneFile struct {
	Features []sceneFeature `yaml:"features"`
}

// sceneFeature mirrors feature.Feature with string enums and optional
// fields; zero values fall back to the feature defaults.
type sceneFeature struct {
	Name     string     `yaml:"name"`
	Kind     string     `yaml:"kind"`
	Position [2]float32 `yaml:"position"`
	Rotation float32    `yaml:"rotation"`
	Scale    [2]float32 `yaml:"scale"`

	Shape   string     `yaml:"shape"`
	Size    [2]float32 `yaml:"size"`
	Falloff *float32   `yaml:"falloff"`

	Blend    string   `yaml:"blend"`
	Strength *float32 `yaml:"strength"`

	Amplitude   *float32 `yaml:"amplitude"`
	Seed        int64    `yaml:"seed"`
	Frequency   *float64 `yaml:"frequency"`
	Octaves     int      `yaml:"octaves"`
	Persistence *float64 `yaml:"persistence"`
	Lacunarity  *float64 `yaml:"lacunarity"`

	Smoothing         string   `yaml:"smoothing"`
	SmoothRadius      float32  `yaml:"smooth_radius"`
	TerraceLevels     int      `yaml:"terrace_levels"`
	TerraceSmoothness float32  `yaml:"terrace_smoothness"`
	ClampMin          *float32 `yaml:"clamp_min"`
	ClampMax          *float32 `yaml:"clamp_max"`

	Visible *bool `yaml:"visible"`
}

// loadScene reads a YAML scene file and builds the feature list.
func loadScene(path string) ([]*feature.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene %s: %w", path, err)
	}

	var scene sceneFile
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, fmt.Errorf("parsing scene %s: %w", path, err)
	}

	features := make([]*feature.Feature, 0, len(scene.Features))
	for i, sf := range scene.Features {
		f, err := sf.build()
		if err != nil {
			return nil, fmt.Errorf("scene feature %d (%s): %w", i, sf.Name, err)
		}
		features = append(features, f)
	}
	return features, nil
}

func (sf *sceneFeature) build() (*feature.Feature, error) {
	kind, ok := feature.KindFromString(sf.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", sf.Kind)
	}

	f := feature.New(kind, mgl32.Vec2{sf.Position[0], sf.Position[1]})
	f.Name = sf.Name
	f.Rotation = sf.Rotation
	f.Seed = sf.Seed

	if sf.Scale[0] != 0 || sf.Scale[1] != 0 {
		f.Scale = mgl32.Vec2{sf.Scale[0], sf.Scale[1]}
	}
	if sf.Size[0] != 0 || sf.Size[1] != 0 {
		f.Size = mgl32.Vec2{sf.Size[0], sf.Size[1]}
	}
	if sf.Shape != "" {
		shape, ok := feature.ShapeFromString(sf.Shape)
		if !ok {
			return nil, fmt.Errorf("unknown shape %q", sf.Shape)
		}
		f.Influence = shape
	}
	if sf.Blend != "" {
		blend, ok := feature.BlendFromString(sf.Blend)
		if !ok {
			return nil, fmt.Errorf("unknown blend %q", sf.Blend)
		}
		f.Blend = blend
	}

	if sf.Falloff != nil {
		f.Falloff = *sf.Falloff
	}
	if sf.Strength != nil {
		f.Strength = *sf.Strength
	}
	if sf.Amplitude != nil {
		f.Amplitude = *sf.Amplitude
	}
	if sf.Frequency != nil {
		f.Frequency = *sf.Frequency
	}
	if sf.Octaves > 0 {
		f.Octaves = sf.Octaves
	}
	if sf.Persistence != nil {
		f.Persistence = *sf.Persistence
	}
	if sf.Lacunarity != nil {
		f.Lacunarity = *sf.Lacunarity
	}
	if sf.Visible != nil {
		f.Visible = *sf.Visible
	}

	switch sf.Smoothing {
	case "", "none":
	case "light":
		f.Modifiers.Smoothing = feature.SmoothLight
	case "medium":
		f.Modifiers.Smoothing = feature.SmoothMedium
	case "heavy":
		f.Modifiers.Smoothing = feature.SmoothHeavy
	default:
		return nil, fmt.Errorf("unknown smoothing %q", sf.Smoothing)
	}
	f.Modifiers.SmoothRadius = sf.SmoothRadius
	f.Modifiers.TerraceLevels = sf.TerraceLevels
	f.Modifiers.TerraceSmoothness = sf.TerraceSmoothness
	if sf.ClampMin != nil || sf.ClampMax != nil {
		f.Modifiers.ClampEnabled = true
		f.Modifiers.ClampMin = float32(math.Inf(-1))
		f.Modifiers.ClampMax = float32(math.Inf(1))
		if sf.ClampMin != nil {
			f.Modifiers.ClampMin = *sf.ClampMin
		}
		if sf.ClampMax != nil {
			f.Modifiers.ClampMax = *sf.ClampMax
		}
	}

	return f, nil
}
