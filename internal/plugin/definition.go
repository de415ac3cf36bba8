package plugin

import (
	"fmt"

	"autounpack/internal/config"
)

// Shape names the context capabilities of a step config.
type Shape string

const (
	ShapePlain  Shape = "plain"
	ShapeInput  Shape = "input"
	ShapeOutput Shape = "output"
	ShapeHandle Shape = "handle"
)

// Definition describes one registrable plugin.
type Definition struct {
	Name        string
	Description string
	Shape       Shape
	build       func(raw map[string]any, deps Deps) (Plugin, error)
}

// Define builds a Definition whose configuration is decoded into C.
func Define[C any](name, description string, ctor func(cfg *C, deps Deps) (Plugin, error)) Definition {
	return Definition{
		Name:        name,
		Description: description,
		Shape:       shapeOf(new(C)),
		build: func(raw map[string]any, deps Deps) (Plugin, error) {
			cfg := new(C)
			if d, ok := any(cfg).(Defaulter); ok {
				d.SetDefaults()
			}
			if err := config.DecodeMap(raw, cfg); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, name, err)
			}
			if v, ok := any(cfg).(Validator); ok {
				if err := v.Validate(); err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrConfigInvalid, name, err)
				}
			}
			return ctor(cfg, deps)
		},
	}
}

func shapeOf(cfg any) Shape {
	_, saves := cfg.(interface{ SaveTo() string })
	_, loads := cfg.(interface{ LoadFrom() string })
	switch {
	case saves && loads:
		return ShapeHandle
	case saves:
		return ShapeInput
	case loads:
		return ShapeOutput
	}
	return ShapePlain
}
