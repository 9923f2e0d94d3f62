package schedule

import (
	"fmt"

	"github.com/kilianp07/caveplan/core/factory"
	"github.com/kilianp07/caveplan/core/logger"
)

// DefaultApportioner is used when no apportioner type is configured.
const DefaultApportioner = "equal"

var apportionerRegistry = factory.NewRegistry[Apportioner]()

func init() {
	_ = RegisterApportioner("equal", func(map[string]any) (Apportioner, error) { return EqualApportioner{}, nil })
	_ = RegisterApportioner("proportional", func(map[string]any) (Apportioner, error) { return ProportionalApportioner{}, nil })
	_ = RegisterApportioner("greedy", func(map[string]any) (Apportioner, error) { return GreedyApportioner{}, nil })
	_ = RegisterApportioner("lp", func(conf map[string]any) (Apportioner, error) {
		var c struct {
			Weighting string `json:"weighting"`
			Fallback  string `json:"fallback"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		a := NewLPApportioner(logger.NopLogger{})
		switch c.Weighting {
		case "", "rank":
		case "uniform":
			a.Weight = UniformWeight
		default:
			return nil, fmt.Errorf("unknown lp weighting %q", c.Weighting)
		}
		switch c.Fallback {
		case "":
		case "none":
			a.Fallback = nil
		default:
			fb, err := apportionerRegistry.Create(factory.ModuleConfig{Type: c.Fallback})
			if err != nil {
				return nil, fmt.Errorf("lp fallback: %w", err)
			}
			a.Fallback = fb
		}
		return a, nil
	})
}

// RegisterApportioner adds an apportioner factory identified by name.
func RegisterApportioner(name string, f factory.Factory[Apportioner]) error {
	return apportionerRegistry.Register(name, f)
}

// NewApportioner creates the configured apportioner. An empty type selects
// DefaultApportioner.
func NewApportioner(cfg factory.ModuleConfig) (Apportioner, error) {
	if cfg.Type == "" {
		cfg.Type = DefaultApportioner
	}
	return apportionerRegistry.Create(cfg)
}

// ApportionerNames lists the registered apportioners.
func ApportionerNames() []string { return apportionerRegistry.Names() }
