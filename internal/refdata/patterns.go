package refdata

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/upkeephq/predict-cli/internal/evidence"
	"github.com/upkeephq/predict-cli/internal/model"
)

// PatternConfig is the YAML schema for classifier pattern overrides. All
// entries extend the built-in sets; nothing is removed.
type PatternConfig struct {
	Exclusions []string                                 `yaml:"exclusions"`
	Systems    map[model.SystemType]evidence.PatternSet `yaml:"systems"`
}

// LoadPatterns reads pattern overrides from a YAML file and returns a
// classifier extended with them.
func LoadPatterns(path string) (*evidence.Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "refdata: read patterns %s", path)
	}

	var wrapper struct {
		Patterns PatternConfig `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "refdata: parse patterns")
	}
	cfg := wrapper.Patterns

	c := evidence.NewClassifier().WithExclusions(cfg.Exclusions)
	for system, ps := range cfg.Systems {
		switch system {
		case model.SystemRoof, model.SystemHVAC, model.SystemWaterHeater:
			c = c.WithPatterns(system, ps)
		default:
			return nil, eris.Errorf("refdata: unknown system %q in patterns", system)
		}
	}
	return c, nil
}
