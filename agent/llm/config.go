package llm

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Hierarchical-Agent-Director/agent/contract"
)

// Config tunes generation per dispatch tier. Tier temperatures default to -1,
// meaning "use the shared temperature".
type Config struct {
	Temperature float64 `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`

	DirectorMaxToken   int `envconfig:"DIRECTOR_MAX_TOKEN" split_words:"true" default:"1500"`
	ManagerMaxToken    int `envconfig:"MANAGER_MAX_TOKEN" split_words:"true" default:"1200"`
	SpecialistMaxToken int `envconfig:"SPECIALIST_MAX_TOKEN" split_words:"true" default:"1000"`

	DirectorTemperature   float64 `envconfig:"DIRECTOR_TEMPERATURE" split_words:"true" default:"-1"`
	ManagerTemperature    float64 `envconfig:"MANAGER_TEMPERATURE" split_words:"true" default:"-1"`
	SpecialistTemperature float64 `envconfig:"SPECIALIST_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if c.Temperature < 0 {
		return fmt.Errorf("%w: temperature must be >= 0", contractx.ErrValidation)
	}
	if c.DirectorMaxToken <= 0 || c.ManagerMaxToken <= 0 || c.SpecialistMaxToken <= 0 {
		return fmt.Errorf("%w: token budgets must be positive", contractx.ErrValidation)
	}
	return nil
}

// GenerationFor resolves the tuning for one tier.
func (c Config) GenerationFor(level contractx.Level) contractx.Generation {
	gen := contractx.Generation{MaxTokens: c.SpecialistMaxToken, Temperature: c.Temperature}

	switch level {
	case contractx.LevelDirector:
		gen.MaxTokens = c.DirectorMaxToken
		if c.DirectorTemperature >= 0 {
			gen.Temperature = c.DirectorTemperature
		}
	case contractx.LevelManager:
		gen.MaxTokens = c.ManagerMaxToken
		if c.ManagerTemperature >= 0 {
			gen.Temperature = c.ManagerTemperature
		}
	case contractx.LevelSpecialist:
		if c.SpecialistTemperature >= 0 {
			gen.Temperature = c.SpecialistTemperature
		}
	}
	return gen
}
