package rewire

import (
	"github.com/go-playground/validator/v10"
)

var configValidator = validator.New()

// Config bounds the engine's bookkeeping.
type Config struct {
	// MaxDrainRounds caps the consecutive non-shrinking rounds of the
	// pending-injection drain that runs when a top-level resolution
	// finalizes. Rounds that shrink the pending set reset the count.
	MaxDrainRounds int `validate:"gt=0"`

	// MaxChainDepth caps the length of one resolution chain. 0 means
	// unbounded.
	MaxChainDepth int `validate:"gte=0"`
}

func (c *Config) Validate() error {
	return configValidator.Struct(c)
}

func defaultConfig() Config {
	return Config{MaxDrainRounds: 64}
}
