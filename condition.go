package rewire

import "os"

type Conditional interface {
	evaluate() bool
}

type whenOption struct {
	condition Conditional
	options   []Option
}

func (o *whenOption) apply(cfg *configuration) error {
	if o.condition.evaluate() {
		for _, opt := range o.options {
			if err := opt.apply(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// When groups a list of Options that are applied only if the given
// Conditional evaluates to true.
func When(condition Conditional, options ...Option) Option {
	return &whenOption{condition: condition, options: options}
}

type environmentVariableConditional struct {
	name           string
	havingValue    string
	matchIfMissing bool
}

func (c *environmentVariableConditional) evaluate() bool {
	val, ok := os.LookupEnv(c.name)
	if !ok {
		return c.matchIfMissing
	}
	return val == c.havingValue
}

func OnEnvironmentVariable(name, havingValue string, matchIfMissing bool) Conditional {
	return &environmentVariableConditional{
		name:           name,
		havingValue:    havingValue,
		matchIfMissing: matchIfMissing,
	}
}
