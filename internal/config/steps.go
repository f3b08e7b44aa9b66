package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

var ErrUnknownStep = errors.New("unknown step")

// StepJavaScript is the key of a scripted transformation step.
const StepJavaScript = "javascript"

// JavaScriptStep configures one scripted transformation stage.
type JavaScriptStep struct {
	Columns    []string      `mapstructure:"columns"`
	Source     string        `mapstructure:"source"`
	ReturnType string        `mapstructure:"return_type"`
	ArrayName  string        `mapstructure:"array_name"`
	Output     string        `mapstructure:"output"`
	Workers    int           `mapstructure:"workers"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Step is one decoded entry of the steps list. Exactly one field is set.
type Step struct {
	Kind       string
	JavaScript *JavaScriptStep
}

// DecodeSteps decodes every step by its single key. Steps with an unknown
// key are reported through ErrUnknownStep after the known ones are decoded.
func (j Job) DecodeSteps() ([]Step, error) {
	var (
		steps   []Step
		unknown []error
	)
	for i, raw := range j.Steps {
		if len(raw) != 1 {
			return nil, fmt.Errorf("step %d: want exactly one key, got %d", i, len(raw))
		}
		for kind, body := range raw {
			switch kind {
			case StepJavaScript:
				var s JavaScriptStep
				if err := decode(body, &s); err != nil {
					return nil, fmt.Errorf("step %d (%s): %w", i, kind, err)
				}
				steps = append(steps, Step{Kind: kind, JavaScript: &s})
			default:
				unknown = append(unknown, fmt.Errorf("step %d: %w %q", i, ErrUnknownStep, kind))
			}
		}
	}
	return steps, errors.Join(unknown...)
}

func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
