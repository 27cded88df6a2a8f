package action

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies action arguments into out, a pointer to a struct.
// Fields match by `mapstructure` tag or case-insensitive name, and
// scalar strings are converted ("5" into an int field). Unknown keys are rejected.
func Decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("action decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid action arguments: %w", err)
	}
	return nil
}

// Typed adapts a function over a decoded argument struct to a Handler.
func Typed[T any](fn func(ctx context.Context, args T) error) Handler {
	return func(ctx context.Context, raw map[string]any) error {
		var args T
		if err := Decode(raw, &args); err != nil {
			return err
		}
		return fn(ctx, args)
	}
}
