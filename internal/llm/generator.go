// Package llm talks to the text generation backend.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("generator returned no text")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Instrument records call count, errors and latency for every call to g.
func Instrument(g Generator) Generator {
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		start := time.Now()
		out, err := g.Generate(ctx, prompt)
		recordCall(time.Since(start), err)
		return out, err
	})
}
