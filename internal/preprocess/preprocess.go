// Package preprocess cleans user-provided skill descriptions before they are
// embedded. Steps run in order and each reports how many inputs it dropped.
package preprocess

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Filter represents a single preprocessing step applied to inputs.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, in *Inputs) (*Inputs, Step, error)
}

// Step describes the result of executing a preprocessing step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Input is a single user text. Original keeps the text as it was entered
// when a step rewrites it.
type Input struct {
	Text     string `json:"text"`
	Original string `json:"original,omitempty"`
}

type Inputs struct {
	Items []*Input `json:"items"`
}

func NewInputs(texts []string) *Inputs {
	in := &Inputs{Items: make([]*Input, 0, len(texts))}
	for _, t := range texts {
		in.Items = append(in.Items, &Input{Text: t})
	}
	return in
}

func (in *Inputs) Len() int {
	if in == nil {
		return 0
	}
	return len(in.Items)
}

// Texts returns the current texts in order.
func (in *Inputs) Texts() []string {
	texts := make([]string, 0, in.Len())
	if in == nil {
		return texts
	}
	for _, item := range in.Items {
		texts = append(texts, item.Text)
	}
	return texts
}

// Rewritten returns inputs whose text differs from what the user typed.
func (in *Inputs) Rewritten() []*Input {
	var out []*Input
	if in == nil {
		return out
	}
	for _, item := range in.Items {
		if item.Original != "" && item.Original != item.Text {
			out = append(out, item)
		}
	}
	return out
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, in *Inputs) (*Inputs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Info("preprocess step disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("preprocess step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		in = next
	}

	return in, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
