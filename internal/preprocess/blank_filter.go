package preprocess

import (
	"context"
	"strings"
)

type blankFilter struct{}

// NewBlank creates a filter that trims inputs and drops empty ones.
func NewBlank() Filter {
	return &blankFilter{}
}

func (f *blankFilter) Name() string { return "blank" }

func (f *blankFilter) Disable(string) {}

func (f *blankFilter) IsEnabled() bool { return true }

func (f *blankFilter) Validate() error { return nil }

func (f *blankFilter) Apply(_ context.Context, in *Inputs) (*Inputs, Step, error) {
	initial := in.Len()
	kept := make([]*Input, 0, initial)

	for _, item := range in.Items {
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			continue
		}
		kept = append(kept, item)
	}

	in.Items = kept
	return in, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}
