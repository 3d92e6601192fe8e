package preprocess

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

type dedupeFilter struct {
	logger *zap.Logger
}

// NewDedupe creates a filter that drops case-insensitive duplicates, keeping the first one.
func NewDedupe(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dedupeFilter{logger: logger}
}

func (f *dedupeFilter) Name() string { return "dedupe" }

func (f *dedupeFilter) Disable(string) {}

func (f *dedupeFilter) IsEnabled() bool { return true }

func (f *dedupeFilter) Validate() error { return nil }

func (f *dedupeFilter) Apply(_ context.Context, in *Inputs) (*Inputs, Step, error) {
	initial := in.Len()
	seen := make(map[string]struct{}, initial)
	kept := make([]*Input, 0, initial)
	var dropped []string

	for _, item := range in.Items {
		key := strings.ToLower(item.Text)
		if _, ok := seen[key]; ok {
			dropped = append(dropped, item.Text)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, item)
	}

	if len(dropped) > 0 {
		f.logger.Info("dropping duplicate inputs", zap.Strings("duplicates", dropped))
	}

	in.Items = kept
	return in, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}
