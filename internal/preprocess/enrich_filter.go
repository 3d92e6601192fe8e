package preprocess

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Enricher rewrites a short text into a fuller description.
type Enricher interface {
	NeedsEnrichment(text string) bool
	Enrich(ctx context.Context, text string) (string, error)
}

type enrichFilter struct {
	enabled  bool
	reason   string
	enricher Enricher
	logger   *zap.Logger
}

type EnrichConfig struct {
	Enabled bool
}

// NewEnrich creates the step that expands short inputs with a generative model.
// Enrichment failures keep the original text.
func NewEnrich(cfg *EnrichConfig, enricher Enricher, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &enrichFilter{enricher: enricher, logger: logger}
	if cfg != nil {
		f.enabled = cfg.Enabled
	}
	if !f.enabled {
		f.reason = "ai is disabled"
	}
	return f
}

func (f *enrichFilter) Name() string { return "enrich" }

func (f *enrichFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *enrichFilter) IsEnabled() bool { return f.enabled }

func (f *enrichFilter) Validate() error {
	if f.enricher == nil {
		return fmt.Errorf("enricher is required when enrich step is enabled")
	}
	return nil
}

func (f *enrichFilter) Apply(ctx context.Context, in *Inputs) (*Inputs, Step, error) {
	initial := in.Len()
	enriched := 0

	for _, item := range in.Items {
		if err := ctx.Err(); err != nil {
			return in, Step{}, err
		}
		if !f.enricher.NeedsEnrichment(item.Text) {
			continue
		}

		out, err := f.enricher.Enrich(ctx, item.Text)
		if err != nil {
			f.logger.Warn("enrichment failed; keeping original text",
				zap.String("input", item.Text),
				zap.Error(err),
			)
			continue
		}

		f.logger.Debug("input enriched",
			zap.String("input", item.Text),
			zap.String("enriched", out),
		)
		item.Original = item.Text
		item.Text = out
		enriched++
	}

	if enriched > 0 {
		f.logger.Info("short inputs enriched", zap.Int("enriched", enriched))
	}

	return in, Step{Initial: initial, Dropped: 0, Left: in.Len()}, nil
}

func (f *enrichFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"configured": strconv.FormatBool(f.enricher != nil)},
	}
}
