package cmd

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/logger"
	"github.com/spigell/skillmap/internal/report"
	"github.com/spigell/skillmap/internal/scoring"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single line", in: "Python", want: []string{"Python"}},
		{
			name: "wrapped paragraphs",
			in:   "Built ETL pipelines\nin Airflow.\n\n\n  Taught statistics  \r\n",
			want: []string{"Built ETL pipelines in Airflow.", "Taught statistics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitParagraphs(tt.in)); diff != "" {
				t.Fatalf("unexpected paragraphs (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPreprocessStepsWithoutAdvisor(t *testing.T) {
	steps := preprocessSteps(nil, nil)
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if steps[2].Name() != "enrich" || steps[2].IsEnabled() {
		t.Fatalf("enrich step must be disabled without an advisor")
	}
}

func TestResolveGeminiKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	key, err := resolveGeminiKey(nil)
	if err != nil {
		t.Fatalf("resolveGeminiKey returned error: %v", err)
	}
	if key != "env-key" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestNewAdvisorDisabled(t *testing.T) {
	if _, err := newAdvisor(t.Context(), &AIConfig{}, nil, nil); err != errAIDisabled {
		t.Fatalf("expected errAIDisabled, got %v", err)
	}
}

func TestJSONOutputIsTheOnlyStdout(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = stdout })

	log, err := logger.New(false, false)
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}

	result := &scoring.Result{
		ID:     "res-1",
		Inputs: []string{"python"},
		Blocks: []scoring.BlockScore{{ID: "B1", Name: "Programming", Score: 0.9}},
		Jobs:   []scoring.JobMatch{{JobID: "DEV", Title: "Developer", Score: 0.9, MissingSkills: []string{}}},
	}
	s := newSession(nil, report.New(result, nil), 3, log)

	log.Info("starting the skillmap", zap.String("version", version))
	printErr := s.print("json")
	w.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if printErr != nil {
		t.Fatalf("print returned error: %v", printErr)
	}

	var decoded struct {
		Result scoring.Result `json:"result"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("stdout is not a JSON document: %v\n%s", err, out)
	}
	if decoded.Result.ID != "res-1" {
		t.Fatalf("unexpected result %+v", decoded.Result)
	}
}
