package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spigell/skillmap/internal/repository"
	"github.com/spigell/skillmap/internal/scoring"
)

func sampleResult() *scoring.Result {
	return &scoring.Result{
		ID:     "res-1",
		Inputs: []string{"python", "sql"},
		Competencies: []scoring.CompetencyScore{
			{ID: "PY", Score: 0.9, BestInput: 0},
			{ID: "SQL", Score: 0.4, BestInput: 1},
		},
		Blocks: []scoring.BlockScore{
			{ID: "B1", Name: "Programming", Score: 0.9},
			{ID: "B2", Name: "Data", Score: 0.4},
		},
		Jobs: []scoring.JobMatch{
			{JobID: "DEV", Title: "Developer", Score: 0.9, MissingSkills: []string{}},
			{JobID: "DA", Title: "Data Analyst", Score: 0.65, MissingSkills: []string{"SQL"}},
			{JobID: "DBA", Title: "DBA", Score: 0.4, MissingSkills: []string{"SQL"}},
		},
	}
}

func sampleRepo() *repository.Repository {
	return &repository.Repository{
		Competencies: []repository.Competency{
			{ID: "PY", Text: "Python programming"},
			{ID: "SQL", Text: "Relational databases and SQL"},
		},
	}
}

func TestTextRendersTopJobs(t *testing.T) {
	r := New(sampleResult(), sampleRepo())
	r.Bio = "Pythonista."
	r.AddPlan(Plan{JobID: "DA", JobTitle: "Data Analyst", Text: "1. Learn SQL"})

	out := r.Text(2)

	for _, want := range []string{
		"Block coverage", "Programming", "90%", "Data", "40%",
		"Job matches", "Developer", "Data Analyst", "65%",
		"Relational databases and SQL", "Pythonista.", "Plan for Data Analyst", "1. Learn SQL",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "DBA") {
		t.Fatalf("output must be limited to top jobs:\n%s", out)
	}
}

func TestTextWithoutInputs(t *testing.T) {
	r := New(&scoring.Result{Inputs: []string{}}, nil)
	if out := r.Text(3); !strings.Contains(out, "no inputs to analyze") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAddPlanReplacesSameJob(t *testing.T) {
	r := New(sampleResult(), nil)
	r.AddPlan(Plan{JobID: "DA", Text: "old"})
	r.AddPlan(Plan{JobID: "DEV", Text: "dev"})
	r.AddPlan(Plan{JobID: "DA", Text: "new"})

	want := []Plan{{JobID: "DA", Text: "new"}, {JobID: "DEV", Text: "dev"}}
	if diff := cmp.Diff(want, r.Plans); diff != "" {
		t.Fatalf("unexpected plans (-want +got):\n%s", diff)
	}
}

func TestLabelFallsBackToID(t *testing.T) {
	r := New(sampleResult(), sampleRepo())
	if got := r.Label("PY"); got != "Python programming" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := r.Label("UNKNOWN"); got != "UNKNOWN" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestDumpToTmpFile(t *testing.T) {
	r := New(sampleResult(), sampleRepo())
	r.Enriched = []Rewrite{{Original: "sql", Text: "Wrote SQL queries."}}

	path, err := r.DumpToTmpFile()
	if err != nil {
		t.Fatalf("DumpToTmpFile returned error: %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	var decoded struct {
		Result   scoring.Result `json:"result"`
		Enriched []Rewrite      `json:"enriched"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if decoded.Result.ID != "res-1" || len(decoded.Result.Jobs) != 3 {
		t.Fatalf("unexpected result %+v", decoded.Result)
	}
	if diff := cmp.Diff(r.Enriched, decoded.Enriched); diff != "" {
		t.Fatalf("unexpected enriched (-want +got):\n%s", diff)
	}
}

func TestWriteJSONOmitsEmptySections(t *testing.T) {
	var buf bytes.Buffer
	if err := New(sampleResult(), nil).WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}
	for _, key := range []string{"\"bio\"", "\"plans\"", "\"enriched\""} {
		if strings.Contains(buf.String(), key) {
			t.Fatalf("unexpected key %s in %s", key, buf.String())
		}
	}
}

type failingCloser struct {
	bytes.Buffer
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	boom := errors.New("disk full")
	w := &failingCloser{closeErr: boom}

	err := writeAndClose(w, New(sampleResult(), nil))
	if !errors.Is(err, boom) {
		t.Fatalf("expected close error, got %v", err)
	}
	if w.Len() == 0 {
		t.Fatalf("report must be written before close")
	}

	if err := writeAndClose(&failingCloser{}, New(sampleResult(), nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
