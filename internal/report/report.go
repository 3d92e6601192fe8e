// Package report renders analysis results for the terminal and as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spigell/skillmap/internal/repository"
	"github.com/spigell/skillmap/internal/scoring"
)

// Rewrite records an input that was expanded before scoring.
type Rewrite struct {
	Original string `json:"original"`
	Text     string `json:"text"`
}

type Plan struct {
	JobID    string `json:"job_id"`
	JobTitle string `json:"job_title"`
	Text     string `json:"text"`
}

// Report is everything produced by a single analysis.
type Report struct {
	Result      *scoring.Result `json:"result"`
	Enriched    []Rewrite       `json:"enriched,omitempty"`
	Bio         string          `json:"bio,omitempty"`
	Plans       []Plan          `json:"plans,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`

	labels map[string]string
}

func New(result *scoring.Result, repo *repository.Repository) *Report {
	r := &Report{
		Result:      result,
		GeneratedAt: time.Now().UTC(),
		labels:      map[string]string{},
	}
	if repo != nil {
		for _, c := range repo.Competencies {
			r.labels[c.ID] = c.Text
		}
	}
	return r
}

// AddPlan stores a plan, replacing an earlier one for the same job.
func (r *Report) AddPlan(p Plan) {
	for i := range r.Plans {
		if r.Plans[i].JobID == p.JobID {
			r.Plans[i] = p
			return
		}
	}
	r.Plans = append(r.Plans, p)
}

// Label returns the competency text for an id, or the id itself.
func (r *Report) Label(id string) string {
	if text, ok := r.labels[id]; ok && text != "" {
		return text
	}
	return id
}

// MissingLabels resolves the missing skills of a job to competency texts.
func (r *Report) MissingLabels(job scoring.JobMatch) []string {
	out := make([]string, 0, len(job.MissingSkills))
	for _, id := range job.MissingSkills {
		out = append(out, r.Label(id))
	}
	return out
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Text renders block coverage and the top jobs as terminal tables.
func (r *Report) Text(topJobs int) string {
	var b strings.Builder

	if r.Result == nil || len(r.Result.Inputs) == 0 {
		b.WriteString(mutedStyle.Render("no inputs to analyze"))
		b.WriteString("\n")
		return b.String()
	}

	if len(r.Enriched) > 0 {
		b.WriteString(titleStyle.Render("Enriched inputs"))
		b.WriteString("\n")
		for _, e := range r.Enriched {
			fmt.Fprintf(&b, "  %s -> %s\n", e.Original, e.Text)
		}
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("Block coverage"))
	b.WriteString("\n")
	blocks := make([][]string, 0, len(r.Result.Blocks))
	for _, block := range r.Result.Blocks {
		blocks = append(blocks, []string{block.Name, percent(block.Score)})
	}
	b.WriteString(render([]string{"Block", "Coverage"}, blocks))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Job matches"))
	b.WriteString("\n")
	jobs := make([][]string, 0, topJobs)
	for i, job := range r.Result.TopJobs(topJobs) {
		missing := "-"
		if labels := r.MissingLabels(job); len(labels) > 0 {
			missing = strings.Join(labels, "\n")
		}
		jobs = append(jobs, []string{fmt.Sprintf("%d", i+1), job.Title, percent(job.Score), missing})
	}
	b.WriteString(render([]string{"#", "Job", "Fit", "Missing skills"}, jobs))
	b.WriteString("\n")

	if r.Bio != "" {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Bio"))
		b.WriteString("\n")
		b.WriteString(r.Bio)
		b.WriteString("\n")
	}

	for _, p := range r.Plans {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Plan for " + p.JobTitle))
		b.WriteString("\n")
		b.WriteString(p.Text)
		b.WriteString("\n")
	}

	return b.String()
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// DumpToTmpFile writes the JSON report to a new temporary file and returns its path.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "skillmap_report_*.json")
	if err != nil {
		return "", err
	}
	if err := writeAndClose(file, r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func writeAndClose(w io.WriteCloser, r *Report) error {
	if err := r.WriteJSON(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	return nil
}

func render(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}

func percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}
