// Package scoring turns a similarity matrix between user inputs and
// competencies into competency, block and job scores.
//
// The policy is max over inputs for each competency, then mean over the
// group for blocks and jobs. Aggregate is deterministic: the same matrix and
// repository always produce the same result.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/spigell/skillmap/internal/embedding"
	"github.com/spigell/skillmap/internal/repository"
)

const (
	PolicyRequirement = "requirement"
	PolicyBlock       = "block"

	DefaultMissingThreshold = 0.5
)

var ErrEmptyInput = errors.New("no user input to score")

type Options struct {
	// MissingThreshold flags job requirements scoring strictly below it.
	// Nil means DefaultMissingThreshold; zero flags nothing.
	MissingThreshold *float64
	// JobPolicy is PolicyRequirement (mean of requirement scores) or
	// PolicyBlock (mean of the scores of the blocks holding each requirement).
	JobPolicy string
}

// Threshold returns a MissingThreshold value.
func Threshold(v float64) *float64 {
	return &v
}

func (o Options) withDefaults() Options {
	if o.MissingThreshold == nil {
		o.MissingThreshold = Threshold(DefaultMissingThreshold)
	}
	if strings.TrimSpace(o.JobPolicy) == "" {
		o.JobPolicy = PolicyRequirement
	}
	o.JobPolicy = strings.ToLower(strings.TrimSpace(o.JobPolicy))
	return o
}

func (o Options) Validate() error {
	o = o.withDefaults()
	if t := *o.MissingThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("missing threshold must be within [0, 1], got %v", t)
	}
	switch o.JobPolicy {
	case PolicyRequirement, PolicyBlock:
		return nil
	default:
		return fmt.Errorf("unsupported job policy: %s", o.JobPolicy)
	}
}

// CompetencyScore is the best similarity any input reached for a competency.
// BestInput is the index of that input, or -1 when the competency has no
// vector or there were no inputs.
type CompetencyScore struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	BestInput int     `json:"best_input"`
}

type BlockScore struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type JobMatch struct {
	JobID         string   `json:"job_id"`
	Title         string   `json:"title"`
	Score         float64  `json:"score"`
	MissingSkills []string `json:"missing_skills"`
}

type Result struct {
	ID           string            `json:"id,omitempty"`
	Inputs       []string          `json:"inputs"`
	Competencies []CompetencyScore `json:"competencies"`
	Blocks       []BlockScore      `json:"blocks"`
	Jobs         []JobMatch        `json:"jobs"`
}

// Aggregate applies the scoring policy to a similarity matrix whose columns
// follow table.IDs. Inputs is only carried into the result for reporting.
func Aggregate(matrix [][]float64, table *embedding.Table, repo *repository.Repository, inputs []string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	for i, row := range matrix {
		if len(row) != table.Len() {
			return nil, fmt.Errorf("similarity row %d has %d columns, table has %d", i, len(row), table.Len())
		}
	}

	threshold := *opts.MissingThreshold
	result := &Result{Inputs: inputs}

	scores := make(map[string]float64, len(repo.Competencies))
	for _, c := range repo.Competencies {
		cs := CompetencyScore{ID: c.ID, BestInput: -1}
		if col := table.Index(c.ID); col >= 0 && len(matrix) > 0 {
			cs.Score, cs.BestInput = columnMax(matrix, col)
		}
		scores[c.ID] = cs.Score
		result.Competencies = append(result.Competencies, cs)
	}

	blockScores := make(map[string]float64, len(repo.Blocks))
	for _, b := range repo.Blocks {
		values := make([]float64, 0, len(b.Competencies))
		for _, id := range b.Competencies {
			values = append(values, scores[id])
		}
		score := mean(values)
		blockScores[b.ID] = score
		result.Blocks = append(result.Blocks, BlockScore{ID: b.ID, Name: b.Name, Score: round2(score)})
	}

	for _, j := range repo.Jobs {
		match := JobMatch{JobID: j.ID, Title: j.Title, MissingSkills: []string{}}

		values := make([]float64, 0, len(j.Requirements))
		for _, id := range j.Requirements {
			s := scores[id]
			if s < threshold {
				match.MissingSkills = append(match.MissingSkills, id)
			}

			switch opts.JobPolicy {
			case PolicyBlock:
				if b := repo.BlockOf(id); b != nil {
					values = append(values, blockScores[b.ID])
				}
			default:
				values = append(values, s)
			}
		}

		match.Score = round2(mean(values))
		result.Jobs = append(result.Jobs, match)
	}

	slices.SortStableFunc(result.Jobs, func(a, b JobMatch) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	return result, nil
}

// TopJobs returns at most n best matching jobs.
func (r *Result) TopJobs(n int) []JobMatch {
	if n <= 0 || n > len(r.Jobs) {
		n = len(r.Jobs)
	}
	return r.Jobs[:n]
}

// TopCompetencies returns the ids of the n highest scoring competencies,
// ties broken by repository order.
func (r *Result) TopCompetencies(n int) []string {
	sorted := slices.Clone(r.Competencies)
	slices.SortStableFunc(sorted, func(a, b CompetencyScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if n <= 0 || n > len(sorted) {
		n = len(sorted)
	}

	ids := make([]string, 0, n)
	for _, c := range sorted[:n] {
		ids = append(ids, c.ID)
	}
	return ids
}

// BlockMap returns block scores keyed by block name.
func (r *Result) BlockMap() map[string]float64 {
	m := make(map[string]float64, len(r.Blocks))
	for _, b := range r.Blocks {
		m[b.Name] = b.Score
	}
	return m
}

// FindJob returns the match for a job id or title, or nil.
func (r *Result) FindJob(key string) *JobMatch {
	for i := range r.Jobs {
		if r.Jobs[i].JobID == key || strings.EqualFold(r.Jobs[i].Title, key) {
			return &r.Jobs[i]
		}
	}
	return nil
}

// columnMax skips NaN cells. A column without a usable cell scores 0.
func columnMax(matrix [][]float64, col int) (float64, int) {
	best, at := 0.0, -1
	for i, row := range matrix {
		v := row[col]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if at == -1 || v > best {
			best, at = v, i
		}
	}
	return best, at
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
