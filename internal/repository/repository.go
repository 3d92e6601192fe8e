package repository

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownCompetency = errors.New("unknown competency")
	ErrDuplicateID       = errors.New("duplicate id")
)

type Competency struct {
	ID   string
	Text string
}

type Block struct {
	ID           string   `mapstructure:"id"`
	Name         string   `mapstructure:"name"`
	Competencies []string `mapstructure:"competencies"`
}

type Job struct {
	ID           string   `mapstructure:"-"`
	Title        string   `mapstructure:"title"`
	Requirements []string `mapstructure:"requirements"`
}

// Repository is the competency taxonomy together with the job catalog.
// Competencies and jobs keep the order they have in the source file.
type Repository struct {
	Competencies []Competency
	Blocks       []Block
	Jobs         []Job

	index map[string]int
}

// Load reads a repository from a JSON or YAML file and validates it.
func Load(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading repository %q: %w", path, err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	default:
		format = "json"
	}

	repo, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing repository %q: %w", path, err)
	}

	return repo, nil
}

// Parse decodes raw repository content. Supported formats are "json" and "yaml".
func Parse(data []byte, format string) (*Repository, error) {
	var doc rawDocument

	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported repository format: %s", format)
	}

	order, err := captureOrder(data, format)
	if err != nil {
		return nil, err
	}
	doc.order = order

	repo, err := doc.decode()
	if err != nil {
		return nil, err
	}

	if err := repo.Validate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// Validate checks ids are unique and every reference names a known competency.
func (r *Repository) Validate() error {
	r.index = make(map[string]int, len(r.Competencies))
	for i, c := range r.Competencies {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("competency #%d: empty id", i)
		}
		if _, ok := r.index[c.ID]; ok {
			return fmt.Errorf("competency %q: %w", c.ID, ErrDuplicateID)
		}
		r.index[c.ID] = i
	}

	blocks := make(map[string]struct{}, len(r.Blocks))
	for i, b := range r.Blocks {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("block #%d: empty id", i)
		}
		if _, ok := blocks[b.ID]; ok {
			return fmt.Errorf("block %q: %w", b.ID, ErrDuplicateID)
		}
		blocks[b.ID] = struct{}{}

		for _, id := range b.Competencies {
			if _, ok := r.index[id]; !ok {
				return fmt.Errorf("block %q references %q: %w", b.ID, id, ErrUnknownCompetency)
			}
		}
	}

	jobs := make(map[string]struct{}, len(r.Jobs))
	for i, j := range r.Jobs {
		if strings.TrimSpace(j.ID) == "" {
			return fmt.Errorf("job #%d: empty id", i)
		}
		if _, ok := jobs[j.ID]; ok {
			return fmt.Errorf("job %q: %w", j.ID, ErrDuplicateID)
		}
		jobs[j.ID] = struct{}{}

		for _, id := range j.Requirements {
			if _, ok := r.index[id]; !ok {
				return fmt.Errorf("job %q requires %q: %w", j.ID, id, ErrUnknownCompetency)
			}
		}
	}

	return nil
}

func (r *Repository) CompetencyIDs() []string {
	ids := make([]string, 0, len(r.Competencies))
	for _, c := range r.Competencies {
		ids = append(ids, c.ID)
	}
	return ids
}

func (r *Repository) Texts() []string {
	texts := make([]string, 0, len(r.Competencies))
	for _, c := range r.Competencies {
		texts = append(texts, c.Text)
	}
	return texts
}

// Competency returns the competency with the given id, or nil.
func (r *Repository) Competency(id string) *Competency {
	if r.index == nil {
		r.reindex()
	}
	idx, ok := r.index[id]
	if !ok {
		return nil
	}
	return &r.Competencies[idx]
}

// BlockOf returns the first block that lists the competency, or nil.
func (r *Repository) BlockOf(id string) *Block {
	for i := range r.Blocks {
		for _, cid := range r.Blocks[i].Competencies {
			if cid == id {
				return &r.Blocks[i]
			}
		}
	}
	return nil
}

// FindJob returns the job with the given id or title, or nil.
func (r *Repository) FindJob(key string) *Job {
	for i := range r.Jobs {
		if r.Jobs[i].ID == key || strings.EqualFold(r.Jobs[i].Title, key) {
			return &r.Jobs[i]
		}
	}
	return nil
}

// Fingerprint identifies the text a competency is embedded from.
// A changed fingerprint means the stored vector is stale.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return fmt.Sprintf("%x", sum[:])
}

func (r *Repository) reindex() {
	r.index = make(map[string]int, len(r.Competencies))
	for i, c := range r.Competencies {
		r.index[c.ID] = i
	}
}

type rawDocument struct {
	Competencies map[string]any `json:"competencies" yaml:"competencies"`
	Blocks       []any          `json:"blocks" yaml:"blocks"`
	Jobs         map[string]any `json:"jobs" yaml:"jobs"`
	// Key order of the two maps above, captured separately since Go maps are unordered.
	order documentOrder
}

func (d *rawDocument) decode() (*Repository, error) {
	repo := &Repository{}

	for _, id := range d.order.keysOf("competencies", d.Competencies) {
		text, ok := d.Competencies[id].(string)
		if !ok {
			return nil, fmt.Errorf("competency %q: text must be a string", id)
		}
		repo.Competencies = append(repo.Competencies, Competency{ID: id, Text: strings.TrimSpace(text)})
	}

	if err := mapstructure.Decode(d.Blocks, &repo.Blocks); err != nil {
		return nil, fmt.Errorf("decoding blocks: %w", err)
	}

	for _, id := range d.order.keysOf("jobs", d.Jobs) {
		var job Job
		if err := mapstructure.Decode(d.Jobs[id], &job); err != nil {
			return nil, fmt.Errorf("decoding job %q: %w", id, err)
		}
		job.ID = id
		repo.Jobs = append(repo.Jobs, job)
	}

	return repo, nil
}

type documentOrder map[string][]string

// keysOf returns the recorded key order for section, falling back to sorted
// keys when the order was not captured.
func (o documentOrder) keysOf(section string, m map[string]any) []string {
	if keys, ok := o[section]; ok && len(keys) == len(m) {
		return keys
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func captureOrder(data []byte, format string) (documentOrder, error) {
	order := documentOrder{}

	if format == "yaml" {
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, err
		}
		if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
			return order, nil
		}
		top := root.Content[0]
		for i := 0; i+1 < len(top.Content); i += 2 {
			section, value := top.Content[i].Value, top.Content[i+1]
			if value.Kind != yaml.MappingNode {
				continue
			}
			keys := make([]string, 0, len(value.Content)/2)
			for j := 0; j+1 < len(value.Content); j += 2 {
				keys = append(keys, value.Content[j].Value)
			}
			order[section] = keys
		}
		return order, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	for _, section := range []string{"competencies", "jobs"} {
		raw, ok := top[section]
		if !ok {
			continue
		}
		keys, err := jsonObjectKeys(raw)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", section, err)
		}
		order[section] = keys
	}

	return order, nil
}

func jsonObjectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected an object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}

	return keys, nil
}
