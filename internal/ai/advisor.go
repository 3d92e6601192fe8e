package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/logger"
)

const (
	DefaultEnrichMinWords = 5
	defaultMaxLogLength   = 200
	// Longest user-provided fragment forwarded into a prompt.
	maxUserTextRunes = 1000
)

var (
	//go:embed prompts/enrich.md
	enrichPrompt string
	//go:embed prompts/plan.md
	planPrompt string
	//go:embed prompts/bio.md
	bioPrompt string
)

// Advisor produces the generated parts of an analysis: enriched inputs,
// a progression plan towards a job and a short professional bio.
type Advisor struct {
	generator Generator
	minWords  int
	logger    *zap.Logger
	maxLogLen int
}

func NewAdvisor(generator Generator, minWords, maxLogLength int, logger *zap.Logger) *Advisor {
	if minWords <= 0 {
		minWords = DefaultEnrichMinWords
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Advisor{
		generator: generator,
		minWords:  minWords,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// NeedsEnrichment reports whether text is too short to embed meaningfully.
func (a *Advisor) NeedsEnrichment(text string) bool {
	return len(strings.Fields(text)) < a.minWords
}

// Enrich rewrites a short skill description into one professional sentence.
// Texts with enough words are returned unchanged.
func (a *Advisor) Enrich(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if !a.NeedsEnrichment(text) {
		return text, nil
	}
	if text == "" {
		return "", errors.New("text must not be empty")
	}

	out, err := a.generate(ctx, "enrich", enrichPrompt, sanitizeLine(text, maxUserTextRunes))
	if err != nil {
		return "", fmt.Errorf("enrich input: %w", err)
	}

	return strings.Trim(out, "\"' \n"), nil
}

// ProgressionPlan asks for a Markdown plan that closes the missing skills
// of a job given the current block coverage.
func (a *Advisor) ProgressionPlan(ctx context.Context, jobTitle string, missing []string, blocks map[string]float64) (string, error) {
	jobTitle = sanitizeLine(jobTitle, maxUserTextRunes)
	if jobTitle == "" {
		return "", errors.New("job title is required")
	}

	coverage, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal block scores: %w", err)
	}

	skills := "none"
	if len(missing) > 0 {
		cleaned := make([]string, 0, len(missing))
		for _, m := range missing {
			cleaned = append(cleaned, sanitizeLine(m, maxUserTextRunes))
		}
		skills = strings.Join(cleaned, ", ")
	}

	message := fill(planPrompt, map[string]string{
		"JOB_TITLE":      jobTitle,
		"BLOCK_SCORES":   string(coverage),
		"MISSING_SKILLS": skills,
	})

	out, err := a.generate(ctx, "plan", "", message)
	if err != nil {
		return "", fmt.Errorf("progression plan: %w", err)
	}
	return out, nil
}

// Bio writes a short professional bio for the given skills and role.
func (a *Advisor) Bio(ctx context.Context, topSkills []string, targetRole string) (string, error) {
	if len(topSkills) == 0 {
		return "", errors.New("at least one skill is required")
	}

	cleaned := make([]string, 0, len(topSkills))
	for _, s := range topSkills {
		cleaned = append(cleaned, sanitizeLine(s, maxUserTextRunes))
	}

	role := sanitizeLine(targetRole, maxUserTextRunes)
	if role == "" {
		role = "not specified"
	}

	message := fill(bioPrompt, map[string]string{
		"TOP_SKILLS":  strings.Join(cleaned, ", "),
		"TARGET_ROLE": role,
	})

	out, err := a.generate(ctx, "bio", "", message)
	if err != nil {
		return "", fmt.Errorf("bio: %w", err)
	}
	return out, nil
}

func (a *Advisor) generate(ctx context.Context, kind, system, message string) (string, error) {
	if a.generator == nil {
		return "", errors.New("generator is not configured")
	}

	a.logger.Debug("generate content request",
		zap.String("kind", kind),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", logger.TruncateForLog(message, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return "", err
	}

	a.logger.Debug("generate content response",
		zap.String("kind", kind),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)

	out := strings.TrimSpace(raw)
	if out == "" {
		return "", errors.New("empty response")
	}
	return out, nil
}

func fill(template string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{{"+k+"}}", values[k])
	}
	return strings.TrimSpace(out)
}

// sanitizeLine flattens user text to one line, neutralizes square brackets
// that could pose as prompt section headers and caps the length.
func sanitizeLine(s string, limit int) string {
	s = strings.NewReplacer("[", "(", "]", ")", "{{", "{", "}}", "}").Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > limit {
		s = strings.TrimSpace(string(runes[:limit]))
	}
	return s
}
