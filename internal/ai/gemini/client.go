package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.0-flash"
	defaultMaxRetries = 3
	baseRetryDelay    = time.Second
	// Quota errors asking to wait longer than this are returned immediately.
	maxRetryDelay = 30 * time.Second
)

var sleep = time.Sleep

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
// maxRetries is the total number of attempts made for one prompt.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// GenerateContent sends message under the system instruction and returns the
// textual answer. Temporary API failures are retried with exponential backoff.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	attempts := max(g.maxRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.send(ctx, config, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := waitFor(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, message string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	g.logger.Debug("gemini send message", zap.Int("prompt_length", utf8.RuneCountInString(message)))

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// retryDelay decides whether err is worth another attempt and how long to wait.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	backoff := baseRetryDelay << (attempt - 1)

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		if m := retryAfterPattern.FindStringSubmatch(apiErr.Message); m != nil {
			seconds, parseErr := strconv.ParseFloat(m[1], 64)
			if parseErr == nil {
				delay := time.Duration(seconds * float64(time.Second))
				if delay > maxRetryDelay {
					return 0, false
				}
				return delay, true
			}
		}
		return backoff, true
	case apiErr.Code >= http.StatusInternalServerError:
		return backoff, true
	default:
		return 0, false
	}
}

func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	pause := sleep
	done := make(chan struct{})
	go func() {
		defer close(done)
		pause(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
