package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/skillmap/internal/ai"
	"github.com/spigell/skillmap/internal/logger"
	"github.com/spigell/skillmap/internal/preprocess"
	"github.com/spigell/skillmap/internal/report"
	"github.com/spigell/skillmap/internal/repository"
	"github.com/spigell/skillmap/internal/scoring"
	"github.com/spigell/skillmap/internal/store"
)

const (
	PromptPlan       = "Progression plan for a job"
	PromptBio        = "Write a professional bio"
	PromptShowReport = "Show the report again"
	PromptDumpReport = "Dump report to file"
	PromptExit       = "Exit"
	PromptBack       = "back"

	bioSkills = 5
)

var errExit = errors.New("exit requested")

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score skill descriptions against the competency repository",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringArrayP("text", "t", nil, "a skill or project description, can be repeated")
	analyzeCmd.Flags().StringP("file", "f", "", "a file with descriptions separated by blank lines")
	analyzeCmd.Flags().StringP("output", "o", "text", "report format: text or json")
	analyzeCmd.Flags().BoolP("batch", "b", false, "print the report and exit without the action menu")
}

// session holds everything the action loop needs after scoring.
type session struct {
	advisor *ai.Advisor
	report  *report.Report
	topJobs int
	logger  *zap.Logger
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the skillmap", zap.String("version", version))

	repo, err := repository.Load(config.Repository)
	if err != nil {
		logger.Fatal("loading the repository", zap.Error(err))
	}

	logger.Debug("repository loaded",
		zap.Int("competencies", len(repo.Competencies)),
		zap.Int("blocks", len(repo.Blocks)),
		zap.Int("jobs", len(repo.Jobs)),
	)

	st, err := store.Open(config.Store, false, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer st.Close()

	embedder, err := newEmbedder(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating an embedder", zap.Error(err))
	}

	table, missing, err := st.LoadTable(embedder.Name(), repo.CompetencyIDs())
	if err != nil {
		logger.Fatal("loading competency vectors", zap.Error(err))
	}
	if len(missing) > 0 {
		logger.Warn("some competencies have no vectors and will score 0",
			zap.Strings("competencies", missing),
			zap.String("hint", "run the encode command"),
		)
	}

	engine, err := scoring.NewEngine(repo, table, embedder, scoring.Options{
		MissingThreshold: config.Scoring.MissingThreshold,
		JobPolicy:        config.Scoring.JobPolicy,
	}, logger)
	if err != nil {
		logger.Fatal("creating the scoring engine", zap.Error(err))
	}

	advisor, err := newAdvisor(ctx, config.AI, st, logger)
	if err != nil {
		if errors.Is(err, errAIDisabled) {
			logger.Debug("skipping ai features", zap.Error(err))
		} else {
			logger.Warn("skipping ai features", zap.Error(err))
		}
	}

	texts, err := collectInputs(cmd)
	if err != nil {
		logger.Fatal("reading inputs", zap.Error(err))
	}

	steps := preprocessSteps(advisor, logger)
	for _, s := range preprocess.Describe(steps) {
		logger.Debug("preprocess step status",
			zap.String("name", s.Name),
			zap.Bool("enabled", s.Enabled),
			zap.String("reason", s.Reason),
		)
	}

	inputs, err := preprocess.Run(ctx, logger, steps, preprocess.NewInputs(texts))
	if err != nil {
		logger.Fatal("preprocessing inputs", zap.Error(err))
	}

	if inputs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no inputs to analyze"))
		return
	}

	result, err := engine.Score(ctx, inputs.Texts())
	if err != nil {
		logger.Fatal("scoring inputs", zap.Error(err))
	}

	rep := report.New(result, repo)
	for _, in := range inputs.Rewritten() {
		rep.Enriched = append(rep.Enriched, report.Rewrite{Original: in.Original, Text: in.Text})
	}

	s := newSession(advisor, rep, config.Scoring.TopJobs, logger)

	if advisor != nil {
		s.generateSummary(ctx)
	}

	output, _ := cmd.Flags().GetString("output")
	if err := s.print(output); err != nil {
		logger.Fatal("printing the report", zap.Error(err))
	}

	if batch, _ := cmd.Flags().GetBool("batch"); batch {
		return
	}

	for {
		_, action, err := s.actionPrompt().Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := s.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func newSession(advisor *ai.Advisor, rep *report.Report, topJobs int, log *zap.Logger) *session {
	return &session{
		advisor: advisor,
		report:  rep,
		topJobs: topJobs,
		logger:  logger.WithResult(log, rep.Result.ID),
	}
}

func preprocessSteps(advisor *ai.Advisor, log *zap.Logger) []preprocess.Filter {
	var enricher preprocess.Enricher
	if advisor != nil {
		enricher = advisor
	}

	steps := []preprocess.Filter{
		preprocess.NewBlank(),
		preprocess.NewDedupe(log),
		preprocess.NewEnrich(&preprocess.EnrichConfig{Enabled: enricher != nil}, enricher, log),
	}
	return steps
}

// generateSummary writes the bio and the plan for the best job concurrently.
// Failures are logged and leave the section empty.
func (s *session) generateSummary(ctx context.Context) {
	result := s.report.Result
	top := result.TopJobs(1)
	if len(top) == 0 {
		return
	}
	best := top[0]

	var (
		bio  string
		plan string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.advisor.Bio(gctx, s.skillLabels(), best.Title)
		if err != nil {
			s.logger.Warn("generating bio failed", zap.Error(err))
			return nil
		}
		bio = out
		return nil
	})
	g.Go(func() error {
		out, err := s.advisor.ProgressionPlan(gctx, best.Title, s.report.MissingLabels(best), result.BlockMap())
		if err != nil {
			s.logger.Warn("generating progression plan failed", zap.String("job_id", best.JobID), zap.Error(err))
			return nil
		}
		plan = out
		return nil
	})
	_ = g.Wait()

	s.report.Bio = bio
	if plan != "" {
		s.report.AddPlan(report.Plan{JobID: best.JobID, JobTitle: best.Title, Text: plan})
	}
}

func (s *session) skillLabels() []string {
	ids := s.report.Result.TopCompetencies(bioSkills)
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, s.report.Label(id))
	}
	return labels
}

func (s *session) print(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		fmt.Print(s.report.Text(s.topJobs))
		return nil
	case "json":
		return s.report.WriteJSON(os.Stdout)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func (s *session) actionPrompt() *promptui.Select {
	items := []string{}
	if s.advisor != nil {
		items = append(items, PromptPlan, PromptBio)
	}
	items = append(items, PromptShowReport, PromptDumpReport, PromptExit)

	return &promptui.Select{
		Label: "What next?",
		Items: items,
	}
}

func (s *session) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptPlan:
		return s.planForChosenJob(ctx)
	case PromptBio:
		top := s.report.Result.TopJobs(1)
		role := ""
		if len(top) > 0 {
			role = top[0].Title
		}
		bio, err := s.advisor.Bio(ctx, s.skillLabels(), role)
		if err != nil {
			s.logger.Warn("generating bio failed", zap.Error(err))
			return nil
		}
		s.report.Bio = bio
		fmt.Printf("\n%s\n\n", bio)
		return nil
	case PromptShowReport:
		fmt.Print(s.report.Text(s.topJobs))
		return nil
	case PromptDumpReport:
		filename, err := s.report.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		s.logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) planForChosenJob(ctx context.Context) error {
	jobs := s.report.Result.Jobs
	items := make([]string, 0, len(jobs)+1)
	for _, job := range jobs {
		items = append(items, fmt.Sprintf("%s %s (%.0f%%)", job.JobID, job.Title, job.Score*100))
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := jobPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	job := s.report.Result.FindJob(strings.Split(selected, " ")[0])
	if job == nil {
		return fmt.Errorf("there is no such job %s", selected)
	}

	plan, err := s.advisor.ProgressionPlan(ctx, job.Title, s.report.MissingLabels(*job), s.report.Result.BlockMap())
	if err != nil {
		s.logger.Warn("generating progression plan failed", zap.String("job_id", job.JobID), zap.Error(err))
		return nil
	}

	s.report.AddPlan(report.Plan{JobID: job.JobID, JobTitle: job.Title, Text: plan})
	fmt.Printf("\n%s\n\n", plan)
	return nil
}

// collectInputs reads texts from flags, a file, or interactive prompts, in that order.
func collectInputs(cmd *cobra.Command) ([]string, error) {
	texts, _ := cmd.Flags().GetStringArray("text")

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read inputs file: %w", err)
		}
		texts = append(texts, splitParagraphs(string(data))...)
	}

	if len(texts) > 0 {
		return texts, nil
	}

	return promptInputs()
}

func promptInputs() ([]string, error) {
	var texts []string

	for _, label := range []string{
		"Describe a project you worked on (empty line to continue)",
		"Describe your education or courses (empty line to finish)",
	} {
		for {
			p := promptui.Prompt{Label: label}
			text, err := p.Run()
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(text) == "" {
				break
			}
			texts = append(texts, text)
		}
	}

	return texts, nil
}

// splitParagraphs splits text on blank lines and joins wrapped lines.
func splitParagraphs(text string) []string {
	var (
		out     []string
		current []string
	)

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return out
}
