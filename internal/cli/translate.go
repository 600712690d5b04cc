package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"sublate/internal/config"
	"sublate/internal/langid"
	"sublate/internal/pipeline"
	"sublate/internal/policy"
	"sublate/internal/subtitle"
	"sublate/internal/tracker"
	"sublate/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [files_or_dirs...]",
	Short: "Translate subtitle files, preserving target-language cues",
	Long: `Translate SRT subtitle files into one or more target languages.

Every cue is language-classified first. Cues already in the target
language are copied through untouched; only the rest are sent to a
translation provider. Providers are tried in priority order with retry
and failover, and cues no provider could translate keep their source
text so the output always lines up with the input.

Directories are scanned recursively for .srt files. Each input produces
one output per target language, named <input>.<target>.srt.

API keys come from the environment (or a .env file): DEEPL_API_KEY,
GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY.

Examples:
  sublate translate episode.srt -t de
  sublate translate season1/ -t de -t fr --source en
  sublate translate episode.srt -t ja --providers openai,anthropic
  sublate translate episode.srt -t de --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringSliceP("target", "t", nil, "Target language code (repeatable; default from config)")
	translateCmd.Flags().
		StringP("source", "s", "", "Source language used when detection is inconclusive")
	translateCmd.Flags().
		StringSlice("providers", nil, "Provider priority order (default from config)")
	translateCmd.Flags().
		Float64("threshold", 0, "Preservation confidence threshold (0-1 exclusive)")
	translateCmd.Flags().
		String("delimiter", "", "Timestamp delimiter in output: comma or period")
	translateCmd.Flags().
		Int("workers", 0, "Number of files processed in parallel")
	translateCmd.Flags().
		Int("timeout", 0, "Per file and target timeout in seconds (0 disables)")
	translateCmd.Flags().
		Bool("dry-run", false, "Classify and report without calling any provider")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	targetValues, _ := cmd.Flags().GetStringSlice("target")
	sourceLang, _ := cmd.Flags().GetString("source")
	providerValues, _ := cmd.Flags().GetStringSlice("providers")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	delimiter, _ := cmd.Flags().GetString("delimiter")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetInt("timeout")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outputFlag, _ := cmd.Flags().GetString("output")

	if len(targetValues) == 0 {
		targetValues = cfg.Translation.TargetLanguages
	}
	targets, err := normalizeTargets(targetValues)
	if err != nil {
		return fmt.Errorf("no target languages: pass --target or set translation.target_languages in the config")
	}

	// Flag values override the loaded config, then the merged result is
	// validated as a whole.
	if cmd.Flags().Changed("source") {
		cfg.Translation.SourceLanguage = strings.ToLower(
			strings.TrimSpace(sourceLang),
		)
	}
	if cmd.Flags().Changed("providers") {
		names := make([]string, 0, len(providerValues))
		for _, name := range providerValues {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "" {
				names = append(names, name)
			}
		}
		cfg.Translation.Providers = names
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Policy.ConfidenceThreshold = threshold
	}
	if cmd.Flags().Changed("delimiter") {
		cfg.Pipeline.Delimiter = strings.ToLower(strings.TrimSpace(delimiter))
	}
	if cmd.Flags().Changed("workers") {
		cfg.Pipeline.Workers = workers
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Pipeline.FileTimeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	outDir := cfg.Pipeline.OutputDir
	if outputFlag != "" {
		expanded, err := config.ExpandPath(outputFlag)
		if err != nil {
			return err
		}
		outDir = expanded
	}

	files, err := collectSubtitleFiles(args)
	if err != nil {
		return err
	}

	classifier, err := langid.New(cfg.ClassifierLanguages(targets...))
	if err != nil {
		return fmt.Errorf("failed to build language classifier: %w", err)
	}

	if dryRun {
		return runDryRun(cmd, classifier, files, targets)
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	logger.Infow("Using translation providers",
		"providers", strings.Join(names, ","),
	)

	caps, err := cfg.Capabilities()
	if err != nil {
		return err
	}
	capabilities, err := translate.NewCapabilities(caps)
	if err != nil {
		return err
	}

	router, err := translate.NewRouter(
		capabilities,
		providers,
		translate.WithRetryPolicy(cfg.RetryPolicy()),
	)
	if err != nil {
		return fmt.Errorf("failed to build translation router: %w", err)
	}

	store, err := tracker.Open(cfg.Tracker.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.BeginRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tracked run: %w", err)
	}

	pipe := pipeline.New(
		classifier,
		router,
		pipeline.Config{
			SourceLang:          cfg.Translation.SourceLanguage,
			ConfidenceThreshold: cfg.Policy.ConfidenceThreshold,
			FileTimeout:         cfg.FileTimeout(),
			Delimiter:           cfg.OutputDelimiter(),
		},
		pipeline.WithRecorder(run),
		pipeline.WithLogger(logger),
		pipeline.WithPairConcurrency(cfg.Pipeline.PairConcurrency),
	)

	logger.Infow("Starting translation run",
		"run_id", run.ID,
		"files", len(files),
		"targets", strings.Join(targets, ","),
		"workers", cfg.Pipeline.Workers,
	)

	start := time.Now()
	results := processFiles(ctx, pipe, files, outDir, targets, cfg.Pipeline.Workers)

	if err := run.Finish(ctx); err != nil {
		logger.Warnw("Failed to mark run finished", "error", err)
	}

	return printRunSummary(run.ID, results, time.Since(start))
}

// processFiles feeds files through a fixed worker pool. Concurrency across
// language pairs within a file is the pipeline's own concern.
func processFiles(
	ctx context.Context,
	pipe *pipeline.Pipeline,
	files []string,
	outputDir string,
	targets []string,
	workers int,
) []pipeline.Result {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(files) {
		workers = len(files)
	}

	fileChan := make(chan string)

	var (
		mu      sync.Mutex
		results []pipeline.Result
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileChan {
				res := pipe.ProcessFile(ctx, path, outputDir, targets)
				mu.Lock()
				results = append(results, res...)
				mu.Unlock()
			}
		}()
	}

	for _, path := range files {
		fileChan <- path
	}
	close(fileChan)
	wg.Wait()

	return results
}

func runDryRun(
	cmd *cobra.Command,
	classifier *langid.Classifier,
	files, targets []string,
) error {
	threshold := cfg.Policy.ConfidenceThreshold

	logger.Infow("Dry run: classifying without translating",
		"files", len(files),
		"targets", strings.Join(targets, ","),
	)

	out := cmd.OutOrStdout()
	for _, path := range files {
		track, warnings, err := subtitle.Open(
			path,
			cfg.Translation.SourceLanguage,
		)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, w := range warnings {
			logger.Debugw("Skipped malformed block",
				"file", path,
				"line", w.Line,
				"reason", w.Reason,
			)
		}

		classifications := classifier.ClassifyAll(track.Cues)

		fmt.Fprintf(out, "%s: %d cues\n", path, len(track.Cues))
		for _, target := range targets {
			toTranslate := 0
			for i := range track.Cues {
				decision := policy.Decide(classifications[i], target, threshold)
				if decision == policy.Translate {
					toTranslate++
				}
			}
			fmt.Fprintf(out, "  %s: translate %d, preserve %d\n",
				target,
				toTranslate,
				len(track.Cues)-toTranslate,
			)
		}
	}
	return nil
}

func printRunSummary(
	runID string,
	results []pipeline.Result,
	elapsed time.Duration,
) error {
	var completed, unresolved, failed, unresolvedCues int
	for _, res := range results {
		switch res.Status {
		case pipeline.StatusCompleted:
			completed++
		case pipeline.StatusCompletedWithUnresolved:
			unresolved++
			if res.Unresolved != nil {
				unresolvedCues += len(res.Unresolved.Cues)
			}
		case pipeline.StatusFailed:
			failed++
		}
	}

	fmt.Printf("Translation run complete: %s\n", runID)
	fmt.Printf("  Outcomes: %d\n", len(results))
	fmt.Printf("  Completed: %d\n", completed)
	if unresolved > 0 {
		fmt.Printf(
			"  Completed with unresolved cues: %d (%d cues)\n",
			unresolved,
			unresolvedCues,
		)
	}
	if failed > 0 {
		fmt.Printf("  Failed: %d\n", failed)
	}
	fmt.Printf("  Elapsed: %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Printf("Run 'sublate report' for details.\n")

	if failed > 0 {
		return fmt.Errorf("%d of %d translations failed", failed, len(results))
	}
	return nil
}

var providerEnvVars = map[string]string{
	translate.ProviderDeepL:     "DEEPL_API_KEY",
	translate.ProviderGemini:    "GEMINI_API_KEY",
	translate.ProviderOpenAI:    "OPENAI_API_KEY",
	translate.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// buildProviders constructs a provider per configured name, in priority
// order. Names without an API key in the environment are skipped; having
// none at all is an error.
func buildProviders(
	ctx context.Context,
	cfg *config.Config,
) ([]translate.Provider, error) {
	var providers []translate.Provider
	var missing []string

	for _, name := range cfg.Translation.Providers {
		envVar := providerEnvVars[name]
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			missing = append(missing, envVar)
			logger.Debugw("Skipping provider without API key",
				"provider", name,
				"env", envVar,
			)
			continue
		}

		var provider translate.Provider
		var err error
		switch name {
		case translate.ProviderDeepL:
			provider, err = translate.NewDeepLProvider(apiKey)
		case translate.ProviderGemini:
			provider, err = translate.NewGeminiProvider(
				ctx,
				apiKey,
				cfg.Models.Gemini,
			)
		case translate.ProviderOpenAI:
			provider, err = translate.NewOpenAIProvider(apiKey, cfg.Models.OpenAI)
		case translate.ProviderAnthropic:
			provider, err = translate.NewAnthropicProvider(
				apiKey,
				cfg.Models.Anthropic,
			)
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf(
			"no providers available: set at least one of %s",
			strings.Join(missing, ", "),
		)
	}
	return providers, nil
}

// collectSubtitleFiles expands the command arguments into subtitle files.
// Directories are walked recursively; explicit files must be .srt.
func collectSubtitleFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input not found: %s", arg)
		}

		if !info.IsDir() {
			if !strings.EqualFold(filepath.Ext(arg), ".srt") {
				return nil, fmt.Errorf(
					"unsupported subtitle format %q: only .srt files are supported",
					filepath.Ext(arg),
				)
			}
			add(arg)
			continue
		}

		found := 0
		walkErr := filepath.WalkDir(
			arg,
			func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				if strings.EqualFold(filepath.Ext(path), ".srt") {
					add(path)
					found++
				}
				return nil
			},
		)
		if walkErr != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", arg, walkErr)
		}
		if found == 0 {
			return nil, fmt.Errorf("no subtitle files found in %s", arg)
		}
	}

	return files, nil
}

func normalizeTargets(values []string) ([]string, error) {
	seen := make(map[string]bool)
	var targets []string
	for _, v := range values {
		code := strings.ToLower(strings.TrimSpace(v))
		if code == "" {
			continue
		}
		if !seen[code] {
			seen[code] = true
			targets = append(targets, code)
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one target language is required")
	}
	return targets, nil
}
