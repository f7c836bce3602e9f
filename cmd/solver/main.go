package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polzovatel/paged-sum-solver/internal/agent"
	"github.com/polzovatel/paged-sum-solver/internal/browser"
	"github.com/polzovatel/paged-sum-solver/internal/config"
	"github.com/polzovatel/paged-sum-solver/internal/session"
	"github.com/polzovatel/paged-sum-solver/internal/snapshot"
)

type cliOptions struct {
	problem    string
	configPath string
	storage    string
	headless   bool
	retries    int
	detectEnd  bool
	set        map[string]bool
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	raw := opts.problem
	if raw == "" {
		raw, err = promptProblemID()
		if err != nil {
			log.Fatal().Err(err).Msg("prompt problem id failed")
		}
	}
	problemID, err := session.ParseProblemID(raw)
	if err != nil {
		fmt.Println("Problem id must be digits only, exiting.")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.With().Str("run", uuid.New().String()).Str("problem", problemID).Logger()
	if err := run(ctx, cfg, problemID, logger); err != nil {
		logger.Error().Err(err).Msg("run finished with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, problemID string, logger zerolog.Logger) error {
	launcher, err := browser.NewLauncher(ctx, cfg.Browser)
	if err != nil {
		return fmt.Errorf("browser init: %w", err)
	}
	defer launcher.Close()

	provider := session.NewProvider(launcher, cfg, logger.With().Str("comp", "session").Logger())
	ctrl, err := provider.Open(ctx, problemID)
	if err != nil {
		return err
	}
	defer ctrl.Close(context.WithoutCancel(ctx))

	orch, err := agent.Build(cfg, problemID, ctrl, logger.With().Str("comp", "orch").Logger())
	if err != nil {
		return err
	}

	sel := snapshot.Selectors{Items: cfg.Selectors.Items, Result: cfg.Selectors.Result}
	res, err := orch.Run(ctx, func(c context.Context) (snapshot.Summary, error) {
		return snapshot.Collect(c, ctrl, sel)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Total over %d pages: %d\n", res.Aggregate.Pages, res.Aggregate.Total)
	fmt.Printf("Result: %s\n", res.Submission.Message)

	if linger := cfg.Timeouts.LingerDelay(); linger > 0 {
		logger.Info().Dur("linger", linger).Msg("closing browser")
		select {
		case <-ctx.Done():
		case <-time.After(linger):
		}
	}
	return nil
}

func parseFlags() cliOptions {
	problem := flag.String("problem", "", "Problem id (digits); may also be the first argument")
	cfgPath := flag.String("config", "", "Path to YAML config")
	storage := flag.String("storage", "", "Path to Playwright storage state")
	headless := flag.Bool("headless", false, "Run the browser headless")
	retries := flag.Int("retries", 0, "Extra attempts after a navigation timeout")
	detectEnd := flag.Bool("detect-end", false, "Stop when the next page control is missing")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	p := strings.TrimSpace(*problem)
	if p == "" && flag.NArg() > 0 {
		p = strings.TrimSpace(flag.Arg(0))
	}
	return cliOptions{
		problem:    p,
		configPath: strings.TrimSpace(*cfgPath),
		storage:    strings.TrimSpace(*storage),
		headless:   *headless,
		retries:    *retries,
		detectEnd:  *detectEnd,
		set:        set,
	}
}

// loadConfig layers defaults, the YAML file, SOLVER_* env and explicit flags.
func loadConfig(opts cliOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if opts.set["storage"] {
		cfg.Browser.StorageState = opts.storage
	}
	if opts.set["headless"] {
		cfg.Browser.Headless = opts.headless
	}
	if opts.set["retries"] {
		cfg.Pagination.Retries = opts.retries
	}
	if opts.set["detect-end"] {
		cfg.Pagination.DetectEnd = opts.detectEnd
	}
	return cfg, cfg.Validate()
}

func promptProblemID() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("No problem id given, enter one (e.g. 7, 8, 10): ")
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
