package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/compose-network/bolt/internal/boltclient"
	"github.com/compose-network/bolt/internal/boltlog"
	"github.com/compose-network/bolt/internal/config"
)

var (
	cfgFile      string
	publisherURL string
	partnerURL   string
	jobsFile     string

	rootCmd = &cobra.Command{
		Use:   "bolt",
		Short: "Bolt",
		Long:  banner + "\n\nA two-party workflow coordinator driving Publisher/Partner jobs through a shared stage flow.",
		RunE:  runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}
)

const banner = `
██████╗  ██████╗ ██╗  ████████╗
██╔══██╗██╔═══██╗██║  ╚══██╔══╝
██████╔╝██║   ██║██║     ██║
██╔══██╗██║   ██║██║     ██║
██████╔╝╚██████╔╝███████╗██║
╚═════╝  ╚═════╝ ╚══════╝╚═╝`

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "cmd/bolt/configs/config.yaml", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	rootCmd.PersistentFlags().String("listen-addr", "", "operational HTTP API listen address")
	rootCmd.PersistentFlags().Int("num-tries", 0, "retry budget for retryable stages")
	rootCmd.PersistentFlags().Duration("poll-interval", 0, "poll interval while waiting on peer state")

	rootCmd.PersistentFlags().StringVar(&publisherURL, "publisher-url", "", "Publisher peer base URL")
	rootCmd.PersistentFlags().StringVar(&partnerURL, "partner-url", "", "Partner peer base URL")
	rootCmd.PersistentFlags().StringVar(&jobsFile, "jobs", "", "path to a YAML job-batch file to run, then exit")
}

func runApp(cmd *cobra.Command, _ []string) error {
	fmt.Println(banner)
	fmt.Println()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	log := boltlog.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("build information")

	if publisherURL == "" || partnerURL == "" {
		return fmt.Errorf("--publisher-url and --partner-url are required")
	}
	publisher, err := boltclient.NewHTTPClient(publisherURL, nil, log)
	if err != nil {
		return fmt.Errorf("failed to create publisher client: %w", err)
	}
	partner, err := boltclient.NewHTTPClient(partnerURL, nil, log)
	if err != nil {
		return fmt.Errorf("failed to create partner client: %w", err)
	}

	application, err := NewApp(cfg, log, publisher, partner)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	if jobsFile != "" {
		return runJobsOnce(application, log)
	}
	return runWithGracefulShutdown(cmd.Context(), application, log)
}

// runJobsOnce loads a job batch from jobsFile, drives it to completion, and
// reports whether every job in it succeeded.
func runJobsOnce(app *App, log zerolog.Logger) error {
	jobs, err := LoadJobsFile(jobsFile)
	if err != nil {
		return err
	}

	summaries := app.RunJobs(context.Background(), jobs)

	failed := 0
	for _, s := range summaries {
		entry := log.Info()
		if !s.IsSuccess {
			failed++
			entry = log.Error().Err(s.Err)
		}
		entry.Str("job", s.JobName).Str("final_stage", s.FinalStage).Bool("success", s.IsSuccess).Msg("job finished")
	}

	if failed > 0 {
		return fmt.Errorf("%d/%d jobs failed", failed, len(summaries))
	}
	return nil
}

// runWithGracefulShutdown starts the operational HTTP server and blocks
// until a shutdown signal or context cancellation.
func runWithGracefulShutdown(ctx context.Context, app *App, log zerolog.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Serve(runCtx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Msg("bolt started successfully")

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("context cancelled, initiating shutdown")
	}

	cancel()
	app.Shutdown()
	log.Info().Msg("graceful shutdown complete")
	return nil
}

func runVersion(*cobra.Command, []string) {
	fmt.Println(banner)
	fmt.Println()
	fmt.Printf("Bolt\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("log-level").Changed {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("log-pretty")
	}
	if cmd.Flag("listen-addr").Changed {
		cfg.API.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}
	if cmd.Flag("num-tries").Changed {
		cfg.Runner.NumTries, _ = cmd.Flags().GetInt("num-tries")
	}
	if cmd.Flag("poll-interval").Changed {
		cfg.Runner.PollInterval, _ = cmd.Flags().GetDuration("poll-interval")
	}
}
