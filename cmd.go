package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/metcalfc/leaf/internal/config"
	"github.com/metcalfc/leaf/internal/logging"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	configPath string
	showTOC    bool
	fresh      bool
	bookID     int64
	logLevel   string
}

// frontEnd is what differs between the terminal and desktop readers.
type frontEnd struct {
	name  string
	short string
	long  string
	// logOutput opens the log destination.
	logOutput func(cfg *config.Config) (io.WriteCloser, error)
	// run shows the UI and blocks until the reader quits or ctx is done.
	run func(ctx context.Context, s *session, opts options) error
}

func newRootCmd(fe frontEnd) *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:          fe.name + " [book]",
		Short:        fe.short,
		Long:         fe.long,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBook(cmd.Context(), fe, opts, args[0])
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "config file path")
	root.Flags().BoolVar(&opts.showTOC, "toc", false, "show table of contents at startup")
	root.Flags().BoolVar(&opts.fresh, "fresh", false, "ignore saved reading position")
	root.Flags().Int64Var(&opts.bookID, "book-id", 0, "book id used for bookmarks (default: derived from the book's content)")
	root.Flags().StringVar(&opts.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	root.AddCommand(newVersionCmd(fe.name), newConfigCmd(&opts))
	return root
}

func newVersionCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of " + name,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit: %s, built: %s)\n", name, version, commit, date)
		},
	}
}

func newConfigCmd(opts *options) *cobra.Command {
	var force bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			}
			if err := config.DefaultConfig().Save(opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)
	return configCmd
}

func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runBook opens path and hands it to the front-end. The host loop runs on
// its own goroutine; the UI keeps the calling one, which some toolkits need.
func runBook(ctx context.Context, fe frontEnd, opts options, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	out, err := fe.logOutput(cfg)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer out.Close()

	logger := logging.New(logging.Config{
		Level:      logging.ParseLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		TimeFormat: time.RFC3339,
		Output:     out,
	})
	ctx = logging.WithContext(ctx, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := newSession(ctx, cfg, opts, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.close(); err != nil {
			logger.Warn().Err(err).Msg("closing session")
		}
	}()

	if err := sess.open(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return sess.manager.Run(gctx)
	})

	uiErr := fe.run(gctx, sess, opts)
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return uiErr
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
