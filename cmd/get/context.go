package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	httpAdapter "github.com/cwygoda/get/internal/adapter/http"
	"github.com/cwygoda/get/internal/adapter/sqlite"
	"github.com/cwygoda/get/internal/config"
	"github.com/cwygoda/get/internal/domain"
	"github.com/cwygoda/get/internal/logging"
	"github.com/cwygoda/get/internal/metrics"
	"github.com/cwygoda/get/internal/origin"
	"github.com/cwygoda/get/internal/textutil"
	"github.com/cwygoda/get/internal/worker"
)

type globalFlags struct {
	configFile  string
	envFile     string
	workers     int
	maxAttempts int
	timeout     time.Duration
	stateDB     string
	logLevel    string
	logFile     string
	listen      string
}

// commandContext carries what every subcommand shares: configuration, the
// logger, metrics and lazily opened state.
type commandContext struct {
	flags globalFlags

	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	closeLog func() error

	repo   *sqlite.Repository
	server *httpAdapter.Server
	locks  []*flock.Flock
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{File: c.flags.configFile, EnvFile: c.flags.envFile})
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Workers = c.flags.workers
	}
	if f.Changed("max-attempts") {
		cfg.MaxAttempts = c.flags.maxAttempts
	}
	if f.Changed("timeout") {
		cfg.Timeout = c.flags.timeout
	}
	if f.Changed("state-db") {
		cfg.StateDB = c.flags.stateDB
	}
	if f.Changed("log-level") {
		cfg.LogLevel = c.flags.logLevel
	}
	if f.Changed("log-file") {
		cfg.LogFile = c.flags.logFile
	}
	if f.Changed("listen") {
		cfg.Listen = c.flags.listen
	}

	logger, closeLog, err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger.With("command", cmd.Name())
	c.closeLog = closeLog
	c.metrics = metrics.New()
	return nil
}

// validate runs after subcommands applied their own flags and arguments.
func (c *commandContext) validate() error {
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *commandContext) originPool(header http.Header) *origin.Pool {
	opts := origin.DefaultOptions()
	opts.Timeout = c.cfg.Timeout
	opts.Header = header
	return origin.NewPool(opts)
}

func (c *commandContext) retryPolicy() worker.RetryPolicy {
	return worker.RetryPolicy{MaxAttempts: c.cfg.MaxAttempts}
}

// jobService opens the state database on first use.
func (c *commandContext) jobService() (*domain.JobService, *sqlite.Repository, error) {
	if c.repo == nil {
		repo, err := sqlite.New(c.cfg.StateDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open state db %s: %w", c.cfg.StateDB, err)
		}
		c.repo = repo
	}
	return domain.NewJobService(c.repo), c.repo, nil
}

// lock takes an exclusive process lock named after key, so two runs never
// write the same destination concurrently.
func (c *commandContext) lock(key string) error {
	path := filepath.Join(filepath.Dir(c.cfg.StateDB), "locks", textutil.SanitizeSegment(key)+".lock")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another run is already writing to %s", key)
	}
	c.locks = append(c.locks, l)
	return nil
}

// serve starts the status server when an address is configured.
func (c *commandContext) serve() error {
	if c.cfg.Listen == "" {
		return nil
	}
	svc, _, err := c.jobService()
	if err != nil {
		return err
	}
	c.server = httpAdapter.NewServer(svc, c.metrics.Handler(), c.cfg.Listen, c.logger)
	go func() {
		c.logger.Info("status server listening", "addr", c.server.Addr())
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("status server", "err", err)
		}
	}()
	return nil
}

// run wraps a subcommand body so shared state is released even when the
// body fails, and counts the run in metrics.
func (c *commandContext) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			c.metrics.RunDone(cmd.Name(), err)
			err = errors.Join(err, c.close())
		}()
		return fn(cmd, args)
	}
}

func (c *commandContext) close() error {
	var errs []error
	if c.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, c.server.Shutdown(ctx))
		cancel()
	}
	for _, l := range c.locks {
		errs = append(errs, l.Unlock())
	}
	if c.repo != nil {
		errs = append(errs, c.repo.Close())
	}
	if c.closeLog != nil {
		errs = append(errs, c.closeLog())
	}
	return errors.Join(errs...)
}
