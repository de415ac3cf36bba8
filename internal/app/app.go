package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"autounpack/internal/archive"
	"autounpack/internal/builtin"
	"autounpack/internal/config"
	"autounpack/internal/ledger"
	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/preflight"
	"autounpack/internal/store"
)

// ErrAlreadyRunning is returned when another run holds the lock.
var ErrAlreadyRunning = errors.New("another autounpack run is in progress")

// ErrPreflight is returned when a required directory or binary is unusable.
var ErrPreflight = errors.New("preflight check failed")

// ErrConfigMissing is returned when no configuration file was found.
var ErrConfigMissing = errors.New("configuration file not found")

// Options configures a run.
type Options struct {
	ConfigPath string
	Mode       string
	LogLevel   string
	// Logger replaces the logger built from the configuration.
	Logger *slog.Logger
	// Tool replaces the 7-Zip client used by archive steps.
	Tool archive.Tool
	// Definitions are registered after the built-in steps and may shadow
	// them.
	Definitions []plugin.Definition
}

// ContextSize is the number of refs left under a context key.
type ContextSize struct {
	Key   string
	Files int
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	ConfigPath string
	LogPath    string
	Steps      int
	Contexts   []ContextSize
	Elapsed    time.Duration
}

// Run executes the configured flow once.
func Run(ctx context.Context, opts Options) (_ *Summary, err error) {
	started := time.Now()
	cfg, cfgPath, exists, err := config.Load(opts.ConfigPath, opts.Mode)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s (create one with 'autounpack config init')", ErrConfigMissing, cfgPath)
	}
	if level := strings.ToLower(strings.TrimSpace(opts.LogLevel)); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.ValidateFlow(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger, logPath := opts.Logger, ""
	if logger == nil {
		if logger, logPath, err = logging.NewFromConfig(cfg, runID); err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}
	logger = logging.NewComponentLogger(logger, "app")
	ctx = logging.WithRunID(ctx, runID)
	logger = logging.WithContext(ctx, logger)
	if removed := logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath); removed > 0 {
		logger.Debug("old run logs pruned", logging.Int("removed", removed))
	}

	for _, check := range preflight.Failed(preflight.RunAll(cfg)) {
		if check.Name == preflight.SevenZipCheck && opts.Tool != nil {
			continue
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrPreflight, check.Name, check.Detail)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logging.WarnWithContext(logger, "run lock not released", "lock_release_failed",
				logging.Error(unlockErr),
				logging.String(logging.FieldImpact, "the next run may report a concurrent run"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no run is active"),
			)
		}
	}()

	if cfg.App.ClearInfoDir {
		if err := clearDir(cfg.Paths.InfoDir, cfg.LockPath()); err != nil {
			return nil, fmt.Errorf("clear info directory: %w", err)
		}
	}

	archiveOpts := []archive.Option{archive.WithTool(opts.Tool)}
	if cfg.Ledger.Enabled {
		l, openErr := ledger.Open(ctx, cfg.Ledger.Path)
		if openErr != nil {
			return nil, fmt.Errorf("open ledger: %w", openErr)
		}
		defer l.Close()
		if err := l.StartRun(ctx, runID, cfgPath, started); err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
		defer func() {
			// The run context may already be cancelled.
			if finishErr := l.FinishRun(context.WithoutCancel(ctx), runID, time.Now(), err); finishErr != nil {
				logging.WarnWithContext(logger, "run end not recorded", "ledger_write_failed",
					logging.Error(finishErr),
					logging.String(logging.FieldImpact, "history shows this run as still running"),
					logging.String(logging.FieldErrorHint, "check the ledger path and permissions"),
				)
			}
		}()
		archiveOpts = append(archiveOpts, archive.WithRecorder(l))
	}

	registry := builtin.NewRegistry(logger, archiveOpts...)
	registry.Register(opts.Definitions...)

	st := store.New()
	deps := plugin.Deps{
		Store:    st,
		Registry: registry,
		Logger:   logger,
		Global: plugin.Global{
			InfoDir:  cfg.Paths.InfoDir,
			CacheDir: cfg.Paths.CacheDir,
			SevenZip: cfg.SevenZip,
			RunID:    runID,
		},
	}
	flow, err := plugin.Build(cfg.Flow.Steps, deps)
	if err != nil {
		return nil, err
	}

	logger.Info("run started",
		logging.String("config", cfgPath),
		logging.Int("steps", flow.Len()),
		logging.String(logging.FieldEventType, "run_start"),
	)
	if err = flow.Run(ctx); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:      runID,
		ConfigPath: cfgPath,
		LogPath:    logPath,
		Steps:      flow.Len(),
		Elapsed:    time.Since(started),
	}
	snapshot := st.Snapshot()
	for _, key := range st.Keys() {
		summary.Contexts = append(summary.Contexts, ContextSize{Key: key, Files: snapshot[key].Len()})
	}
	logger.Info("run finished",
		logging.Duration("elapsed", summary.Elapsed.Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	return summary, nil
}

// clearDir removes every entry in dir except keep.
func clearDir(dir, keep string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if path == keep {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
