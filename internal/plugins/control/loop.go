package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"autounpack/internal/config"
	"autounpack/internal/logging"
	"autounpack/internal/plugin"
	"autounpack/internal/store"
)

// ErrLoopLimitExceeded is returned when the monitored context is still
// populated after max_loops executions of the nested flow.
var ErrLoopLimitExceeded = errors.New("loop limit exceeded")

const (
	defaultMaxLoops     = 1024
	defaultLoopInterval = 1.0
)

// LoopConfig configures the loop step. A negative MaxLoops removes the cap.
// LoopInterval is in seconds. WatchDirs, when set, end a sleep early as soon
// as anything changes inside one of them.
type LoopConfig struct {
	plugin.LoadKey `yaml:",inline"`
	Steps          []map[string]any `yaml:"steps"`
	MaxLoops       int              `yaml:"max_loops"`
	LoopInterval   float64          `yaml:"loop_interval"`
	WatchDirs      []string         `yaml:"watch_dirs"`
}

func (c *LoopConfig) SetDefaults() {
	c.MaxLoops = defaultMaxLoops
	c.LoopInterval = defaultLoopInterval
}

func (c *LoopConfig) Validate() error {
	if len(c.Steps) == 0 {
		return errors.New("steps must not be empty")
	}
	if c.LoopInterval < 0 {
		return fmt.Errorf("loop_interval must be >= 0, got %v", c.LoopInterval)
	}
	for i, dir := range c.WatchDirs {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return fmt.Errorf("watch_dirs[%d]: %w", i, err)
		}
		c.WatchDirs[i] = expanded
	}
	return nil
}

type loopPlugin struct {
	cfg    *LoopConfig
	flow   *plugin.Flow
	store  *store.Store
	logger *slog.Logger
}

// LoopDefinition registers the loop step.
func LoopDefinition() plugin.Definition {
	return plugin.Define("loop", "rerun nested steps until a context drains", newLoop)
}

func newLoop(cfg *LoopConfig, deps plugin.Deps) (plugin.Plugin, error) {
	flow, err := plugin.Build(cfg.Steps, deps, plugin.WithLabelPrefix("loop"))
	if err != nil {
		return nil, err
	}
	return &loopPlugin{cfg: cfg, flow: flow, store: deps.Store, logger: deps.Logger}, nil
}

func (p *loopPlugin) Execute(ctx context.Context) error {
	logger := logging.WithContext(ctx, p.logger)
	key := p.cfg.LoadFrom()

	waiter, err := newLoopWaiter(time.Duration(p.cfg.LoopInterval*float64(time.Second)), p.cfg.WatchDirs)
	if err != nil {
		return err
	}
	defer waiter.Close()

	current, err := p.store.Load(key)
	if err != nil {
		return err
	}
	executions := 0
	for !current.Empty() {
		if p.cfg.MaxLoops >= 0 && executions >= p.cfg.MaxLoops {
			return fmt.Errorf("%w: %q still holds %d files after %d iterations",
				ErrLoopLimitExceeded, key, current.Len(), executions)
		}
		logger.Info("loop iteration",
			logging.Int("iteration", executions+1),
			logging.Int("pending", current.Len()),
			logging.String("load_key", key),
		)
		if err := p.flow.Run(ctx); err != nil {
			return err
		}
		executions++
		if current, err = p.store.Load(key); err != nil {
			return err
		}
		if current.Empty() {
			break
		}
		if err := waiter.Wait(ctx); err != nil {
			return err
		}
	}
	logger.Info("loop drained",
		logging.Int("iterations", executions),
		logging.String("load_key", key),
	)
	return nil
}

type loopWaiter struct {
	interval time.Duration
	watcher  *fsnotify.Watcher
}

func newLoopWaiter(interval time.Duration, dirs []string) (*loopWaiter, error) {
	w := &loopWaiter{interval: interval}
	if len(dirs) == 0 {
		return w, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.watcher = watcher
	return w, nil
}

// Wait blocks for the interval, a change in a watched directory, or
// cancellation, whichever comes first.
func (w *loopWaiter) Wait(ctx context.Context) error {
	var events <-chan fsnotify.Event
	if w.watcher != nil {
		w.drain()
		events = w.watcher.Events
	}
	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	case <-events:
	}
	return nil
}

func (w *loopWaiter) drain() {
	for {
		select {
		case <-w.watcher.Events:
		case <-w.watcher.Errors:
		default:
			return
		}
	}
}

func (w *loopWaiter) Close() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}
