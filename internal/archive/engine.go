package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"autounpack/internal/fileutil"
	"autounpack/internal/logging"
	"autounpack/internal/services/sevenzip"
	"autounpack/internal/store"
)

// destinationMu serializes choosing a free output name and moving the
// scratch directory there.
var destinationMu sync.Mutex

// run is the state of one Execute call.
type run struct {
	engine    *Engine
	records   []record
	passwords []string
	scratch   *scratch
	logger    *slog.Logger
}

// Execute runs the configured phases over the loaded context.
func (e *Engine) Execute(ctx context.Context) (err error) {
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	passwords, err := LoadPasswords(e.cfg.PasswordPath)
	if err != nil {
		return err
	}
	loaded, err := e.store.Load(e.cfg.LoadFrom())
	if err != nil {
		return err
	}
	logger.Info("archive step started",
		logging.String("mode", e.cfg.Mode),
		logging.String("result_processing_mode", e.cfg.ResultProcessingMode),
		logging.Int("files", loaded.Len()),
		logging.Int("passwords", len(passwords)-1),
	)

	r := &run{
		engine:    e,
		records:   make([]record, len(loaded.Files)),
		passwords: passwords,
		scratch:   newScratch(filepath.Join(e.global.CacheDir, "archive", e.global.RunID)),
		logger:    logger,
	}
	for i, ref := range loaded.Files {
		r.records[i] = record{ref: ref, status: StatusInit}
	}
	defer func() {
		if cleanupErr := r.scratch.Cleanup(); cleanupErr != nil {
			logging.WarnWithContext(logger, "scratch cleanup incomplete", "archive_scratch_cleanup",
				logging.Error(cleanupErr),
				logging.String(logging.FieldImpact, "leftover directories remain in the cache"),
				logging.String(logging.FieldErrorHint, "remove the cache directory manually"),
			)
		}
	}()

	if err := r.list(ctx); err != nil {
		return fmt.Errorf("list: %w", err)
	}
	switch e.cfg.Mode {
	case ModeTest:
		if err := r.test(ctx); err != nil {
			return fmt.Errorf("test: %w", err)
		}
	case ModeExtract:
		if err := r.extract(ctx); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
	}

	success, failure := r.project()
	e.store.Save(e.cfg.SaveTo(), success)
	if e.cfg.FailKey != "" {
		e.store.Save(e.cfg.FailKey, failure)
	}

	report := r.report(ctx)
	if e.cfg.StatFileName != "" {
		path, err := writeReport(e.global.InfoDir, e.cfg.StatFileName, report)
		if err != nil {
			return err
		}
		logger.Info("archive report saved", logging.String(logging.FieldPath, path))
	}
	if e.recorder != nil {
		step, _, _ := logging.StepFromContext(ctx)
		if recErr := e.recorder.RecordOutcomes(ctx, e.global.RunID, step, e.cfg.Mode, r.outcomes()); recErr != nil {
			logging.WarnWithContext(logger, "archive outcomes not recorded", "ledger_write_failed",
				logging.Error(recErr),
				logging.String(logging.FieldImpact, "history will miss this step"),
				logging.String(logging.FieldErrorHint, "check the ledger path and permissions"),
			)
		}
	}

	attrs := []logging.Attr{
		logging.Int("succeeded", success.Len()),
		logging.Int("failed", failure.Len()),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	}
	for _, c := range report.Counts {
		attrs = append(attrs, logging.Int(c.Status.Key(), c.Count))
	}
	logger.Info("archive step finished", logging.Args(attrs...)...)
	return nil
}

// list identifies every record. Records are grouped by directory and each
// group is walked by one worker so that members of an archive identified
// earlier in the group are skipped.
func (r *run) list(ctx context.Context) error {
	groups := make(map[string][]int)
	var order []string
	for i := range r.records {
		dir := filepath.Dir(r.records[i].path())
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.cfg.threads(r.engine.cfg.ListThreads))
	for _, dir := range order {
		members := groups[dir]
		g.Go(func() error {
			return r.listGroup(gctx, members)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.markVolumes()
	return nil
}

func (r *run) listGroup(ctx context.Context, members []int) error {
	var identified []*record
	for _, idx := range members {
		rec := &r.records[idx]
		if rec.isDir() {
			rec.status = StatusListFail
			rec.failure = &Failure{Message: fmt.Sprintf("skipping directory %s", rec.path())}
			logging.WarnWithContext(r.logger, "archive input is a directory", "archive_list_directory",
				logging.String(logging.FieldPath, rec.path()),
				logging.String(logging.FieldImpact, "directory is reported as a list failure"),
				logging.String(logging.FieldErrorHint, "filter directories out before the archive step"),
			)
			continue
		}
		if absorbed(identified, rec.path()) {
			continue
		}

		var last *sevenzip.Result
		for _, pw := range r.passwords {
			res, err := r.engine.tool.List(ctx, rec.path(), pw)
			if err != nil {
				return err
			}
			level := r.engine.policy.Level(res)
			if !level.Acceptable() {
				last = res
				continue
			}
			rec.status = StatusListSuccess
			rec.listed = res
			rec.info = &Info{
				IsVolume: res.IsVolume,
				Attrs:    res.Attrs,
				Volumes:  res.VolumePaths(),
				MainPath: res.MainVolumePath(),
			}
			rec.info.setPassword(pw)
			if level == sevenzip.LevelWarning {
				rec.failure = failureOf(res)
			}
			identified = append(identified, rec)
			break
		}
		if rec.status != StatusListSuccess {
			rec.status = StatusListFail
			rec.failure = failureOf(last)
			r.logFailure("archive not identified", "archive_list_failed", rec)
			continue
		}
		r.logger.Info("archive identified",
			logging.String(logging.FieldPath, rec.path()),
			logging.String("type", rec.info.Attrs.Type()),
			logging.Bool("is_volume", rec.info.IsVolume),
			logging.Int("volumes", len(rec.info.Volumes)),
		)
	}
	return nil
}

func absorbed(identified []*record, path string) bool {
	for _, rec := range identified {
		if rec.info.includes(path) {
			return true
		}
	}
	return false
}

// markVolumes hands the identification of each archive to its entry
// volume when that file is part of the input, and tags every other member
// as LIST_VOLUME, including members whose own listing failed.
func (r *run) markVolumes() {
	for i := range r.records {
		rec := &r.records[i]
		if rec.status != StatusListSuccess {
			continue
		}
		lead := rec
		if !samePath(rec.path(), rec.info.MainPath) {
			primary := r.find(rec.info.MainPath, StatusInit)
			if primary == nil {
				primary = r.find(rec.info.MainPath, StatusListFail)
			}
			if primary != nil && !primary.isDir() {
				primary.status = StatusListSuccess
				primary.info = rec.info.clone()
				primary.listed = rec.listed
				primary.failure = rec.failure
				lead = primary
			}
		}
		for j := range r.records {
			member := &r.records[j]
			if member == lead || !lead.info.includes(member.path()) {
				continue
			}
			switch member.status {
			case StatusInit, StatusListSuccess:
			case StatusListFail:
				// Trailing zip spans cannot be opened on their own.
				if member.isDir() {
					continue
				}
			default:
				continue
			}
			member.status = StatusListVolume
			member.info = lead.info.clone()
			member.listed = lead.listed
			member.failure = nil
		}
	}
}

func (r *run) find(path string, status Status) *record {
	for i := range r.records {
		if r.records[i].status == status && samePath(r.records[i].path(), path) {
			return &r.records[i]
		}
	}
	return nil
}

// leads returns the records that still represent an archive after listing.
func (r *run) leads() []*record {
	var out []*record
	for i := range r.records {
		if r.records[i].status == StatusListSuccess {
			out = append(out, &r.records[i])
		}
	}
	return out
}

// attempt runs op with the cached password first, then every other
// candidate, and returns the first accepted result with its password.
func (r *run) attempt(rec *record, op func(pw string) (*sevenzip.Result, error)) (*sevenzip.Result, string, bool, error) {
	cached := rec.info.password()
	candidates := make([]string, 0, len(r.passwords)+1)
	candidates = append(candidates, cached)
	for _, pw := range r.passwords {
		if pw != cached {
			candidates = append(candidates, pw)
		}
	}

	var last *sevenzip.Result
	for _, pw := range candidates {
		res, err := op(pw)
		if err != nil {
			return nil, "", false, err
		}
		level := r.engine.policy.Level(withListedAttrs(res, rec.listed))
		if level.Acceptable() {
			if level == sevenzip.LevelWarning {
				rec.failure = failureOf(res)
			}
			return res, pw, true, nil
		}
		last = res
	}
	return last, "", false, nil
}

// withListedAttrs fills archive attributes the test or extract output did
// not repeat from the listing, so recoverable rules can match on them.
func withListedAttrs(res, listed *sevenzip.Result) *sevenzip.Result {
	if res == nil || listed == nil || res.Attrs.Type() != "" {
		return res
	}
	merged := *res
	merged.Attrs = listed.Attrs.Clone()
	for k, v := range res.Attrs {
		merged.Attrs[k] = v
	}
	return &merged
}

func (r *run) test(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.cfg.threads(r.engine.cfg.TestThreads))
	for _, rec := range r.leads() {
		g.Go(func() error {
			r.logger.Info("testing archive", logging.String(logging.FieldPath, rec.path()))
			res, pw, ok, err := r.attempt(rec, func(pw string) (*sevenzip.Result, error) {
				return r.engine.tool.Test(gctx, rec.info.MainPath, pw)
			})
			if err != nil {
				return err
			}
			if !ok {
				rec.status = StatusTestFail
				rec.failure = failureOf(res)
				r.logFailure("archive test failed", "archive_test_failed", rec)
				return nil
			}
			rec.status = StatusTestSuccess
			rec.info.setPassword(pw)
			return nil
		})
	}
	return g.Wait()
}

func (r *run) extract(ctx context.Context) error {
	leads := r.leads()
	if len(leads) == 0 {
		return nil
	}
	outputDir := r.engine.cfg.OutputDir
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.cfg.threads(r.engine.cfg.ExtractThreads))
	for _, rec := range leads {
		g.Go(func() error {
			r.logger.Info("extracting archive", logging.String(logging.FieldPath, rec.path()))
			var dir string
			res, pw, ok, err := r.attempt(rec, func(pw string) (*sevenzip.Result, error) {
				var mkErr error
				if dir, mkErr = r.scratch.New(); mkErr != nil {
					return nil, mkErr
				}
				return r.engine.tool.Extract(gctx, rec.info.MainPath, pw, dir, r.engine.cfg.KeepDir)
			})
			if err != nil {
				return err
			}
			if !ok {
				rec.status = StatusExtractFail
				rec.failure = failureOf(res)
				r.logFailure("archive extraction failed", "archive_extract_failed", rec)
				return nil
			}
			output, err := claimDestination(dir, outputDir, sevenzip.BaseName(rec.path()))
			if err != nil {
				rec.status = StatusExtractFail
				rec.failure = &Failure{Message: err.Error()}
				r.logFailure("archive output not moved", "archive_move_failed", rec)
				return nil
			}
			rec.status = StatusExtractSuccess
			rec.output = output
			rec.info.setPassword(pw)
			r.logger.Info("archive extracted",
				logging.String(logging.FieldPath, rec.path()),
				logging.String("output", output),
			)
			return nil
		})
	}
	return g.Wait()
}

// claimDestination moves dir to the first free "<outputDir>/<name>" or
// "<name>(n)" path.
func claimDestination(dir, outputDir, name string) (string, error) {
	destinationMu.Lock()
	defer destinationMu.Unlock()
	target := fileutil.NextAvailablePath(filepath.Join(outputDir, name), true)
	if err := fileutil.Move(dir, target); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", dir, target, err)
	}
	return target, nil
}

// project partitions the records into the success and fail contexts.
func (r *run) project() (store.Context, store.Context) {
	var ok, failed []store.FileRef
	for i := range r.records {
		rec := &r.records[i]
		if rec.status.succeeded(r.engine.cfg.Mode) {
			ok = append(ok, rec.ref)
			continue
		}
		failed = append(failed, rec.ref)
	}
	return store.NewContext(ok...), store.NewContext(failed...)
}

func (r *run) outcomes() []Outcome {
	out := make([]Outcome, 0, len(r.records))
	for i := range r.records {
		rec := &r.records[i]
		o := Outcome{Path: rec.path(), Status: rec.status, Output: rec.output}
		if rec.failure != nil {
			o.Message = rec.failure.Message
			if rec.failure.Code != nil {
				o.Code = rec.failure.Code.String()
			}
		}
		out = append(out, o)
	}
	return out
}

func (r *run) logFailure(msg, eventType string, rec *record) {
	attrs := []logging.Attr{
		logging.String(logging.FieldPath, rec.path()),
		logging.String(logging.FieldStatus, rec.status.String()),
		logging.String(logging.FieldImpact, "file is routed to the fail context"),
		logging.String(logging.FieldErrorHint, "add the password to the password file or check the archive"),
	}
	if rec.failure != nil && rec.failure.Code != nil {
		attrs = append(attrs, logging.String("code", rec.failure.Code.String()))
	}
	logging.WarnWithContext(r.logger, msg, eventType, attrs...)
}
