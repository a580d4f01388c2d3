package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"filefeed/internal/config"
	"filefeed/internal/emit"
	"filefeed/internal/event"
	"filefeed/internal/parse"
	"filefeed/internal/pool"
	"filefeed/internal/watch"
)

// Parser converts one file's bytes into a stream of records.
type Parser interface {
	Parse(ctx context.Context, path string, yield func(event.Record) error) error
}

// Service owns one ingestion pipeline: the folder watcher, the startup
// scan, the worker pool, and per-file processing. Construct with New,
// then Start and Stop explicitly; nothing here is process-global.
type Service struct {
	cfg      config.Config
	filter   Filter
	parser   Parser
	sender   event.Sender
	pool     *pool.Pool
	watcher  *watch.Watcher
	stats    Stats
	seq      int64
	emitWait time.Duration

	cancelWatch context.CancelFunc
}

// New builds a pipeline from a finalized config. The sender is injected;
// parsing variant and schema come from the config.
func New(cfg config.Config, sender event.Sender) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		filter: Filter{Prefix: cfg.FilePrefix, Extension: cfg.FileExtension},
		sender: sender,
		pool:   pool.New(cfg.MaxActiveTasks, cfg.MaxQueuedTasks),
	}

	switch cfg.FileType {
	case config.FileTypeFixedWidth:
		p, err := parse.NewFixedWidth(cfg.FixedFields, cfg.FixedRecordSize)
		if err != nil {
			return nil, fmt.Errorf("fixed-width schema: %w", err)
		}
		s.parser = p
	default:
		s.parser = parse.Delimited{
			Delimiter:         cfg.Delimiter,
			Schema:            cfg.FieldNames,
			ProcessNullValues: cfg.ProcessNullValues,
			SkipFirstLine:     cfg.SkipFirstLine,
		}
		// the delay between segment emissions applies to the delimited
		// variant only
		s.emitWait = time.Duration(cfg.WaitBetweenTxMs) * time.Millisecond
	}
	return s, nil
}

// Start launches the worker pool and the watcher loop, then runs the
// startup scan when processExistingFiles is set. The watcher is live
// before the scan begins, so a file arriving during the scan can be
// observed by both producers; neither de-duplicates by path.
func (s *Service) Start() error {
	s.pool.Start()

	w, err := watch.New(s.cfg.FileFolderPath, s.submit)
	if err != nil {
		return err
	}
	s.watcher = w

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelWatch = cancel
	go w.Run(ctx)

	if s.cfg.ProcessExistingFiles {
		log.Info().Str("dir", s.cfg.FileFolderPath).Msg("start working on existing files in folder")
		if err := s.scanExisting(); err != nil {
			log.Error().Str("dir", s.cfg.FileFolderPath).Err(err).Msg("existing-files scan failed")
		}
	}
	return nil
}

// scanExisting submits every file already present in the folder that
// passes the filter, once, in directory-listing order.
func (s *Service) scanExisting() error {
	entries, err := os.ReadDir(s.cfg.FileFolderPath)
	if err != nil {
		return fmt.Errorf("list %s: %w", s.cfg.FileFolderPath, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		s.submit(entry.Name())
	}
	return nil
}

// submit filters one observed name and hands a FileTask to the pool.
// Rejections are logged and counted; the file stays on disk untouched.
func (s *Service) submit(name string) {
	if !s.filter.Accept(name) {
		return
	}
	task := pool.Task{
		ID:   uuid.NewString(),
		Path: filepath.Join(s.cfg.FileFolderPath, name),
	}
	seq := atomic.AddInt64(&s.seq, 1)
	task.Run = func(ctx context.Context) error {
		return s.process(ctx, task.ID, task.Path)
	}

	if err := s.pool.Submit(task); err != nil {
		s.stats.addRejected()
		log.Error().Str("task_id", task.ID).Str("path", task.Path).Err(err).
			Msg("submission dropped, file left on disk")
		return
	}
	s.stats.addSubmitted()
	log.Info().Str("task_id", task.ID).Str("path", task.Path).Int64("arrival", seq).Msg("file submitted")
}

// process runs one FileTask end to end: parse, emit segments, then the
// terminal transition. Any failure before the transition leaves the
// file under its original name.
func (s *Service) process(ctx context.Context, taskID, path string) error {
	log.Info().Str("task_id", taskID).Str("path", path).Msg("start executing")

	emitter := emit.New(path, s.cfg.MaxLinesInEvent, s.emitWait, s.sender)
	if err := s.parser.Parse(ctx, path, emitter.Add); err != nil {
		s.stats.addFailed()
		return fmt.Errorf("parse: %w", err)
	}
	emitter.Flush()
	s.stats.addSegments(emitter.Segments())

	if err := s.finishFile(path); err != nil {
		// the file keeps its original name; a restart with
		// processExistingFiles picks it up again
		s.stats.addFailed()
		return fmt.Errorf("post-processing: %w", err)
	}
	s.stats.addProcessed()
	log.Info().Str("task_id", taskID).Str("path", path).
		Int("segments", emitter.Segments()).Int("records", emitter.Records()).
		Msg("file processed")
	return nil
}

// Stop shuts the pipeline down: the watcher stops producing, queued
// tasks are dropped, and in-flight tasks get until ctx expires to
// finish. Returns true when everything wound down in time.
func (s *Service) Stop(ctx context.Context) bool {
	if s.cancelWatch != nil {
		s.cancelWatch()
	}
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("watcher close warning")
		}
	}
	return s.pool.Stop(ctx)
}

// StatsSnapshot reports the pipeline counters plus current pool load.
func (s *Service) StatsSnapshot() Snapshot {
	snap := s.stats.snapshot()
	snap.Queued = s.pool.Queued()
	if active := s.pool.InFlight() - snap.Queued; active > 0 {
		snap.Active = active
	}
	return snap
}
