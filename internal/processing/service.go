package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ftmwcat/internal/batch"
	"github.com/RMahshie/ftmwcat/internal/categorize"
	"github.com/RMahshie/ftmwcat/internal/fitting"
	"github.com/RMahshie/ftmwcat/internal/hardware"
	"github.com/RMahshie/ftmwcat/internal/metrics"
	"github.com/RMahshie/ftmwcat/internal/repository"
	"github.com/RMahshie/ftmwcat/internal/storage"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

var (
	// ErrAlreadyRunning is returned when a batch is processed twice concurrently
	ErrAlreadyRunning = errors.New("batch is already running")
	// ErrNotPending is returned when a batch has already been run
	ErrNotPending = errors.New("batch is not pending")
)

type ProcessingService interface {
	ProcessBatch(ctx context.Context, batchID uuid.UUID) error
	Cancel(batchID uuid.UUID) bool
}

type processingService struct {
	repository repository.BatchRepository
	executor   hardware.ScanExecutor
	fitter     fitting.Fitter
	s3         storage.S3Service // nil disables signal archiving
	engineOpts []categorize.Option
	plot       batch.PlotFunc
	metrics    *metrics.Metrics

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

// Option configures the processing service
type Option func(*processingService)

// WithSignalArchive uploads every raw scan signal to object storage
func WithSignalArchive(s3Service storage.S3Service) Option {
	return func(s *processingService) {
		s.s3 = s3Service
	}
}

// WithEngineOptions passes options through to the categorization engine
func WithEngineOptions(opts ...categorize.Option) Option {
	return func(s *processingService) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithPlotter forwards per-scan plot payloads to fn
func WithPlotter(fn batch.PlotFunc) Option {
	return func(s *processingService) {
		s.plot = fn
	}
}

// WithMetrics records scan and batch counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *processingService) {
		s.metrics = m
	}
}

func NewProcessingService(repo repository.BatchRepository, executor hardware.ScanExecutor, fitter fitting.Fitter, opts ...Option) ProcessingService {
	s := &processingService{
		repository: repo,
		executor:   executor,
		fitter:     fitter,
		running:    make(map[uuid.UUID]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cancel stops a running batch between scans. It reports whether the batch
// was running.
func (s *processingService) Cancel(batchID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, ok := s.running[batchID]
	if ok {
		cancel()
	}
	return ok
}

func (s *processingService) register(ctx context.Context, batchID uuid.UUID) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.running[batchID]; ok {
		return nil, nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running[batchID] = cancel

	return ctx, func() {
		s.mu.Lock()
		delete(s.running, batchID)
		s.mu.Unlock()
		cancel()
	}, nil
}

func (s *processingService) ProcessBatch(ctx context.Context, batchID uuid.UUID) error {
	ctx, done, err := s.register(ctx, batchID)
	if err != nil {
		return err
	}
	defer done()

	// Step 1: Load the worklist
	record, err := s.repository.GetByID(ctx, batchID)
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}
	// registration serializes runs of the same batch, so a second run sees
	// the status written by the first
	if record.Status != models.StatusPending {
		return fmt.Errorf("%w: status is %s", ErrNotPending, record.Status)
	}

	opts := []batch.Option{batch.WithEngineOptions(s.engineOpts...)}
	if s.plot != nil {
		opts = append(opts, batch.WithPlotter(s.plot))
	}
	driver, err := batch.New(record.Entries, record.Tests, record.MaxAttenuation, opts...)
	if err != nil {
		return s.fail(ctx, batchID, fmt.Errorf("invalid batch: %w", err))
	}

	// Step 2: Mark processing
	if err := s.repository.UpdateStatus(ctx, batchID, models.StatusProcessing, 0); err != nil {
		return err
	}
	s.metrics.BatchStarted()
	status := models.StatusFailed
	defer func() { s.metrics.BatchFinished(status) }()
	log.Info().
		Str("batchID", record.ID).
		Int("entries", driver.Len()).
		Int("shotEstimate", driver.TotalShotEstimate()).
		Msg("Starting batch")

	// Step 3: Scan until every entry is categorized
	stored := 0
	progress := 0
	for !driver.IsComplete() {
		if ctx.Err() != nil {
			status = models.StatusCancelled
			return s.cancelled(ctx, batchID, driver)
		}

		tmpl, _ := driver.NextScan()
		scan, err := s.executor.Execute(ctx, tmpl)
		if err != nil {
			if ctx.Err() != nil {
				status = models.StatusCancelled
				return s.cancelled(ctx, batchID, driver)
			}
			return s.fail(ctx, batchID, fmt.Errorf("scan execution failed: %w", err))
		}

		if s.s3 != nil {
			s.archive(ctx, record.ID, scan)
		}

		fit, err := s.fitter.Fit(ctx, scan)
		if err != nil {
			if ctx.Err() != nil {
				status = models.StatusCancelled
				return s.cancelled(ctx, batchID, driver)
			}
			return s.fail(ctx, batchID, fmt.Errorf("fit failed for scan %d: %w", scan.Number, err))
		}

		step, err := driver.OnScanCompleted(scan, fit)
		if err != nil {
			return s.fail(ctx, batchID, err)
		}
		s.metrics.ObserveScan(step, tmpl.Shots)

		// Step 4: Persist finalized entries
		if step.Action == categorize.ActionFinal {
			if err := s.persist(ctx, batchID, driver, stored); err != nil {
				return s.fail(ctx, batchID, err)
			}
			for _, o := range driver.Outcomes()[stored:] {
				s.metrics.ObserveOutcome(o.Category)
			}
			stored = len(driver.Outcomes())
		}

		if p := driver.Progress(); p != progress && !driver.IsComplete() {
			progress = p
			if err := s.repository.UpdateStatus(ctx, batchID, models.StatusProcessing, progress); err != nil {
				return err
			}
		}
	}

	// Step 5: Mark complete
	log.Info().Str("batchID", record.ID).Int("shots", driver.ShotsTaken()).Msg("Batch complete")
	if err := s.repository.UpdateStatus(ctx, batchID, models.StatusCompleted, 100); err != nil {
		return err
	}
	status = models.StatusCompleted
	return nil
}

// persist stores the scan records and outcomes finalized since the last call
func (s *processingService) persist(ctx context.Context, batchID uuid.UUID, driver *batch.Driver, stored int) error {
	outcomes := driver.Outcomes()
	for _, outcome := range outcomes[stored:] {
		records := driver.EntryResults(outcome.EntryIndex)
		if err := s.repository.AppendScanResults(ctx, batchID, records); err != nil {
			return fmt.Errorf("failed to store scan results: %w", err)
		}
		if err := s.repository.StoreOutcome(ctx, batchID, outcome); err != nil {
			return fmt.Errorf("failed to store outcome: %w", err)
		}
	}
	return nil
}

// archive uploads the raw signal of a scan. Failures are logged and do not
// stop the batch.
func (s *processingService) archive(ctx context.Context, batchID string, scan models.CompletedScan) {
	data, err := json.Marshal(scan)
	if err != nil {
		log.Warn().Err(err).Int("scan", scan.Number).Msg("Failed to encode signal")
		return
	}
	key := storage.SignalKey(batchID, scan.Number)
	if err := s.s3.UploadFile(ctx, key, data, "application/json"); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to archive signal")
	}
}

func (s *processingService) cancelled(ctx context.Context, batchID uuid.UUID, driver *batch.Driver) error {
	log.Warn().
		Str("batchID", batchID.String()).
		Int("entry", driver.Index()).
		Msg("Batch cancelled, discarding partial entry")

	if err := s.repository.UpdateStatus(context.WithoutCancel(ctx), batchID, models.StatusCancelled, driver.Progress()); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *processingService) fail(ctx context.Context, batchID uuid.UUID, cause error) error {
	log.Error().Err(cause).Str("batchID", batchID.String()).Msg("Batch failed")
	if err := s.repository.UpdateError(context.WithoutCancel(ctx), batchID, cause.Error()); err != nil {
		log.Error().Err(err).Msg("Failed to record batch error")
	}
	return cause
}
