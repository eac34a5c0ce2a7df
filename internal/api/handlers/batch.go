package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ftmwcat/internal/batch"
	"github.com/RMahshie/ftmwcat/internal/processing"
	"github.com/RMahshie/ftmwcat/internal/repository"
	"github.com/RMahshie/ftmwcat/internal/storage"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

// BatchHandler handles batch-related HTTP requests
type BatchHandler struct {
	repo           repository.BatchRepository
	s3Service      storage.S3Service
	processingSvc  processing.ProcessingService
	maxAttenuation int
}

// NewBatchHandler creates a new batch handler. s3Service may be nil when
// signal archiving is disabled.
func NewBatchHandler(repo repository.BatchRepository, s3Service storage.S3Service, processingSvc processing.ProcessingService, maxAttenuation int) *BatchHandler {
	return &BatchHandler{
		repo:           repo,
		s3Service:      s3Service,
		processingSvc:  processingSvc,
		maxAttenuation: maxAttenuation,
	}
}

// CreateBatch validates and stores a new worklist
func (h *BatchHandler) CreateBatch(ctx context.Context, req *models.CreateBatchRequest) (*models.CreateBatchResponse, error) {
	log.Info().Int("entries", len(req.Body.Entries)).Int("tests", len(req.Body.Tests)).Msg("Creating new batch")

	for i, e := range req.Body.Entries {
		if e.Template.Shots <= 0 {
			return nil, huma.Error400BadRequest(fmt.Sprintf("Entry %d must take at least one shot", i), nil)
		}
	}

	driver, err := batch.New(req.Body.Entries, req.Body.Tests, h.maxAttenuation)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid batch", err)
	}

	batchID := uuid.New()
	now := time.Now()
	record := &models.Batch{
		ID:             batchID.String(),
		Name:           req.Body.Name,
		Status:         models.StatusPending,
		Entries:        req.Body.Entries,
		Tests:          req.Body.Tests,
		MaxAttenuation: h.maxAttenuation,
		ShotEstimate:   driver.TotalShotEstimate(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.repo.Create(ctx, record); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create batch", err)
	}
	log.Info().Str("batchID", record.ID).Int("shotEstimate", record.ShotEstimate).Msg("Batch created")

	return &models.CreateBatchResponse{
		Body: models.CreateBatchResponseBody{
			ID:           record.ID,
			Entries:      driver.Len(),
			ShotEstimate: record.ShotEstimate,
		},
	}, nil
}

// GetBatchStatus returns the current status of a batch
func (h *BatchHandler) GetBatchStatus(ctx context.Context, req *models.GetBatchStatusRequest) (*models.GetBatchStatusResponse, error) {
	batchID, record, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	outcomes, err := h.repo.GetOutcomes(ctx, batchID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get outcomes", err)
	}

	message := generateStatusMessage(record.Status, record.Progress)
	if record.Status == models.StatusFailed && record.ErrorMsg != nil {
		message = *record.ErrorMsg
	}

	return &models.GetBatchStatusResponse{
		Body: models.GetBatchStatusResponseBody{
			ID:          record.ID,
			Status:      record.Status,
			Progress:    record.Progress,
			Message:     message,
			EntriesDone: len(outcomes),
		},
	}, nil
}

// GetBatchResults returns the scan log and outcomes of every finalized entry
func (h *BatchHandler) GetBatchResults(ctx context.Context, req *models.GetBatchResultsRequest) (*models.GetBatchResultsResponse, error) {
	batchID, record, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.StatusPending {
		return nil, huma.Error409Conflict("Batch has not been started",
			fmt.Errorf("batch status is %s", record.Status))
	}

	scans, err := h.repo.GetScanResults(ctx, batchID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get scan results", err)
	}
	outcomes, err := h.repo.GetOutcomes(ctx, batchID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get outcomes", err)
	}

	return &models.GetBatchResultsResponse{
		Body: models.GetBatchResultsResponseBody{
			ID:        record.ID,
			Status:    record.Status,
			Scans:     scans,
			Outcomes:  outcomes,
			CreatedAt: record.CreatedAt,
		},
	}, nil
}

// StartBatch runs a pending batch in the background
func (h *BatchHandler) StartBatch(ctx context.Context, req *models.StartBatchRequest) (*models.StartBatchResponse, error) {
	batchID, record, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.StatusPending {
		return nil, huma.Error409Conflict("Batch already started",
			fmt.Errorf("batch status is %s", record.Status))
	}

	log.Info().Str("batchID", record.ID).Msg("Starting background processing goroutine")
	go func() {
		err := h.processingSvc.ProcessBatch(context.Background(), batchID)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, processing.ErrNotPending), errors.Is(err, processing.ErrAlreadyRunning):
			log.Warn().Err(err).Str("batchID", batchID.String()).Msg("Duplicate run request ignored")
		default:
			log.Error().Err(err).Str("batchID", batchID.String()).Msg("Batch processing failed")
		}
	}()

	resp := &models.StartBatchResponse{}
	resp.Body.Message = "Processing started successfully"
	return resp, nil
}

// CancelBatch stops a running batch after its current scan
func (h *BatchHandler) CancelBatch(ctx context.Context, req *models.CancelBatchRequest) (*models.CancelBatchResponse, error) {
	batchID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid batch ID", err)
	}

	if !h.processingSvc.Cancel(batchID) {
		return nil, huma.Error409Conflict("Batch is not running", nil)
	}
	log.Info().Str("batchID", req.ID).Msg("Batch cancellation requested")

	resp := &models.CancelBatchResponse{}
	resp.Body.Message = "Cancellation requested"
	return resp, nil
}

// GetSignal returns a download URL for the archived raw signal of a scan
func (h *BatchHandler) GetSignal(ctx context.Context, req *models.GetSignalRequest) (*models.GetSignalResponse, error) {
	if h.s3Service == nil {
		return nil, huma.Error404NotFound("Signal archiving is disabled", nil)
	}
	batchID, _, err := h.lookup(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	url, err := h.s3Service.GenerateDownloadURL(ctx, storage.SignalKey(batchID.String(), req.Number))
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate download URL", err)
	}

	resp := &models.GetSignalResponse{}
	resp.Body.URL = url
	resp.Body.ExpiresIn = int(storage.DownloadURLExpiry.Seconds())
	return resp, nil
}

// lookup parses a batch ID and loads the batch, mapping failures to HTTP errors
func (h *BatchHandler) lookup(ctx context.Context, id string) (uuid.UUID, *models.Batch, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, nil, huma.Error400BadRequest("Invalid batch ID", err)
	}

	record, err := h.repo.GetByID(ctx, batchID)
	if errors.Is(err, repository.ErrNotFound) {
		return uuid.Nil, nil, huma.Error404NotFound("Batch not found", err)
	}
	if err != nil {
		return uuid.Nil, nil, huma.Error500InternalServerError("Failed to load batch", err)
	}
	return batchID, record, nil
}

// generateStatusMessage creates a human-readable status message
func generateStatusMessage(status string, progress int) string {
	switch status {
	case models.StatusPending:
		return "Batch queued, waiting to be started..."
	case models.StatusProcessing:
		if progress < 25 {
			return "Starting scans..."
		} else if progress < 75 {
			return "Categorizing lines..."
		} else {
			return "Finishing remaining entries..."
		}
	case models.StatusCompleted:
		return "Batch complete!"
	case models.StatusFailed:
		return "Batch failed."
	case models.StatusCancelled:
		return "Batch cancelled."
	default:
		return "Unknown status"
	}
}
