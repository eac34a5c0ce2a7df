package repository

import (
	"context"
	"errors"

	"github.com/RMahshie/ftmwcat/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a batch does not exist
var ErrNotFound = errors.New("batch not found")

// BatchRepository defines the interface for batch data operations
type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	ResultRepository
}

// ResultRepository defines the interface for the append-only result log
type ResultRepository interface {
	AppendScanResults(ctx context.Context, batchID uuid.UUID, results []models.ScanResult) error
	StoreOutcome(ctx context.Context, batchID uuid.UUID, outcome models.EntryOutcome) error
	GetScanResults(ctx context.Context, batchID uuid.UUID) ([]models.ScanResult, error)
	GetOutcomes(ctx context.Context, batchID uuid.UUID) ([]models.EntryOutcome, error)
}
