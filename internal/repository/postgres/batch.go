package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RMahshie/ftmwcat/internal/repository"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables used by the repository if they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// PostgresBatchRepository implements BatchRepository for PostgreSQL
type PostgresBatchRepository struct {
	db *sql.DB
}

// NewPostgresBatchRepository creates a new PostgreSQL batch repository
func NewPostgresBatchRepository(db *sql.DB) repository.BatchRepository {
	return &PostgresBatchRepository{db: db}
}

// Create inserts a new batch record
func (r *PostgresBatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	entries, err := json.Marshal(batch.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	tests, err := json.Marshal(batch.Tests)
	if err != nil {
		return fmt.Errorf("failed to marshal tests: %w", err)
	}

	query := `
		INSERT INTO batches (id, name, status, progress, entries, tests, max_attenuation, shot_estimate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.ExecContext(ctx, query,
		batch.ID,
		batch.Name,
		batch.Status,
		batch.Progress,
		string(entries),
		string(tests),
		batch.MaxAttenuation,
		batch.ShotEstimate,
		batch.CreatedAt,
		batch.UpdatedAt)

	return err
}

// GetByID retrieves a batch by ID
func (r *PostgresBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	query := `
		SELECT id, name, status, progress, entries, tests, max_attenuation, shot_estimate, error_message, created_at, updated_at, completed_at
		FROM batches
		WHERE id = $1`

	var batch models.Batch
	var entries, tests []byte
	var errorMsg sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&batch.ID,
		&batch.Name,
		&batch.Status,
		&batch.Progress,
		&entries,
		&tests,
		&batch.MaxAttenuation,
		&batch.ShotEstimate,
		&errorMsg,
		&batch.CreatedAt,
		&batch.UpdatedAt,
		&completedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(entries, &batch.Entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entries: %w", err)
	}
	if err := json.Unmarshal(tests, &batch.Tests); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tests: %w", err)
	}
	if errorMsg.Valid {
		batch.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		batch.CompletedAt = &completedAt.Time
	}

	return &batch, nil
}

// UpdateStatus updates the status and progress of a batch
func (r *PostgresBatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE batches
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, status, progress, id)
	return err
}

// UpdateError marks a batch failed with an error message
func (r *PostgresBatchRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE batches
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, errorMsg, id)
	return err
}

// AppendScanResults appends the scan log of a finalized entry in one transaction
func (r *PostgresBatchRepository) AppendScanResults(ctx context.Context, batchID uuid.UUID, results []models.ScanResult) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO scan_results (batch_id, scan_number, entry_index, attenuation, calibration, test_key, test_value, frequencies, label)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, res := range results {
		freqs, err := json.Marshal(nonNil(res.Frequencies))
		if err != nil {
			return fmt.Errorf("failed to marshal frequencies: %w", err)
		}
		var testKey sql.NullString
		if res.TestKey != nil {
			testKey = sql.NullString{String: res.TestKey.String(), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, query,
			batchID,
			res.ScanNumber,
			res.EntryIndex,
			res.Attenuation,
			res.Calibration,
			testKey,
			res.TestValue,
			string(freqs),
			res.Label); err != nil {
			return fmt.Errorf("failed to insert scan %d: %w", res.ScanNumber, err)
		}
	}

	return tx.Commit()
}

// StoreOutcome stores the category of a finalized entry
func (r *PostgresBatchRepository) StoreOutcome(ctx context.Context, batchID uuid.UUID, outcome models.EntryOutcome) error {
	freqs, err := json.Marshal(nonNil(outcome.Frequencies))
	if err != nil {
		return fmt.Errorf("failed to marshal frequencies: %w", err)
	}

	query := `
		INSERT INTO entry_outcomes (batch_id, entry_index, frequency, calibration, category, scans, frequencies, extra_attenuation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, query,
		batchID,
		outcome.EntryIndex,
		outcome.Frequency,
		outcome.Calibration,
		outcome.Category,
		outcome.Scans,
		string(freqs),
		outcome.ExtraAttenuation)

	return err
}

// GetScanResults retrieves the scan log of a batch in scan order
func (r *PostgresBatchRepository) GetScanResults(ctx context.Context, batchID uuid.UUID) ([]models.ScanResult, error) {
	query := `
		SELECT scan_number, entry_index, attenuation, calibration, test_key, test_value, frequencies, label
		FROM scan_results
		WHERE batch_id = $1
		ORDER BY scan_number`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.ScanResult
	for rows.Next() {
		var res models.ScanResult
		var testKey sql.NullString
		var freqs []byte

		err := rows.Scan(
			&res.ScanNumber,
			&res.EntryIndex,
			&res.Attenuation,
			&res.Calibration,
			&testKey,
			&res.TestValue,
			&freqs,
			&res.Label)

		if err != nil {
			return nil, err
		}

		if testKey.Valid {
			key, err := models.ParseTestKey(testKey.String)
			if err != nil {
				return nil, err
			}
			res.TestKey = &key
		}
		if err := json.Unmarshal(freqs, &res.Frequencies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal frequencies: %w", err)
		}

		results = append(results, res)
	}

	return results, rows.Err()
}

// GetOutcomes retrieves entry outcomes in worklist order
func (r *PostgresBatchRepository) GetOutcomes(ctx context.Context, batchID uuid.UUID) ([]models.EntryOutcome, error) {
	query := `
		SELECT entry_index, frequency, calibration, category, scans, frequencies, extra_attenuation
		FROM entry_outcomes
		WHERE batch_id = $1
		ORDER BY entry_index`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.EntryOutcome
	for rows.Next() {
		var out models.EntryOutcome
		var freqs []byte

		err := rows.Scan(
			&out.EntryIndex,
			&out.Frequency,
			&out.Calibration,
			&out.Category,
			&out.Scans,
			&freqs,
			&out.ExtraAttenuation)

		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(freqs, &out.Frequencies); err != nil {
			return nil, fmt.Errorf("failed to unmarshal frequencies: %w", err)
		}

		outcomes = append(outcomes, out)
	}

	return outcomes, rows.Err()
}

func nonNil(freqs []float64) []float64 {
	if freqs == nil {
		return []float64{}
	}
	return freqs
}
