package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/ftmwcat/internal/repository"
	"github.com/RMahshie/ftmwcat/internal/storage"
	"github.com/RMahshie/ftmwcat/pkg/models"
)

// MockBatchRepository implements repository.BatchRepository for testing
type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Create(ctx context.Context, b *models.Batch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Batch), args.Error(1)
}

func (m *MockBatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	args := m.Called(ctx, id, status, progress)
	return args.Error(0)
}

func (m *MockBatchRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	args := m.Called(ctx, id, errorMsg)
	return args.Error(0)
}

func (m *MockBatchRepository) AppendScanResults(ctx context.Context, batchID uuid.UUID, results []models.ScanResult) error {
	args := m.Called(ctx, batchID, results)
	return args.Error(0)
}

func (m *MockBatchRepository) StoreOutcome(ctx context.Context, batchID uuid.UUID, outcome models.EntryOutcome) error {
	args := m.Called(ctx, batchID, outcome)
	return args.Error(0)
}

func (m *MockBatchRepository) GetScanResults(ctx context.Context, batchID uuid.UUID) ([]models.ScanResult, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]models.ScanResult), args.Error(1)
}

func (m *MockBatchRepository) GetOutcomes(ctx context.Context, batchID uuid.UUID) ([]models.EntryOutcome, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).([]models.EntryOutcome), args.Error(1)
}

// MockS3Service implements storage.S3Service for testing
type MockS3Service struct {
	mock.Mock
}

func (m *MockS3Service) UploadFile(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockS3Service) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockS3Service) DownloadFile(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockS3Service) DeleteFile(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockProcessingService implements processing.ProcessingService for testing
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessBatch(ctx context.Context, batchID uuid.UUID) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func (m *MockProcessingService) Cancel(batchID uuid.UUID) bool {
	args := m.Called(batchID)
	return args.Bool(0)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "expected a huma status error, got %v", err)
	return se.GetStatus()
}

func storedBatch(id uuid.UUID, status string) *models.Batch {
	return &models.Batch{
		ID:        id.String(),
		Status:    status,
		Progress:  40,
		CreatedAt: time.Now(),
	}
}

func TestCreateBatch(t *testing.T) {
	target := models.Entry{Template: models.ScanTemplate{Frequency: 12000, Shots: 20}}
	calibration := models.Entry{Template: models.ScanTemplate{Frequency: 9000, Shots: 100}, Calibration: true}
	dipole := models.TestDefinition{Key: models.TestDipole, Categorize: true, Values: []float64{0.1, 1, 3}}

	tests := []struct {
		name      string
		input     models.CreateBatchRequestBody
		mockSetup func(*MockBatchRepository)
		wantCode  int
		wantShots int
	}{
		{
			name:  "valid worklist",
			input: models.CreateBatchRequestBody{Name: "survey", Entries: []models.Entry{calibration, target}, Tests: []models.TestDefinition{dipole}},
			mockSetup: func(repo *MockBatchRepository) {
				repo.On("Create", mock.Anything, mock.MatchedBy(func(b *models.Batch) bool {
					return b.Status == models.StatusPending && b.MaxAttenuation == 50 && len(b.Entries) == 2
				})).Return(nil)
			},
			wantCode:  200,
			wantShots: 100 + 20*3,
		},
		{
			name:      "empty worklist",
			input:     models.CreateBatchRequestBody{Tests: []models.TestDefinition{dipole}},
			mockSetup: func(repo *MockBatchRepository) {},
			wantCode:  400,
		},
		{
			name: "entry without shots",
			input: models.CreateBatchRequestBody{
				Entries: []models.Entry{{Template: models.ScanTemplate{Frequency: 12000}}},
			},
			mockSetup: func(repo *MockBatchRepository) {},
			wantCode:  400,
		},
		{
			name:  "database failure",
			input: models.CreateBatchRequestBody{Entries: []models.Entry{target}},
			mockSetup: func(repo *MockBatchRepository) {
				repo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)
			},
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockBatchRepository{}
			mockProc := &MockProcessingService{}
			tt.mockSetup(mockRepo)

			handler := NewBatchHandler(mockRepo, nil, mockProc, 50)

			resp, err := handler.CreateBatch(context.Background(), &models.CreateBatchRequest{Body: tt.input})

			if tt.wantCode >= 400 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, statusOf(t, err))
			} else {
				require.NoError(t, err)
				_, parseErr := uuid.Parse(resp.Body.ID)
				assert.NoError(t, parseErr)
				assert.Equal(t, len(tt.input.Entries), resp.Body.Entries)
				assert.Equal(t, tt.wantShots, resp.Body.ShotEstimate)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGetBatchStatus(t *testing.T) {
	id := uuid.New()
	failMsg := "scan execution failed: digitizer timeout"

	tests := []struct {
		name        string
		id          string
		mockSetup   func(*MockBatchRepository)
		wantCode    int
		wantMessage string
		wantDone    int
	}{
		{
			name: "processing batch",
			id:   id.String(),
			mockSetup: func(repo *MockBatchRepository) {
				repo.On("GetByID", mock.Anything, id).Return(storedBatch(id, models.StatusProcessing), nil)
				repo.On("GetOutcomes", mock.Anything, id).Return([]models.EntryOutcome{{EntryIndex: 0}, {EntryIndex: 1}}, nil)
			},
			wantCode:    200,
			wantMessage: "Categorizing lines...",
			wantDone:    2,
		},
		{
			name: "failed batch reports its error",
			id:   id.String(),
			mockSetup: func(repo *MockBatchRepository) {
				b := storedBatch(id, models.StatusFailed)
				b.ErrorMsg = &failMsg
				repo.On("GetByID", mock.Anything, id).Return(b, nil)
				repo.On("GetOutcomes", mock.Anything, id).Return([]models.EntryOutcome(nil), nil)
			},
			wantCode:    200,
			wantMessage: failMsg,
		},
		{
			name:      "invalid id",
			id:        "not-a-uuid",
			mockSetup: func(repo *MockBatchRepository) {},
			wantCode:  400,
		},
		{
			name: "unknown batch",
			id:   id.String(),
			mockSetup: func(repo *MockBatchRepository) {
				repo.On("GetByID", mock.Anything, id).Return(nil, repository.ErrNotFound)
			},
			wantCode: 404,
		},
		{
			name: "database failure",
			id:   id.String(),
			mockSetup: func(repo *MockBatchRepository) {
				repo.On("GetByID", mock.Anything, id).Return(nil, assert.AnError)
			},
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockBatchRepository{}
			tt.mockSetup(mockRepo)

			handler := NewBatchHandler(mockRepo, nil, &MockProcessingService{}, 50)
			resp, err := handler.GetBatchStatus(context.Background(), &models.GetBatchStatusRequest{ID: tt.id})

			if tt.wantCode >= 400 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, statusOf(t, err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMessage, resp.Body.Message)
				assert.Equal(t, tt.wantDone, resp.Body.EntriesDone)
				assert.Equal(t, 40, resp.Body.Progress)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGetBatchResults(t *testing.T) {
	id := uuid.New()
	key := models.TestDipole

	t.Run("returns scan log and outcomes", func(t *testing.T) {
		mockRepo := &MockBatchRepository{}
		mockRepo.On("GetByID", mock.Anything, id).Return(storedBatch(id, models.StatusCompleted), nil)
		mockRepo.On("GetScanResults", mock.Anything, id).Return([]models.ScanResult{
			{ScanNumber: 1, Calibration: true, Label: "CAL"},
			{ScanNumber: 2, EntryIndex: 1, TestKey: &key, TestValue: 0.1, Label: "FINAL\nND"},
		}, nil)
		mockRepo.On("GetOutcomes", mock.Anything, id).Return([]models.EntryOutcome{
			{EntryIndex: 0, Category: "CAL"},
			{EntryIndex: 1, Category: "ND"},
		}, nil)

		handler := NewBatchHandler(mockRepo, nil, &MockProcessingService{}, 50)
		resp, err := handler.GetBatchResults(context.Background(), &models.GetBatchResultsRequest{ID: id.String()})

		require.NoError(t, err)
		assert.Len(t, resp.Body.Scans, 2)
		assert.Len(t, resp.Body.Outcomes, 2)
		assert.Equal(t, models.StatusCompleted, resp.Body.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("pending batch has no results", func(t *testing.T) {
		mockRepo := &MockBatchRepository{}
		mockRepo.On("GetByID", mock.Anything, id).Return(storedBatch(id, models.StatusPending), nil)

		handler := NewBatchHandler(mockRepo, nil, &MockProcessingService{}, 50)
		_, err := handler.GetBatchResults(context.Background(), &models.GetBatchResultsRequest{ID: id.String()})

		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
		mockRepo.AssertNotCalled(t, "GetScanResults", mock.Anything, mock.Anything)
	})
}

func TestStartBatch(t *testing.T) {
	id := uuid.New()

	t.Run("pending batch starts in background", func(t *testing.T) {
		mockRepo := &MockBatchRepository{}
		mockProc := &MockProcessingService{}
		started := make(chan struct{})

		mockRepo.On("GetByID", mock.Anything, id).Return(storedBatch(id, models.StatusPending), nil)
		mockProc.On("ProcessBatch", mock.Anything, id).Run(func(mock.Arguments) {
			close(started)
		}).Return(nil)

		handler := NewBatchHandler(mockRepo, nil, mockProc, 50)
		resp, err := handler.StartBatch(context.Background(), &models.StartBatchRequest{ID: id.String()})

		require.NoError(t, err)
		assert.Equal(t, "Processing started successfully", resp.Body.Message)

		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("processing was not started")
		}
		mockProc.AssertExpectations(t)
	})

	t.Run("batch already running", func(t *testing.T) {
		mockRepo := &MockBatchRepository{}
		mockProc := &MockProcessingService{}
		mockRepo.On("GetByID", mock.Anything, id).Return(storedBatch(id, models.StatusProcessing), nil)

		handler := NewBatchHandler(mockRepo, nil, mockProc, 50)
		_, err := handler.StartBatch(context.Background(), &models.StartBatchRequest{ID: id.String()})

		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, statusOf(t, err))
		mockProc.AssertNotCalled(t, "ProcessBatch", mock.Anything, mock.Anything)
	})
}

func TestCancelBatch(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		id       string
		running  bool
		wantCode int
	}{
		{name: "running batch", id: id.String(), running: true, wantCode: 200},
		{name: "idle batch", id: id.String(), running: false, wantCode: 409},
		{name: "invalid id", id: "nope", wantCode: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockProc := &MockProcessingService{}
			if tt.wantCode != 400 {
				mockProc.On("Cancel", id).Return(tt.running)
			}

			handler := NewBatchHandler(&MockBatchRepository{}, nil, mockProc, 50)
			resp, err := handler.CancelBatch(context.Background(), &models.CancelBatchRequest{ID: tt.id})

			if tt.wantCode >= 400 {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, statusOf(t, err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Cancellation requested", resp.Body.Message)
			}
			mockProc.AssertExpectations(t)
		})
	}
}

func TestGetSignal(t *testing.T) {
	id := uuid.New()

	t.Run("returns presigned url", func(t *testing.T) {
		mockRepo := &MockBatchRepository{}
		mockS3 := &MockS3Service{}
		mockRepo.On("GetByID", mock.Anything, id).Return(storedBatch(id, models.StatusCompleted), nil)
		mockS3.On("GenerateDownloadURL", mock.Anything, storage.SignalKey(id.String(), 7)).Return("https://example.com/signal", nil)

		handler := NewBatchHandler(mockRepo, mockS3, &MockProcessingService{}, 50)
		resp, err := handler.GetSignal(context.Background(), &models.GetSignalRequest{ID: id.String(), Number: 7})

		require.NoError(t, err)
		assert.Equal(t, "https://example.com/signal", resp.Body.URL)
		assert.Equal(t, 3600, resp.Body.ExpiresIn)
		mockS3.AssertExpectations(t)
	})

	t.Run("archiving disabled", func(t *testing.T) {
		handler := NewBatchHandler(&MockBatchRepository{}, nil, &MockProcessingService{}, 50)
		_, err := handler.GetSignal(context.Background(), &models.GetSignalRequest{ID: id.String(), Number: 1})

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})
}

func TestGenerateStatusMessage(t *testing.T) {
	assert.Equal(t, "Starting scans...", generateStatusMessage(models.StatusProcessing, 10))
	assert.Equal(t, "Finishing remaining entries...", generateStatusMessage(models.StatusProcessing, 90))
	assert.Equal(t, "Batch cancelled.", generateStatusMessage(models.StatusCancelled, 50))
	assert.Equal(t, "Unknown status", generateStatusMessage("bogus", 0))
}
