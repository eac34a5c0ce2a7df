package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/ftmwcat/internal/api/handlers"
	"github.com/RMahshie/ftmwcat/internal/processing"
	"github.com/RMahshie/ftmwcat/internal/repository"
	"github.com/RMahshie/ftmwcat/internal/storage"
)

// RegisterRoutes sets up all API routes. s3Service may be nil when signal
// archiving is disabled.
func RegisterRoutes(api huma.API, batchRepo repository.BatchRepository, s3Service storage.S3Service, processingSvc processing.ProcessingService, maxAttenuation int) {
	batchHandler := handlers.NewBatchHandler(batchRepo, s3Service, processingSvc, maxAttenuation)

	huma.Register(api, huma.Operation{
		OperationID: "createBatch",
		Method:      http.MethodPost,
		Path:        "/api/batches",
		Summary:     "Create a new batch",
		Description: "Validates a worklist and its test definitions and stores it as a pending batch",
		Tags:        []string{"Batch"},
	}, batchHandler.CreateBatch)

	huma.Register(api, huma.Operation{
		OperationID: "getBatchStatus",
		Method:      http.MethodGet,
		Path:        "/api/batches/{id}/status",
		Summary:     "Get batch status",
		Description: "Returns the current status and approximate progress of a batch",
		Tags:        []string{"Batch"},
	}, batchHandler.GetBatchStatus)

	huma.Register(api, huma.Operation{
		OperationID: "getBatchResults",
		Method:      http.MethodGet,
		Path:        "/api/batches/{id}/results",
		Summary:     "Get batch results",
		Description: "Returns the scan log and the category of every finalized entry",
		Tags:        []string{"Batch"},
	}, batchHandler.GetBatchResults)

	huma.Register(api, huma.Operation{
		OperationID: "startBatch",
		Method:      http.MethodPost,
		Path:        "/api/batches/{id}/run",
		Summary:     "Run a batch",
		Description: "Starts scanning a pending batch in the background",
		Tags:        []string{"Batch"},
	}, batchHandler.StartBatch)

	huma.Register(api, huma.Operation{
		OperationID: "cancelBatch",
		Method:      http.MethodPost,
		Path:        "/api/batches/{id}/cancel",
		Summary:     "Cancel a batch",
		Description: "Stops a running batch after the current scan; the partial entry is discarded",
		Tags:        []string{"Batch"},
	}, batchHandler.CancelBatch)

	huma.Register(api, huma.Operation{
		OperationID: "getSignal",
		Method:      http.MethodGet,
		Path:        "/api/batches/{id}/scans/{number}/signal",
		Summary:     "Get raw signal",
		Description: "Returns a download URL for the archived raw signal of a scan",
		Tags:        []string{"Batch"},
	}, batchHandler.GetSignal)
}
