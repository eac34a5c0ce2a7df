package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// CreateBatchRequestBody is the body of a create batch request
type CreateBatchRequestBody struct {
	Name    string           `json:"name" maxLength:"100" doc:"Human readable batch name"`
	Entries []Entry          `json:"entries" minItems:"1" required:"true" doc:"Ordered worklist of scans"`
	Tests   []TestDefinition `json:"tests" doc:"Ordered diagnostic tests applied to every target entry"`
}

// CreateBatchRequest represents a request to create a new batch
type CreateBatchRequest struct {
	Body CreateBatchRequestBody
}

// CreateBatchResponseBody is the body of the create batch response
type CreateBatchResponseBody struct {
	ID           string `json:"id" doc:"Batch unique identifier"`
	Entries      int    `json:"entries" doc:"Number of worklist entries"`
	ShotEstimate int    `json:"shot_estimate" doc:"Approximate number of shots the batch will take"`
}

// CreateBatchResponse represents the response from creating a batch
type CreateBatchResponse struct {
	Body CreateBatchResponseBody
}

// GetBatchStatusRequest represents a request to get batch status
type GetBatchStatusRequest struct {
	ID string `path:"id" doc:"Batch ID"`
}

// GetBatchStatusResponseBody is the body of the status response
type GetBatchStatusResponseBody struct {
	ID          string `json:"id" doc:"Batch ID"`
	Status      string `json:"status" enum:"pending,processing,completed,failed,cancelled" doc:"Batch status"`
	Progress    int    `json:"progress" minimum:"0" maximum:"100" doc:"Approximate progress percentage"`
	Message     string `json:"message,omitempty" doc:"Human-readable status message"`
	EntriesDone int    `json:"entries_done" doc:"Number of categorized entries"`
}

// GetBatchStatusResponse represents the current status of a batch
type GetBatchStatusResponse struct {
	Body GetBatchStatusResponseBody
}

// GetBatchResultsRequest represents a request to get batch results
type GetBatchResultsRequest struct {
	ID string `path:"id" doc:"Batch ID"`
}

// GetBatchResultsResponseBody is the body of the results response
type GetBatchResultsResponseBody struct {
	ID        string         `json:"id" doc:"Batch ID"`
	Status    string         `json:"status" doc:"Batch status"`
	Scans     []ScanResult   `json:"scans" doc:"Append-only scan log"`
	Outcomes  []EntryOutcome `json:"outcomes" doc:"Category of every finalized entry"`
	CreatedAt time.Time      `json:"created_at" doc:"Batch creation timestamp"`
}

// GetBatchResultsResponse represents the results of a batch
type GetBatchResultsResponse struct {
	Body GetBatchResultsResponseBody
}

// StartBatchRequest represents a request to start running a batch
type StartBatchRequest struct {
	ID string `path:"id" doc:"Batch ID"`
}

// StartBatchResponse represents the response from starting a batch
type StartBatchResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// CancelBatchRequest represents a request to stop a running batch
type CancelBatchRequest struct {
	ID string `path:"id" doc:"Batch ID"`
}

// CancelBatchResponse represents the response from cancelling a batch
type CancelBatchResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// GetSignalRequest represents a request for an archived raw signal
type GetSignalRequest struct {
	ID     string `path:"id" doc:"Batch ID"`
	Number int    `path:"number" minimum:"1" doc:"Scan number"`
}

// GetSignalResponse returns a pre-signed download URL for a raw signal
type GetSignalResponse struct {
	Body struct {
		URL       string `json:"url" doc:"Pre-signed download URL"`
		ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
	}
}
