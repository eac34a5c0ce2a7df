package hardware

import (
	"context"

	"github.com/RMahshie/ftmwcat/pkg/models"
)

// ScanExecutor runs one scan on the instrument and returns the captured signal
type ScanExecutor interface {
	Execute(ctx context.Context, tmpl models.ScanTemplate) (models.CompletedScan, error)
}
