package leadfile

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/store"
)

// UploadResult summarizes a lead file import.
type UploadResult struct {
	Message           string    `json:"message"`
	TotalLeads        int       `json:"total_leads"`
	SuccessfulUploads int       `json:"successful_uploads"`
	FailedUploads     int       `json:"failed_uploads"`
	Errors            []string  `json:"errors"`
	UploadedAt        time.Time `json:"uploaded_at"`
}

// Import parses a lead file and stores every valid row as an unscored lead.
// Skipped rows count as failed uploads. Errors are only returned when the
// file itself cannot be read.
func Import(ctx context.Context, st store.Store, r io.Reader, f Format) (*UploadResult, error) {
	parsed, err := Read(r, f)
	if err != nil {
		return nil, err
	}

	errs := append([]string{}, parsed.Skipped...)
	saved := 0
	if len(parsed.Leads) > 0 {
		created, err := st.CreateLeads(ctx, parsed.Leads)
		if err != nil {
			zap.L().Error("leadfile: store leads", zap.Int("leads", len(parsed.Leads)), zap.Error(err))
			errs = append(errs, "Failed to save leads: "+err.Error())
		} else {
			saved = len(created)
		}
	}

	failed := parsed.Rows - saved
	zap.L().Info("leadfile: import complete",
		zap.String("format", string(f)),
		zap.Int("rows", parsed.Rows),
		zap.Int("saved", saved),
		zap.Int("failed", failed),
	)

	return &UploadResult{
		Message:           fmt.Sprintf("Upload completed. %d successful, %d failed.", saved, failed),
		TotalLeads:        parsed.Rows,
		SuccessfulUploads: saved,
		FailedUploads:     failed,
		Errors:            errs,
		UploadedAt:        time.Now().UTC(),
	}, nil
}
