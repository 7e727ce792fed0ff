package dto

import "github.com/edupay/edupay-api/internal/models"

// ReportRequest captures the POST /reports payload.
type ReportRequest struct {
	Type       models.ReportType   `json:"type"`
	Format     models.ReportFormat `json:"format"`
	StudentID  *string             `json:"studentId,omitempty"`
	WindowDays int                 `json:"windowDays,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
