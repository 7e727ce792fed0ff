package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/models"
	"github.com/edupay/edupay-api/pkg/export"
	"github.com/edupay/edupay-api/pkg/storage"
)

type exportFeeRepository interface {
	ListAll(ctx context.Context, onlyOutstanding bool) ([]models.FeeExportRow, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.FeeDetail, error)
}

type exportPaymentRepository interface {
	ListAll(ctx context.Context, since *time.Time) ([]models.PaymentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
}

type exportStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	fees     exportFeeRepository
	payments exportPaymentRepository
	students exportStudentRepository
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(fees exportFeeRepository, payments exportPaymentRepository, students exportStudentRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		fees:     fees,
		payments: payments,
		students: students,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the dataset for the job definition and stores the rendered
// export file.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL
// when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.StudentID != nil {
		scope = sanitizeFilename(*job.Params.StudentID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeFees:
		return s.buildFeesDataset(ctx)
	case models.ReportTypePayments:
		return s.buildPaymentsDataset(ctx, job.Params)
	case models.ReportTypeArrears:
		return s.buildArrearsDataset(ctx)
	case models.ReportTypeStudentStatement:
		return s.buildStatementDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildFeesDataset(ctx context.Context) (export.Dataset, string, error) {
	rows, err := s.fees.ListAll(ctx, false)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Student":  fmt.Sprintf("%s %s", row.FirstName, row.LastName),
			"ID":       row.StudentNumber,
			"Fee Type": row.FeeTypeName,
			"Amount":   fmt.Sprintf("%.2f", row.Amount),
			"Paid":     fmt.Sprintf("%.2f", row.TotalPaid),
			"Due Date": row.DueDate.UTC().Format("2006-01-02"),
			"Status":   string(row.Status),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "ID", "Fee Type", "Amount", "Paid", "Due Date", "Status"},
		Rows:    dataRows,
	}
	return dataset, "Fee Register", nil
}

func (s *ExportService) buildPaymentsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	var since *time.Time
	if params.WindowDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -params.WindowDays)
		since = &cutoff
	}
	rows, err := s.payments.ListAll(ctx, since)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Payment ID": row.ID,
			"Fee Type":   deref(row.FeeTypeName),
			"Student":    row.StudentID,
			"Amount":     fmt.Sprintf("%.2f", row.Amount),
			"Method":     row.PaymentMethod,
			"Reference":  deref(row.ReferenceNumber),
			"Recorded":   row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Payment ID", "Fee Type", "Student", "Amount", "Method", "Reference", "Recorded"},
		Rows:    dataRows,
	}
	return dataset, "Payment Journal", nil
}

func (s *ExportService) buildArrearsDataset(ctx context.Context) (export.Dataset, string, error) {
	rows, err := s.fees.ListAll(ctx, true)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		outstanding := row.Amount - row.TotalPaid
		if outstanding < 0 {
			outstanding = 0
		}
		dataRows = append(dataRows, map[string]string{
			"Student":     fmt.Sprintf("%s %s", row.FirstName, row.LastName),
			"ID":          row.StudentNumber,
			"Fee Type":    row.FeeTypeName,
			"Outstanding": fmt.Sprintf("%.2f", outstanding),
			"Due Date":    row.DueDate.UTC().Format("2006-01-02"),
			"Status":      string(row.Status),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "ID", "Fee Type", "Outstanding", "Due Date", "Status"},
		Rows:    dataRows,
	}
	return dataset, "Arrears Report", nil
}

func (s *ExportService) buildStatementDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	if params.StudentID == nil || *params.StudentID == "" {
		return export.Dataset{}, "", fmt.Errorf("student statement requires studentId")
	}
	student, err := s.students.FindByID(ctx, *params.StudentID)
	if err != nil {
		return export.Dataset{}, "", fmt.Errorf("load student: %w", err)
	}
	fees, err := s.fees.ListByStudent(ctx, student.ID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	payments, err := s.payments.ListByStudent(ctx, student.ID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	paidByFee := make(map[string]float64, len(fees))
	for _, p := range payments {
		paidByFee[p.FeeID] += p.Amount
	}

	dataRows := make([]map[string]string, 0, len(fees)+len(payments))
	for _, fee := range fees {
		dataRows = append(dataRows, map[string]string{
			"Entry":  "FEE",
			"Detail": fee.FeeTypeName,
			"Amount": fmt.Sprintf("%.2f", fee.Amount),
			"Paid":   fmt.Sprintf("%.2f", paidByFee[fee.ID]),
			"Date":   fee.DueDate.UTC().Format("2006-01-02"),
			"Status": string(fee.Status),
		})
	}
	for _, p := range payments {
		dataRows = append(dataRows, map[string]string{
			"Entry":  "PAYMENT",
			"Detail": fmt.Sprintf("%s %s", p.PaymentMethod, deref(p.ReferenceNumber)),
			"Amount": fmt.Sprintf("%.2f", p.Amount),
			"Paid":   "",
			"Date":   p.CreatedAt.UTC().Format("2006-01-02"),
			"Status": "",
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Entry", "Detail", "Amount", "Paid", "Date", "Status"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Statement %s %s", student.FirstName, student.LastName)
	return dataset, title, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
