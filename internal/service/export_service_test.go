package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/models"
	"github.com/edupay/edupay-api/pkg/storage"
)

type mockExportFees struct {
	rows            []models.FeeExportRow
	byStudent       []models.FeeDetail
	lastOutstanding bool
}

func (m *mockExportFees) ListAll(ctx context.Context, onlyOutstanding bool) ([]models.FeeExportRow, error) {
	m.lastOutstanding = onlyOutstanding
	return m.rows, nil
}

func (m *mockExportFees) ListByStudent(ctx context.Context, studentID string) ([]models.FeeDetail, error) {
	return m.byStudent, nil
}

type mockExportPayments struct {
	rows      []models.PaymentDetail
	lastSince *time.Time
}

func (m *mockExportPayments) ListAll(ctx context.Context, since *time.Time) ([]models.PaymentDetail, error) {
	m.lastSince = since
	return m.rows, nil
}

func (m *mockExportPayments) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	return m.rows, nil
}

type mockExportStudents struct {
	student *models.Student
}

func (m *mockExportStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return m.student, nil
}

func newTestExportService(t *testing.T, fees *mockExportFees, payments *mockExportPayments, students *mockExportStudents) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-test-secret", time.Hour)
	return NewExportService(fees, payments, students, store, signer, ExportConfig{APIPrefix: "/api"}, zap.NewNop(), nil, nil)
}

func exportFeeRow(studentNumber, feeType string, amount, paid float64, status models.FeeStatus) models.FeeExportRow {
	return models.FeeExportRow{
		FeeDetail: models.FeeDetail{
			Fee: models.Fee{
				ID:      "fee-" + studentNumber,
				Amount:  amount,
				DueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				Status:  status,
			},
			FeeTypeName: feeType,
		},
		StudentNumber: studentNumber,
		FirstName:     "Jane",
		LastName:      "Doe",
		TotalPaid:     paid,
	}
}

func TestExportServiceGenerateFeesCSV(t *testing.T) {
	fees := &mockExportFees{rows: []models.FeeExportRow{
		exportFeeRow("STD-001", "Tuition", 500, 300, models.FeeStatusPartial),
	}}
	svc := newTestExportService(t, fees, &mockExportPayments{}, &mockExportStudents{})

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeFees,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.False(t, fees.lastOutstanding)
	assert.True(t, strings.HasPrefix(result.URL, "/api/reports/download/"))
	assert.Equal(t, models.ReportFormatCSV, result.Format)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	stat, err := file.Stat()
	require.NoError(t, err)
	assert.Greater(t, stat.Size(), int64(0))
}

func TestExportServiceGenerateArrearsOnlyOutstanding(t *testing.T) {
	fees := &mockExportFees{rows: []models.FeeExportRow{
		exportFeeRow("STD-001", "Tuition", 500, 600, models.FeeStatusPending),
	}}
	svc := newTestExportService(t, fees, &mockExportPayments{}, &mockExportStudents{})

	job := &models.ReportJob{
		ID:     "job-2",
		Type:   models.ReportTypeArrears,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, fees.lastOutstanding)
}

func TestExportServiceGeneratePaymentsWindow(t *testing.T) {
	payments := &mockExportPayments{}
	svc := newTestExportService(t, &mockExportFees{}, payments, &mockExportStudents{})

	job := &models.ReportJob{
		ID:     "job-3",
		Type:   models.ReportTypePayments,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV, WindowDays: 7},
	}
	_, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotNil(t, payments.lastSince)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -7), *payments.lastSince, time.Minute)
}

func TestExportServiceGenerateStatementPDF(t *testing.T) {
	fees := &mockExportFees{byStudent: []models.FeeDetail{{
		Fee: models.Fee{
			ID:      "fee-1",
			Amount:  500,
			DueDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Status:  models.FeeStatusPartial,
		},
		FeeTypeName: "Tuition",
	}}}
	payments := &mockExportPayments{rows: []models.PaymentDetail{{
		Payment: models.Payment{ID: "pay-1", FeeID: "fee-1", Amount: 300, PaymentMethod: "cash", CreatedAt: time.Now()},
	}}}
	students := &mockExportStudents{student: &models.Student{ID: "uuid-1", FirstName: "Jane", LastName: "Doe"}}
	svc := newTestExportService(t, fees, payments, students)

	sid := "uuid-1"
	job := &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportTypeStudentStatement,
		Params: models.ReportJobParams{Format: models.ReportFormatPDF, StudentID: &sid},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)
	assert.Contains(t, result.RelativePath, "student_statement")
}

func TestExportServiceGenerateStatementRequiresStudent(t *testing.T) {
	svc := newTestExportService(t, &mockExportFees{}, &mockExportPayments{}, &mockExportStudents{})

	job := &models.ReportJob{
		ID:     "job-5",
		Type:   models.ReportTypeStudentStatement,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "a_b", sanitizeFilename("a b"))
	assert.Equal(t, "a-b", sanitizeFilename("a/b"))
	assert.NotContains(t, sanitizeFilename("../../etc"), "..")
}
