package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/dto"
	"github.com/edupay/edupay-api/internal/models"
	"github.com/edupay/edupay-api/internal/repository"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
	"github.com/edupay/edupay-api/pkg/jobs"
)

type mockReportStore struct {
	mu      sync.Mutex
	jobs    map[string]models.ReportJob
	updates []repository.UpdateReportJobParams
}

func newMockReportStore() *mockReportStore {
	return &mockReportStore{jobs: make(map[string]models.ReportJob)}
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = "job-generated"
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		return &job, nil
	}
	return nil, errors.New("not found")
}

func (m *mockReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, params)
	job, ok := m.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	m.jobs[id] = job
	return nil
}

func (m *mockReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var queued []models.ReportJob
	for _, job := range m.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, job)
		}
	}
	return queued, nil
}

func (m *mockReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockExporter struct {
	result *ExportResult
	err    error
	calls  int
}

func (m *mockExporter) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestReportServiceCreateJob(t *testing.T) {
	store := newMockReportStore()
	queue := &mockDispatcher{}
	svc := NewReportService(store, queue, nil, zap.NewNop(), ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypeFees,
		Format: models.ReportFormatCSV,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
	assert.Equal(t, "user-1", store.jobs[resp.ID].CreatedBy)
}

func TestReportServiceCreateJobRejectsUnknownType(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportType("ledger"),
		Format: models.ReportFormatCSV,
	}, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobRequiresStudentForStatement(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypeStudentStatement,
		Format: models.ReportFormatPDF,
	}, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateJobMarksFailedOnEnqueueError(t *testing.T) {
	store := newMockReportStore()
	queue := &mockDispatcher{err: errors.New("queue full")}
	svc := NewReportService(store, queue, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Type:   models.ReportTypePayments,
		Format: models.ReportFormatCSV,
	}, "user-1")
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatusEnforcesOwnership(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeFees,
		Status:    models.ReportStatusProcessing,
		Progress:  10,
		CreatedBy: "owner",
	}
	svc := NewReportService(store, &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleStaff)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	resp, err := svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, resp.Status)

	resp, err = svc.GetStatus(context.Background(), "job-1", "owner", models.RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Progress)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = models.ReportJob{ID: "job-1", Type: models.ReportTypeFees, Status: models.ReportStatusQueued}
	store.jobs["job-2"] = models.ReportJob{ID: "job-2", Type: models.ReportTypeFees, Status: models.ReportStatusFinished}
	queue := &mockDispatcher{}
	svc := NewReportService(store, queue, nil, zap.NewNop(), ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "job-1", queue.enqueued[0].ID)
}

func TestReportWorkerHandleFinishesJob(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeFees,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	exporter := &mockExporter{result: &ExportResult{URL: "/api/reports/download/tok"}}
	worker := NewReportWorker(store, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/reports/download/tok", *job.ResultURL)
}

func TestReportWorkerHandleRequeuesOnFailure(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = models.ReportJob{ID: "job-1", Type: models.ReportTypeFees, Status: models.ReportStatusQueued}
	exporter := &mockExporter{err: errors.New("render failed")}
	worker := NewReportWorker(store, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, 0, job.Progress)
}

func TestReportWorkerHandleFailsAfterMaxRetries(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job-1"] = models.ReportJob{ID: "job-1", Type: models.ReportTypeFees, Status: models.ReportStatusQueued}
	exporter := &mockExporter{err: errors.New("render failed")}
	worker := NewReportWorker(store, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)
	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)
}
