package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/edupay/edupay-api/internal/middleware"
	"github.com/edupay/edupay-api/internal/models"
	"github.com/edupay/edupay-api/internal/repository"
	"github.com/edupay/edupay-api/internal/service"
	"github.com/edupay/edupay-api/pkg/jobs"
)

type reportStoreStub struct {
	jobs map[string]models.ReportJob
}

func (s *reportStoreStub) Create(ctx context.Context, job *models.ReportJob) error {
	if s.jobs == nil {
		s.jobs = make(map[string]models.ReportJob)
	}
	if job.ID == "" {
		job.ID = "job-1"
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *reportStoreStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &job, nil
}

func (s *reportStoreStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	return nil
}

func (s *reportStoreStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

func (s *reportStoreStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type dispatcherStub struct {
	enqueued []jobs.Job
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	d.enqueued = append(d.enqueued, job)
	return nil
}

func buildReportRouter(store *reportStoreStub, dispatcher *dispatcherStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "test-user",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	})

	svc := service.NewReportService(store, dispatcher, nil, zap.NewNop(), service.ReportServiceConfig{})
	reportHandler := NewReportHandler(svc)
	adminOnly := internalmiddleware.RequireRoles(models.RoleAdmin)

	router.POST("/reports", adminOnly, reportHandler.Create)
	return router
}

func TestReportHandlerCreateRejectsStaff(t *testing.T) {
	store := &reportStoreStub{}
	dispatcher := &dispatcherStub{}
	router := buildReportRouter(store, dispatcher)

	payload := `{"type":"fees","format":"csv"}`
	req, _ := http.NewRequest(http.MethodPost, "/reports", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleStaff))
	resp := performRequest(router, req)

	require.Equal(t, http.StatusForbidden, resp.Code)
	require.Empty(t, store.jobs)
	require.Empty(t, dispatcher.enqueued)
}

func TestReportHandlerCreateAsAdmin(t *testing.T) {
	store := &reportStoreStub{}
	dispatcher := &dispatcherStub{}
	router := buildReportRouter(store, dispatcher)

	payload := `{"type":"fees","format":"csv"}`
	req, _ := http.NewRequest(http.MethodPost, "/reports", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleAdmin))
	resp := performRequest(router, req)

	require.Equal(t, http.StatusAccepted, resp.Code)
	require.Len(t, dispatcher.enqueued, 1)
	require.Equal(t, "test-user", store.jobs["job-1"].CreatedBy)
}
