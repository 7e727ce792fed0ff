package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupay/edupay-api/internal/models"
	"github.com/edupay/edupay-api/internal/service"
)

type paymentRepoStub struct {
	receipt   *models.PaymentReceipt
	recordErr error
	payments  []models.Payment
	stats     *models.PaymentStats
}

func (s *paymentRepoStub) Record(ctx context.Context, payment *models.Payment) (*models.PaymentReceipt, error) {
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	return s.receipt, nil
}

func (s *paymentRepoStub) ListByFee(ctx context.Context, feeID string) ([]models.Payment, error) {
	return s.payments, nil
}

func (s *paymentRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	return nil, nil
}

func (s *paymentRepoStub) Stats(ctx context.Context, since time.Time) (*models.PaymentStats, error) {
	return s.stats, nil
}

type paymentStudentStub struct{}

func (paymentStudentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

func buildPaymentRouter(repo *paymentRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewPaymentService(repo, paymentStudentStub{}, nil, nil, nil, zap.NewNop(), 30, time.Minute)
	paymentHandler := NewPaymentHandler(svc)

	router := gin.New()
	router.POST("/payments", paymentHandler.Record)
	router.GET("/payments/stats", paymentHandler.Stats)
	router.GET("/payments/fee/:id", paymentHandler.ListByFee)
	router.GET("/payments/student/:id", paymentHandler.ListByStudent)
	return router
}

func TestPaymentHandlerRecord(t *testing.T) {
	repo := &paymentRepoStub{receipt: &models.PaymentReceipt{
		Payment:   models.Payment{ID: "pay-1", FeeID: "fee-1", Amount: 200},
		FeeStatus: models.FeeStatusPaid,
		TotalPaid: 500,
	}}
	router := buildPaymentRouter(repo)

	payload := `{"fee_id":"fee-1","amount":200,"payment_method":"cash"}`
	req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusCreated, resp.Code)

	var envelope struct {
		Data models.PaymentReceipt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, models.FeeStatusPaid, envelope.Data.FeeStatus)
	require.Equal(t, 500.0, envelope.Data.TotalPaid)
}

func TestPaymentHandlerRecordValidation(t *testing.T) {
	router := buildPaymentRouter(&paymentRepoStub{})

	payload := `{"fee_id":"fee-1","amount":-10,"payment_method":"cash"}`
	req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPaymentHandlerRecordMissingFee(t *testing.T) {
	router := buildPaymentRouter(&paymentRepoStub{recordErr: sql.ErrNoRows})

	payload := `{"fee_id":"missing","amount":100,"payment_method":"cash"}`
	req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPaymentHandlerStats(t *testing.T) {
	router := buildPaymentRouter(&paymentRepoStub{stats: &models.PaymentStats{TotalPayments: 7, TotalAmount: 1500}})

	req, _ := http.NewRequest(http.MethodGet, "/payments/stats", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"total_payments":7`)
}

func TestPaymentHandlerListByStudentNotFound(t *testing.T) {
	router := buildPaymentRouter(&paymentRepoStub{})

	req, _ := http.NewRequest(http.MethodGet, "/payments/student/missing", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
