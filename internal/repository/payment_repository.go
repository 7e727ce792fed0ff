package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupay/edupay-api/internal/models"
)

// PaymentRepository manages the append-only payment ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Record persists a payment and settles the owning fee's status in a single
// transaction. The fee row is locked FOR UPDATE first, so concurrent payments
// against the same fee serialize and each recomputation sees every committed
// payment plus its own insert. A missing fee aborts the whole unit: no payment
// may reference a nonexistent fee and no status update is ever skipped.
func (r *PaymentRepository) Record(ctx context.Context, payment *models.Payment) (*models.PaymentReceipt, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}

	var fee models.Fee
	const lockQuery = `SELECT id, student_id, fee_type_id, amount, due_date, status, created_at, updated_at FROM fees WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &fee, lockQuery, payment.FeeID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const insertQuery = `INSERT INTO payments (id, fee_id, amount, payment_method, reference_number, created_at)
        VALUES (:id, :fee_id, :amount, :payment_method, :reference_number, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, payment); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	var totalPaid float64
	const sumQuery = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE fee_id = $1`
	if err := tx.GetContext(ctx, &totalPaid, sumQuery, payment.FeeID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("sum fee payments: %w", err)
	}

	status := models.StatusForTotal(totalPaid, fee.Amount)
	if status != fee.Status {
		const updateQuery = `UPDATE fees SET status = $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateQuery, payment.FeeID, status, time.Now().UTC()); err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, fmt.Errorf("update fee status: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment tx: %w", err)
	}
	return &models.PaymentReceipt{Payment: *payment, FeeStatus: status, TotalPaid: totalPaid}, nil
}

// ListByFee returns a fee's payments, newest first.
func (r *PaymentRepository) ListByFee(ctx context.Context, feeID string) ([]models.Payment, error) {
	const query = `SELECT id, fee_id, amount, payment_method, reference_number, created_at
        FROM payments WHERE fee_id = $1 ORDER BY created_at DESC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, feeID); err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	return payments, nil
}

// ListByStudent returns all payments made against a student's fees, newest
// first, with fee context attached.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentDetail, error) {
	const query = `SELECT p.id, p.fee_id, p.amount, p.payment_method, p.reference_number, p.created_at,
        f.student_id AS fee_student_id, f.amount AS fee_amount, ft.name AS fee_type_name
        FROM payments p
        JOIN fees f ON f.id = p.fee_id
        LEFT JOIN fee_types ft ON ft.id = f.fee_type_id
        WHERE f.student_id = $1 ORDER BY p.created_at DESC`
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return payments, nil
}

// Stats aggregates payment activity since the provided cutoff.
func (r *PaymentRepository) Stats(ctx context.Context, since time.Time) (*models.PaymentStats, error) {
	const query = `SELECT COUNT(*) AS total_payments,
        COALESCE(SUM(amount), 0) AS total_amount,
        COALESCE(AVG(amount), 0) AS average_amount,
        COUNT(DISTINCT fee_id) AS unique_fees
        FROM payments WHERE created_at >= $1`
	var stats models.PaymentStats
	if err := r.db.GetContext(ctx, &stats, query, since); err != nil {
		return nil, fmt.Errorf("payment stats: %w", err)
	}
	return &stats, nil
}

// ListAll returns every payment with fee context, newest first. Used by the
// export pipeline.
func (r *PaymentRepository) ListAll(ctx context.Context, since *time.Time) ([]models.PaymentDetail, error) {
	query := `SELECT p.id, p.fee_id, p.amount, p.payment_method, p.reference_number, p.created_at,
        f.student_id AS fee_student_id, f.amount AS fee_amount, ft.name AS fee_type_name
        FROM payments p
        JOIN fees f ON f.id = p.fee_id
        LEFT JOIN fee_types ft ON ft.id = f.fee_type_id`
	var args []interface{}
	if since != nil {
		query += " WHERE p.created_at >= $1"
		args = append(args, *since)
	}
	query += " ORDER BY p.created_at DESC"
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
