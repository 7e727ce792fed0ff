package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupay/edupay-api/internal/dto"
	"github.com/edupay/edupay-api/internal/models"
)

// FeeRepository manages persistence for fee and fee type records.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// CreateFeeType inserts a new fee type.
func (r *FeeRepository) CreateFeeType(ctx context.Context, feeType *models.FeeType) error {
	if feeType.ID == "" {
		feeType.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feeType.CreatedAt.IsZero() {
		feeType.CreatedAt = now
	}
	feeType.UpdatedAt = now
	const query = `INSERT INTO fee_types (id, name, description, created_at, updated_at)
        VALUES (:id, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feeType); err != nil {
		return fmt.Errorf("create fee type: %w", err)
	}
	return nil
}

// ListFeeTypes returns all fee types, newest first.
func (r *FeeRepository) ListFeeTypes(ctx context.Context) ([]models.FeeType, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM fee_types ORDER BY created_at DESC`
	var feeTypes []models.FeeType
	if err := r.db.SelectContext(ctx, &feeTypes, query); err != nil {
		return nil, fmt.Errorf("list fee types: %w", err)
	}
	return feeTypes, nil
}

// FindFeeTypeByID fetches a single fee type.
func (r *FeeRepository) FindFeeTypeByID(ctx context.Context, id string) (*models.FeeType, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM fee_types WHERE id = $1`
	var feeType models.FeeType
	if err := r.db.GetContext(ctx, &feeType, query, id); err != nil {
		return nil, err
	}
	return &feeType, nil
}

// CountFeesByType returns how many fees reference the fee type.
func (r *FeeRepository) CountFeesByType(ctx context.Context, feeTypeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM fees WHERE fee_type_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, feeTypeID); err != nil {
		return 0, fmt.Errorf("count fees by type: %w", err)
	}
	return count, nil
}

// DeleteFeeType removes a fee type permanently.
func (r *FeeRepository) DeleteFeeType(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM fee_types WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete fee type: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete fee type rows affected: %w", err)
	}
	return affected > 0, nil
}

// Create inserts a new fee.
func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	if fee.Status == "" {
		fee.Status = models.FeeStatusPending
	}
	now := time.Now().UTC()
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = now
	}
	fee.UpdatedAt = now
	const query = `INSERT INTO fees (id, student_id, fee_type_id, amount, due_date, status, created_at, updated_at)
        VALUES (:id, :student_id, :fee_type_id, :amount, :due_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// FindByID fetches a fee by identifier with its fee type context.
func (r *FeeRepository) FindByID(ctx context.Context, id string) (*models.FeeDetail, error) {
	const query = `SELECT f.id, f.student_id, f.fee_type_id, f.amount, f.due_date, f.status, f.created_at, f.updated_at,
        ft.name AS fee_type_name, ft.description AS fee_type_description
        FROM fees f JOIN fee_types ft ON ft.id = f.fee_type_id WHERE f.id = $1`
	var fee models.FeeDetail
	if err := r.db.GetContext(ctx, &fee, query, id); err != nil {
		return nil, err
	}
	return &fee, nil
}

// List returns fees matching the filter with a total count.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, int, error) {
	base := "FROM fees f JOIN fee_types ft ON ft.id = f.fee_type_id WHERE 1=1"
	var args []interface{}

	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND f.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil {
		base += fmt.Sprintf(" AND f.status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT f.id, f.student_id, f.fee_type_id, f.amount, f.due_date, f.status, f.created_at, f.updated_at,
        ft.name AS fee_type_name, ft.description AS fee_type_description
        %s ORDER BY f.due_date ASC, f.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var fees []models.FeeDetail
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fees: %w", err)
	}
	return fees, total, nil
}

// ListByStudent returns a student's fees with fee type context ordered by due
// date.
func (r *FeeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.FeeDetail, error) {
	const query = `SELECT f.id, f.student_id, f.fee_type_id, f.amount, f.due_date, f.status, f.created_at, f.updated_at,
        ft.name AS fee_type_name, ft.description AS fee_type_description
        FROM fees f JOIN fee_types ft ON ft.id = f.fee_type_id
        WHERE f.student_id = $1 ORDER BY f.due_date ASC`
	var fees []models.FeeDetail
	if err := r.db.SelectContext(ctx, &fees, query, studentID); err != nil {
		return nil, fmt.Errorf("list student fees: %w", err)
	}
	return fees, nil
}

// ListAll returns every fee with student and fee type context for report
// generation. When onlyOutstanding is set, settled fees are excluded.
func (r *FeeRepository) ListAll(ctx context.Context, onlyOutstanding bool) ([]models.FeeExportRow, error) {
	query := `SELECT f.id, f.student_id, f.fee_type_id, f.amount, f.due_date, f.status, f.created_at, f.updated_at,
        ft.name AS fee_type_name, ft.description AS fee_type_description,
        s.student_id AS student_number, s.first_name, s.last_name,
        COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.fee_id = f.id), 0) AS total_paid
        FROM fees f
        JOIN fee_types ft ON ft.id = f.fee_type_id
        JOIN students s ON s.id = f.student_id`
	if onlyOutstanding {
		query += ` WHERE f.status <> 'paid'`
	}
	query += ` ORDER BY f.due_date ASC, f.created_at DESC`

	var rows []models.FeeExportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list fees for export: %w", err)
	}
	return rows, nil
}

// UpdateStatus overrides the stored fee status.
func (r *FeeRepository) UpdateStatus(ctx context.Context, id string, status models.FeeStatus) (bool, error) {
	const query = `UPDATE fees SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update fee status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update fee status rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountPayments returns the number of payments recorded against the fee.
func (r *FeeRepository) CountPayments(ctx context.Context, feeID string) (int, error) {
	const query = `SELECT COUNT(*) FROM payments WHERE fee_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, feeID); err != nil {
		return 0, fmt.Errorf("count fee payments: %w", err)
	}
	return count, nil
}

// Delete removes a fee permanently.
func (r *FeeRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM fees WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete fee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete fee rows affected: %w", err)
	}
	return affected > 0, nil
}

// Summary computes the dashboard aggregate in one round trip per relation.
func (r *FeeRepository) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	var summary dto.DashboardSummary

	const studentQuery = `SELECT COUNT(*) FROM students`
	if err := r.db.GetContext(ctx, &summary.TotalStudents, studentQuery); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	const feeQuery = `SELECT COUNT(*) AS total_fees,
        COALESCE(SUM(amount), 0) AS total_fee_amount,
        COUNT(*) FILTER (WHERE status = 'pending') AS pending,
        COUNT(*) FILTER (WHERE status = 'partial') AS partial,
        COUNT(*) FILTER (WHERE status = 'paid') AS paid
        FROM fees`
	var feeRow struct {
		TotalFees      int     `db:"total_fees"`
		TotalFeeAmount float64 `db:"total_fee_amount"`
		Pending        int     `db:"pending"`
		Partial        int     `db:"partial"`
		Paid           int     `db:"paid"`
	}
	if err := r.db.GetContext(ctx, &feeRow, feeQuery); err != nil {
		return nil, fmt.Errorf("aggregate fees: %w", err)
	}
	summary.TotalFees = feeRow.TotalFees
	summary.TotalFeeAmount = feeRow.TotalFeeAmount
	summary.StatusCounts = dto.FeeStatusCounts{Pending: feeRow.Pending, Partial: feeRow.Partial, Paid: feeRow.Paid}

	const paidQuery = `SELECT COALESCE(SUM(amount), 0) FROM payments`
	if err := r.db.GetContext(ctx, &summary.TotalPaid, paidQuery); err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("aggregate payments: %w", err)
		}
	}

	summary.TotalArrears = summary.TotalFeeAmount - summary.TotalPaid
	if summary.TotalArrears < 0 {
		summary.TotalArrears = 0
	}
	if summary.TotalFeeAmount > 0 {
		summary.CollectionRate = summary.TotalPaid / summary.TotalFeeAmount * 100
		if summary.CollectionRate > 100 {
			summary.CollectionRate = 100
		}
	}
	return &summary, nil
}
