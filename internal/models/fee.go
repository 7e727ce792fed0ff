package models

import "time"

// FeeStatus enumerates the derived payment state of a fee.
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPartial FeeStatus = "partial"
	FeeStatusPaid    FeeStatus = "paid"
)

// Valid reports whether the status is one of the known values.
func (s FeeStatus) Valid() bool {
	switch s {
	case FeeStatusPending, FeeStatusPartial, FeeStatusPaid:
		return true
	default:
		return false
	}
}

// StatusForTotal derives the fee status from the cumulative paid total.
func StatusForTotal(totalPaid, feeAmount float64) FeeStatus {
	switch {
	case totalPaid >= feeAmount:
		return FeeStatusPaid
	case totalPaid > 0:
		return FeeStatusPartial
	default:
		return FeeStatusPending
	}
}

// Fee is a monetary obligation owed by exactly one student.
type Fee struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	FeeTypeID string    `db:"fee_type_id" json:"fee_type_id"`
	Amount    float64   `db:"amount" json:"amount"`
	DueDate   time.Time `db:"due_date" json:"due_date"`
	Status    FeeStatus `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FeeDetail carries a fee together with its fee type context.
type FeeDetail struct {
	Fee
	FeeTypeName        string  `db:"fee_type_name" json:"fee_type_name"`
	FeeTypeDescription *string `db:"fee_type_description" json:"fee_type_description,omitempty"`
}

// FeeExportRow enriches a fee with student identity and its running paid
// total for report generation.
type FeeExportRow struct {
	FeeDetail
	StudentNumber string  `db:"student_number" json:"student_number"`
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	TotalPaid     float64 `db:"total_paid" json:"total_paid"`
}

// FeeFilter captures filtering criteria for listing fees.
type FeeFilter struct {
	StudentID string
	Status    *FeeStatus
	Page      int
	PageSize  int
}
