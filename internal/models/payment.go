package models

import "time"

// Payment is an append-only monetary transaction applied against one fee.
// Payments are never updated or deleted; the sum of a fee's payments is the
// source of truth for how much has been paid.
type Payment struct {
	ID              string    `db:"id" json:"id"`
	FeeID           string    `db:"fee_id" json:"fee_id"`
	Amount          float64   `db:"amount" json:"amount"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method"`
	ReferenceNumber *string   `db:"reference_number" json:"reference_number,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// PaymentDetail carries a payment with fee and student context for listings.
type PaymentDetail struct {
	Payment
	StudentID   string  `db:"fee_student_id" json:"student_id"`
	FeeTypeName *string `db:"fee_type_name" json:"fee_type_name,omitempty"`
	FeeAmount   float64 `db:"fee_amount" json:"fee_amount"`
}

// PaymentReceipt is the outcome of the payment recording transaction: the
// persisted payment plus the fee status it produced.
type PaymentReceipt struct {
	Payment
	FeeStatus FeeStatus `json:"fee_status"`
	TotalPaid float64   `json:"total_paid"`
}

// PaymentStats aggregates payment activity over a trailing window.
type PaymentStats struct {
	TotalPayments int     `db:"total_payments" json:"total_payments"`
	TotalAmount   float64 `db:"total_amount" json:"total_amount"`
	AverageAmount float64 `db:"average_amount" json:"average_amount"`
	UniqueFees    int     `db:"unique_fees" json:"unique_fees"`
}
