package dto

// FeeStatusCounts breaks fee volume down by derived payment state.
type FeeStatusCounts struct {
	Pending int `db:"pending" json:"pending"`
	Partial int `db:"partial" json:"partial"`
	Paid    int `db:"paid" json:"paid"`
}

// DashboardSummary is the server-computed aggregate the admin dashboard
// renders. Totals come from a single SQL aggregate, never from shipping whole
// collections to the client.
type DashboardSummary struct {
	TotalStudents  int             `json:"total_students"`
	TotalFees      int             `json:"total_fees"`
	TotalFeeAmount float64         `json:"total_fee_amount"`
	TotalPaid      float64         `json:"total_paid"`
	TotalArrears   float64         `json:"total_arrears"`
	CollectionRate float64         `json:"collection_rate"`
	StatusCounts   FeeStatusCounts `json:"status_counts"`
}
