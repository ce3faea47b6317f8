package domain

import (
	"time"
)

// UserReport is a community submission about one establishment.
type UserReport struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`

	// Cleanliness rating, 1 to 5.
	Cleanliness int `json:"cleanliness"`

	// Observation flags
	SealedBottles bool `json:"sealedBottles"`
	InvoiceIssued bool `json:"invoiceIssued"`
	NormalPrices  bool `json:"normalPrices"`

	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PenaltyReport is a community-submitted complaint. Only the count per
// establishment feeds the trust score.
type PenaltyReport struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Reason     string    `json:"reason,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ReportStats aggregates the user reports of one establishment.
type ReportStats struct {
	Total int `json:"total"`

	// AvgCleanliness is the mean rating rounded to one decimal place.
	AvgCleanliness float64 `json:"avgCleanliness"`

	// Percentages of reports confirming each observation, rounded to
	// the nearest integer.
	PctSealedBottles int `json:"pctSealedBottles"`
	PctInvoiceIssued int `json:"pctInvoiceIssued"`
	PctNormalPrices  int `json:"pctNormalPrices"`
}

// AggregateStats is the service-wide derived view, recomputed whenever
// reports or penalties change.
type AggregateStats struct {
	TotalEstablishments int       `json:"totalEstablishments"`
	TotalReports        int       `json:"totalReports"`
	TotalPenalties      int       `json:"totalPenalties"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Search history query types.
const (
	QueryTypeCNPJ = "cnpj"
	QueryTypeCEP  = "cep"
)

// SearchEntry is one entry of the bounded search history log.
type SearchEntry struct {
	ID         string    `json:"id"`
	QueryType  string    `json:"queryType"`
	Identifier string    `json:"identifier"`
	Success    bool      `json:"success"`
	TradeName  string    `json:"tradeName,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HistoryLimit caps the search history log; the oldest entries are
// evicted once it overflows.
const HistoryLimit = 50
