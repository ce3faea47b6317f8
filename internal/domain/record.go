package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// CanonicalRecord is the unified registry schema for an establishment,
// independent of which provider supplied the data. Every field except
// Identifier is optional; absent fields stay at their zero value.
type CanonicalRecord struct {
	// Identifier is the 14-digit CNPJ, digits only.
	Identifier string `json:"identifier"`

	// Names
	TradeName string `json:"tradeName,omitempty"`
	LegalName string `json:"legalName,omitempty"`

	// Registry facts
	Equity  float64   `json:"equity,omitempty"`
	Founded time.Time `json:"founded,omitempty"`
	Status  string    `json:"status,omitempty"`

	Address  Address  `json:"address"`
	Activity Activity `json:"activity"`

	// Contact
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`

	// RawPayload keeps the original provider response for traceability.
	RawPayload json.RawMessage `json:"rawPayload,omitempty"`
}

// Address is the postal address of an establishment.
type Address struct {
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Zip        string `json:"zip,omitempty"`
}

// String assembles the address parts into one display line.
func (a Address) String() string {
	parts := make([]string, 0, 7)
	for _, p := range []string{a.Street, a.Number, a.Complement, a.District, a.City, a.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if a.Zip != "" {
		parts = append(parts, "CEP: "+a.Zip)
	}
	if len(parts) == 0 {
		return "address unavailable"
	}
	return strings.Join(parts, ", ")
}

// Activity is the primary economic activity (CNAE) of an establishment.
type Activity struct {
	Code string `json:"code,omitempty"`
	Text string `json:"text,omitempty"`
}

// ActiveStatus reports whether the registration status text indicates an
// active or regular registration.
func (r *CanonicalRecord) ActiveStatus() bool {
	s := strings.ToLower(r.Status)
	return strings.Contains(s, "ativa") || strings.Contains(s, "active") || strings.Contains(s, "regular")
}

// YearsOperating computes whole years since founding relative to now,
// clamped at zero. A zero Founded date yields zero.
func (r *CanonicalRecord) YearsOperating(now time.Time) int {
	if r.Founded.IsZero() {
		return 0
	}
	years := int(now.Sub(r.Founded).Hours() / (24 * 365.25))
	if years < 0 {
		return 0
	}
	return years
}

// DisplayName prefers the trade name, falling back to the legal name.
func (r *CanonicalRecord) DisplayName() string {
	if r.TradeName != "" {
		return r.TradeName
	}
	return r.LegalName
}

// Lookup origins.
const (
	OriginCache = "cache"
)

// LookupResult is the outcome of a successful identifier lookup.
type LookupResult struct {
	Record *CanonicalRecord `json:"record"`

	// Origin is "cache" or the id of the provider that answered.
	Origin string `json:"origin"`
}

// CEPResult is the outcome of a postal code lookup.
type CEPResult struct {
	Zip      string `json:"zip"`
	Street   string `json:"street,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
}
