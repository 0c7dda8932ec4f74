package models

import (
	"encoding/json"
	"time"
)

// Payer represents a deduplicated taxpayer entity
// Field order matches schema: id, tax_id, name, business_name, ...
type Payer struct {
	ID               string     `json:"id" db:"id"`
	TaxID            *string    `json:"tax_id,omitempty" db:"tax_id"`
	Name             string     `json:"name" db:"name"`
	BusinessName     *string    `json:"business_name,omitempty" db:"business_name"`
	BusinessType     *string    `json:"business_type,omitempty" db:"business_type"`
	BusinessCategory *string    `json:"business_category,omitempty" db:"business_category"`
	Phone            *string    `json:"phone,omitempty" db:"phone"`
	Email            *string    `json:"email,omitempty" db:"email"`
	Address          *string    `json:"address,omitempty" db:"address"`
	Zone             *string    `json:"zone,omitempty" db:"zone"`
	Latitude         *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude        *float64   `json:"longitude,omitempty" db:"longitude"`
	EstimatedIncome  *float64   `json:"estimated_income,omitempty" db:"estimated_income"`
	PropertyValue    *float64   `json:"property_value,omitempty" db:"property_value"`
	BusinessSize     *string    `json:"business_size,omitempty" db:"business_size"`
	ConfidenceScore  float64    `json:"confidence_score" db:"confidence_score"`
	DataSourceID     *string    `json:"data_source_id,omitempty" db:"data_source_id"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	LastUpdated      time.Time  `json:"last_updated" db:"last_updated"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// HasName reports whether the payer carries at least one usable name.
// A payer without a name or business name cannot exist.
func (p *Payer) HasName() bool {
	if p.Name != "" {
		return true
	}
	return p.BusinessName != nil && *p.BusinessName != ""
}

// CanonicalRecord is the normalized, source-agnostic form of one incoming
// record. It never touches storage directly; the merge engine consumes it.
type CanonicalRecord struct {
	TaxID            *string         `json:"tax_id,omitempty"`
	Name             string          `json:"name"`
	BusinessName     *string         `json:"business_name,omitempty"`
	BusinessType     *string         `json:"business_type,omitempty"`
	BusinessCategory *string         `json:"business_category,omitempty"`
	Phone            *string         `json:"phone,omitempty"`
	Email            *string         `json:"email,omitempty"`
	Website          *string         `json:"website,omitempty"`
	Address          *string         `json:"address,omitempty"`
	PropertyAddress  *string         `json:"property_address,omitempty"`
	Zone             *string         `json:"zone,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Longitude        *float64        `json:"longitude,omitempty"`
	EstimatedIncome  *float64        `json:"estimated_income,omitempty"`
	PropertyValue    *float64        `json:"property_value,omitempty"`
	BusinessSize     *string         `json:"business_size,omitempty"`
	ConfidenceScore  *float64        `json:"confidence_score,omitempty"`
	SourceName       string          `json:"source_name"`
	RawPayload       json.RawMessage `json:"raw_payload,omitempty"`
}

// Confidence returns the record's confidence score, defaulting to 0.5
// when the source did not provide one.
func (r *CanonicalRecord) Confidence() float64 {
	if r.ConfidenceScore == nil {
		return 0.5
	}
	return *r.ConfidenceScore
}

// HasName reports whether the record carries at least one usable name.
func (r *CanonicalRecord) HasName() bool {
	if r.Name != "" {
		return true
	}
	return r.BusinessName != nil && *r.BusinessName != ""
}

// RawRecord is the untyped key/value output of a source adapter before
// normalization.
type RawRecord map[string]any

// PayerListResponse is the response for listing payers
type PayerListResponse struct {
	Items      []Payer `json:"items"`
	TotalCount int     `json:"total_count"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}
