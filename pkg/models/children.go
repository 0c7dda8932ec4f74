package models

import "time"

// Contact types recognized on a payer.
const (
	ContactTypePhone   = "phone"
	ContactTypeEmail   = "email"
	ContactTypeWebsite = "website"
)

// Contact is a single point of contact owned by a payer.
// Uniqueness is scoped to (payer_id, contact_type, lower(value)).
type Contact struct {
	ID          string    `json:"id" db:"id"`
	PayerID     string    `json:"payer_id" db:"payer_id"`
	ContactType string    `json:"contact_type" db:"contact_type"`
	Value       string    `json:"value" db:"value"`
	IsPrimary   bool      `json:"is_primary" db:"is_primary"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Business is a named business owned by a payer.
// Uniqueness is scoped to (payer_id, lower(name)).
type Business struct {
	ID           string    `json:"id" db:"id"`
	PayerID      string    `json:"payer_id" db:"payer_id"`
	Name         string    `json:"name" db:"name"`
	BusinessType *string   `json:"business_type,omitempty" db:"business_type"`
	Category     *string   `json:"category,omitempty" db:"category"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Property is a physical property owned by a payer.
// Uniqueness is scoped to (payer_id, lower(address)).
type Property struct {
	ID             string    `json:"id" db:"id"`
	PayerID        string    `json:"payer_id" db:"payer_id"`
	Address        string    `json:"address" db:"address"`
	Zone           *string   `json:"zone,omitempty" db:"zone"`
	Latitude       *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64  `json:"longitude,omitempty" db:"longitude"`
	EstimatedValue *float64  `json:"estimated_value,omitempty" db:"estimated_value"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
