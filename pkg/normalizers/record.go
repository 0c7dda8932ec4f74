package normalizers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ramsey-B/baobab/pkg/models"
)

// Canonical field names a mapping may target.
const (
	FieldTaxID            = "tax_id"
	FieldName             = "name"
	FieldBusinessName     = "business_name"
	FieldBusinessType     = "business_type"
	FieldBusinessCategory = "business_category"
	FieldPhone            = "phone"
	FieldEmail            = "email"
	FieldWebsite          = "website"
	FieldAddress          = "address"
	FieldPropertyAddress  = "property_address"
	FieldZone             = "zone"
	FieldLatitude         = "latitude"
	FieldLongitude        = "longitude"
	FieldEstimatedIncome  = "estimated_income"
	FieldPropertyValue    = "property_value"
	FieldBusinessSize     = "business_size"
	FieldConfidenceScore  = "confidence_score"
)

// FieldMapping maps raw record keys to canonical field names. Adapters
// declare one; identity mapping works for sources that already emit
// canonical keys.
type FieldMapping map[string]string

// IdentityMapping maps every canonical field name to itself.
func IdentityMapping() FieldMapping {
	fields := []string{
		FieldTaxID, FieldName, FieldBusinessName, FieldBusinessType,
		FieldBusinessCategory, FieldPhone, FieldEmail, FieldWebsite,
		FieldAddress, FieldPropertyAddress, FieldZone, FieldLatitude,
		FieldLongitude, FieldEstimatedIncome, FieldPropertyValue,
		FieldBusinessSize, FieldConfidenceScore,
	}
	m := make(FieldMapping, len(fields))
	for _, f := range fields {
		m[f] = f
	}
	return m
}

// NormalizeRecord converts a raw record into canonical form. Strings are
// trimmed with empty values dropped, email is lowercased, phone is put
// in Nigerian E.164-like form, category and zone are derived when the
// source did not provide them, business name defaults to the entity
// name, and unparsable numerics are dropped rather than erroring. Pure
// function, no I/O.
func NormalizeRecord(raw models.RawRecord, mapping FieldMapping, sourceName string) models.CanonicalRecord {
	fields := make(map[string]any, len(mapping))
	for rawKey, canonical := range mapping {
		if v, ok := raw[rawKey]; ok && v != nil {
			fields[canonical] = v
		}
	}

	record := models.CanonicalRecord{
		SourceName: sourceName,
	}
	if payload, err := json.Marshal(map[string]any(raw)); err == nil {
		record.RawPayload = payload
	}

	if name := stringField(fields, FieldName); name != nil {
		record.Name = *name
	}
	record.TaxID = stringField(fields, FieldTaxID)
	record.BusinessName = stringField(fields, FieldBusinessName)
	// A source carrying a single trading name lists it under name only;
	// that name is also the business name. Name similarity matching and
	// business child rows both read business_name.
	if record.BusinessName == nil && record.Name != "" {
		name := record.Name
		record.BusinessName = &name
	}
	record.BusinessType = stringField(fields, FieldBusinessType)
	record.BusinessSize = stringField(fields, FieldBusinessSize)
	record.Address = stringField(fields, FieldAddress)
	record.PropertyAddress = stringField(fields, FieldPropertyAddress)
	record.Website = stringField(fields, FieldWebsite)

	if email := stringField(fields, FieldEmail); email != nil {
		normalized := NormalizeEmail(*email)
		record.Email = &normalized
	}
	if phone := stringField(fields, FieldPhone); phone != nil {
		normalized := NormalizePhone(*phone)
		if normalized != "" {
			record.Phone = &normalized
		}
	}

	record.BusinessCategory = stringField(fields, FieldBusinessCategory)
	if record.BusinessCategory == nil && record.BusinessType != nil {
		category := CategorizeBusiness(*record.BusinessType)
		record.BusinessCategory = &category
	}
	if record.BusinessCategory != nil {
		lowered := strings.ToLower(*record.BusinessCategory)
		record.BusinessCategory = &lowered
	}

	record.Zone = stringField(fields, FieldZone)
	if record.Zone == nil && record.Address != nil {
		if zone := ZoneFromAddress(*record.Address); zone != "" {
			record.Zone = &zone
		}
	}

	record.Latitude = floatField(fields, FieldLatitude)
	record.Longitude = floatField(fields, FieldLongitude)
	record.EstimatedIncome = floatField(fields, FieldEstimatedIncome)
	record.PropertyValue = floatField(fields, FieldPropertyValue)

	if confidence := floatField(fields, FieldConfidenceScore); confidence != nil {
		clamped := clamp01(*confidence)
		record.ConfidenceScore = &clamped
	}

	return record
}

// stringField trims the named field; empty or non-string values are
// absent.
func stringField(fields map[string]any, name string) *string {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// floatField parses the named field as a float; unparsable values are
// dropped, never an error.
func floatField(fields map[string]any, name string) *float64 {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return &f
		}
	}
	return nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
