// Package merging decides create-vs-update for canonical records and
// reconciles conflicting fields without ever overwriting populated
// values.
package merging

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/store"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// Merge outcomes, one per processed record.
const (
	ActionAdded     = "added"
	ActionUpdated   = "updated"
	ActionDuplicate = "duplicate"
	ActionSkipped   = "skipped"
)

// ErrNoUsableName marks a record without a name or business name. Such
// a record cannot become an entity.
var ErrNoUsableName = errors.New("record has no name or business name")

// Outcome describes what one record did to the store.
type Outcome struct {
	PayerID  string
	Action   string
	Strategy string
}

// Config carries the merge policy knobs.
type Config struct {
	// ConfidenceThreshold gates new entity creation when
	// RejectLowConfidence is on.
	ConfidenceThreshold float64
	RejectLowConfidence bool
}

// Engine runs the match-then-merge step for each record. Every record
// is processed inside one store transaction so create-or-update stays
// atomic.
type Engine struct {
	store   store.Store
	matcher *matching.Engine
	config  Config
	logger  ectologger.Logger
}

func NewEngine(s store.Store, matcher *matching.Engine, config Config, logger ectologger.Logger) *Engine {
	return &Engine{
		store:   s,
		matcher: matcher,
		config:  config,
		logger:  logger,
	}
}

// ProcessRecord matches the record against the store and either creates
// a new payer or merges into the matched one.
func (e *Engine) ProcessRecord(ctx context.Context, record *models.CanonicalRecord, source *models.DataSource) (*Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.ProcessRecord")
	defer span.End()

	if !record.HasName() {
		return nil, ErrNoUsableName
	}

	var outcome *Outcome
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		match, err := e.matcher.FindMatch(ctx, record)
		if err != nil {
			return err
		}

		if match == nil {
			outcome, err = e.createPayer(ctx, record, source)
			return err
		}
		outcome, err = e.updatePayer(ctx, match, record, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) createPayer(ctx context.Context, record *models.CanonicalRecord, source *models.DataSource) (*Outcome, error) {
	log := e.logger.WithContext(ctx).WithField("source", source.Name)

	if e.config.RejectLowConfidence && record.Confidence() < e.config.ConfidenceThreshold {
		log.WithField("confidence", record.Confidence()).Debug("Rejected low confidence record")
		return &Outcome{Action: ActionSkipped}, nil
	}

	confidence := record.Confidence()
	payer := &models.Payer{
		TaxID:            record.TaxID,
		Name:             record.Name,
		BusinessName:     record.BusinessName,
		BusinessType:     record.BusinessType,
		BusinessCategory: record.BusinessCategory,
		Phone:            record.Phone,
		Email:            record.Email,
		Address:          record.Address,
		Zone:             record.Zone,
		Latitude:         record.Latitude,
		Longitude:        record.Longitude,
		EstimatedIncome:  record.EstimatedIncome,
		PropertyValue:    record.PropertyValue,
		BusinessSize:     record.BusinessSize,
		ConfidenceScore:  confidence,
		DataSourceID:     &source.ID,
	}

	if err := e.store.CreatePayer(ctx, payer); err != nil {
		return nil, err
	}
	if _, err := e.createChildRecords(ctx, payer, record); err != nil {
		return nil, err
	}

	log.WithField("payer_id", payer.ID).Debugf("Created new payer %s", payer.Name)
	return &Outcome{PayerID: payer.ID, Action: ActionAdded}, nil
}

func (e *Engine) updatePayer(ctx context.Context, match *matching.Result, record *models.CanonicalRecord, source *models.DataSource) (*Outcome, error) {
	log := e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"source":   source.Name,
		"payer_id": match.Payer.ID,
		"strategy": match.Strategy,
	})

	payer := match.Payer
	changed := false

	// Fill-only merge: fields are written only when the incoming record
	// is more confident than the entity and the field is empty.
	// Confidence moves to the max of old and new.
	if record.Confidence() > payer.ConfidenceScore {
		e.fillFields(payer, record)
		payer.ConfidenceScore = record.Confidence()
		changed = true
	}

	// Provenance upgrade is independent of field merge: the more
	// reliable source takes over the reference.
	upgraded, err := e.upgradeProvenance(ctx, payer, source)
	if err != nil {
		return nil, err
	}
	changed = changed || upgraded

	if changed {
		if err := e.store.UpdatePayer(ctx, payer); err != nil {
			return nil, err
		}
	}

	// A matched entity can still gain new child facts even when no top
	// level field moved.
	childrenAdded, err := e.createChildRecords(ctx, payer, record)
	if err != nil {
		return nil, err
	}

	if !changed && !childrenAdded {
		log.Debug("Record is an exact duplicate")
		return &Outcome{PayerID: payer.ID, Action: ActionDuplicate, Strategy: match.Strategy}, nil
	}

	log.Debugf("Updated payer %s", payer.Name)
	return &Outcome{PayerID: payer.ID, Action: ActionUpdated, Strategy: match.Strategy}, nil
}

// fillFields applies the fill-only policy over the updatable field
// list. Reports whether anything was written.
func (e *Engine) fillFields(payer *models.Payer, record *models.CanonicalRecord) bool {
	changed := false
	changed = fillString(&payer.Phone, record.Phone) || changed
	changed = fillString(&payer.Email, record.Email) || changed
	changed = fillString(&payer.Address, record.Address) || changed
	changed = fillString(&payer.BusinessName, record.BusinessName) || changed
	changed = fillString(&payer.BusinessType, record.BusinessType) || changed
	changed = fillString(&payer.BusinessCategory, record.BusinessCategory) || changed
	changed = fillString(&payer.Zone, record.Zone) || changed
	changed = fillString(&payer.BusinessSize, record.BusinessSize) || changed
	changed = fillFloat(&payer.Latitude, record.Latitude) || changed
	changed = fillFloat(&payer.Longitude, record.Longitude) || changed
	changed = fillFloat(&payer.EstimatedIncome, record.EstimatedIncome) || changed
	changed = fillFloat(&payer.PropertyValue, record.PropertyValue) || changed
	return changed
}

// upgradeProvenance reassigns the payer's data source when the incoming
// source is strictly more reliable.
func (e *Engine) upgradeProvenance(ctx context.Context, payer *models.Payer, source *models.DataSource) (bool, error) {
	current := 0.0
	if payer.DataSourceID != nil {
		currentSource, err := e.store.GetDataSource(ctx, *payer.DataSourceID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if currentSource != nil {
			current = currentSource.ReliabilityScore
		}
	}

	if source.ReliabilityScore > current {
		payer.DataSourceID = &source.ID
		return true, nil
	}
	return false, nil
}

// createChildRecords creates the contact, business, and property rows
// the record implies, skipping ones that already exist. Reports whether
// anything new was created.
func (e *Engine) createChildRecords(ctx context.Context, payer *models.Payer, record *models.CanonicalRecord) (bool, error) {
	created := false

	contacts := []struct {
		contactType string
		value       *string
	}{
		{models.ContactTypePhone, record.Phone},
		{models.ContactTypeEmail, record.Email},
		{models.ContactTypeWebsite, record.Website},
	}
	for _, c := range contacts {
		if c.value == nil || *c.value == "" {
			continue
		}
		exists, err := e.store.ContactExists(ctx, payer.ID, c.contactType, *c.value)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		contact := &models.Contact{
			PayerID:     payer.ID,
			ContactType: c.contactType,
			Value:       *c.value,
		}
		if err := e.store.CreateContact(ctx, contact); err != nil {
			return created, err
		}
		created = true
	}

	businessName := record.BusinessName
	if businessName == nil {
		businessName = payer.BusinessName
	}
	if businessName != nil && *businessName != "" {
		exists, err := e.store.BusinessExists(ctx, payer.ID, *businessName)
		if err != nil {
			return created, err
		}
		if !exists {
			business := &models.Business{
				PayerID:      payer.ID,
				Name:         *businessName,
				BusinessType: firstString(record.BusinessType, payer.BusinessType),
				Category:     firstString(record.BusinessCategory, payer.BusinessCategory),
				Status:       "active",
			}
			if err := e.store.CreateBusiness(ctx, business); err != nil {
				return created, err
			}
			created = true
		}
	}

	propertyAddress := record.PropertyAddress
	if propertyAddress == nil && record.PropertyValue != nil {
		propertyAddress = firstString(record.Address, payer.Address)
	}
	if propertyAddress != nil && *propertyAddress != "" {
		exists, err := e.store.PropertyExists(ctx, payer.ID, *propertyAddress)
		if err != nil {
			return created, err
		}
		if !exists {
			property := &models.Property{
				PayerID:        payer.ID,
				Address:        *propertyAddress,
				Zone:           firstString(record.Zone, payer.Zone),
				Latitude:       firstFloat(record.Latitude, payer.Latitude),
				Longitude:      firstFloat(record.Longitude, payer.Longitude),
				EstimatedValue: firstFloat(record.PropertyValue, payer.PropertyValue),
			}
			if err := e.store.CreateProperty(ctx, property); err != nil {
				return created, err
			}
			created = true
		}
	}

	return created, nil
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
