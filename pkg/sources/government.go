package sources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/baobab/pkg/httpclient"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/normalizers"
)

// governmentMaxPages is the default registry pagination cap.
const governmentMaxPages = 10

// GovernmentAdapter pulls company records from a government business
// registry's JSON API.
type GovernmentAdapter struct {
	client   *httpclient.Client
	baseURL  string
	maxPages int
	logger   ectologger.Logger
}

func NewGovernmentAdapter(client *httpclient.Client, baseURL string, logger ectologger.Logger) *GovernmentAdapter {
	return &GovernmentAdapter{
		client:   client,
		baseURL:  baseURL,
		maxPages: governmentMaxPages,
		logger:   logger,
	}
}

// SetMaxPages overrides the pagination cap. Values below 1 are ignored.
func (a *GovernmentAdapter) SetMaxPages(n int) {
	if n >= 1 {
		a.maxPages = n
	}
}

func (a *GovernmentAdapter) Identity() models.AdapterIdentity {
	return models.AdapterIdentity{
		Name:       "government_registry",
		SourceURL:  a.baseURL,
		SourceType: models.SourceTypeGovernment,
	}
}

func (a *GovernmentAdapter) Mapping() normalizers.FieldMapping {
	return normalizers.FieldMapping{
		"name":             normalizers.FieldName,
		"tin":              normalizers.FieldTaxID,
		"business_type":    normalizers.FieldBusinessType,
		"address":          normalizers.FieldAddress,
		"phone":            normalizers.FieldPhone,
		"email":            normalizers.FieldEmail,
		"confidence_score": normalizers.FieldConfidenceScore,
	}
}

// governmentPage is one page of the registry listing.
type governmentPage struct {
	Companies []json.RawMessage `json:"companies"`
	HasMore   bool              `json:"has_more"`
}

// FetchAll pages through the registry listing. Records collected before
// a failure are returned alongside the error; malformed entries are
// skipped and reported as parse errors.
func (a *GovernmentAdapter) FetchAll(ctx context.Context) (FetchResult, error) {
	name := a.Identity().Name
	log := a.logger.WithContext(ctx).WithField("adapter", name)

	var result FetchResult
	for page := 1; page <= a.maxPages; page++ {
		url := fmt.Sprintf("%s/api/companies?page=%d", a.baseURL, page)

		var listing governmentPage
		if err := a.client.GetJSON(ctx, url, &listing); err != nil {
			log.WithError(err).Errorf("Registry fetch failed on page %d", page)
			return result, err
		}

		for _, item := range listing.Companies {
			var record models.RawRecord
			if err := json.Unmarshal(item, &record); err != nil {
				log.WithError(err).Warn("Skipping malformed registry record")
				result.ParseErrors = append(result.ParseErrors, &ParseError{Source: name, Err: err})
				continue
			}
			result.Records = append(result.Records, record)
		}

		if !listing.HasMore {
			break
		}
	}

	log.Infof("Fetched %d records from government registry", len(result.Records))
	return result, nil
}
