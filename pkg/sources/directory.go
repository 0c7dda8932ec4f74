package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/baobab/pkg/httpclient"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/normalizers"
)

// directoryMaxPages is the default per-category pagination cap.
const directoryMaxPages = 10

// defaultCategories are the directory search categories with a revenue
// footprint in the territory.
var defaultCategories = []string{
	"Construction", "Real Estate", "Manufacturing",
	"Retail Trade", "Wholesale Trade", "Transportation",
	"Hotels", "Restaurants", "Healthcare", "Education",
	"Financial Services", "Technology", "Agriculture",
}

// DirectoryAdapter pulls listings from an online business directory's
// search API, one category at a time.
type DirectoryAdapter struct {
	client     *httpclient.Client
	name       string
	baseURL    string
	location   string
	categories []string
	maxPages   int
	logger     ectologger.Logger
}

func NewDirectoryAdapter(client *httpclient.Client, name, baseURL string, logger ectologger.Logger) *DirectoryAdapter {
	return &DirectoryAdapter{
		client:     client,
		name:       name,
		baseURL:    baseURL,
		location:   "Abuja",
		categories: defaultCategories,
		maxPages:   directoryMaxPages,
		logger:     logger,
	}
}

// SetCategories overrides the default search categories.
func (a *DirectoryAdapter) SetCategories(categories []string) {
	a.categories = categories
}

// SetMaxPages overrides the per-category pagination cap. Values below 1
// are ignored.
func (a *DirectoryAdapter) SetMaxPages(n int) {
	if n >= 1 {
		a.maxPages = n
	}
}

func (a *DirectoryAdapter) Identity() models.AdapterIdentity {
	return models.AdapterIdentity{
		Name:       a.name,
		SourceURL:  a.baseURL,
		SourceType: models.SourceTypeDirectory,
	}
}

func (a *DirectoryAdapter) Mapping() normalizers.FieldMapping {
	return normalizers.FieldMapping{
		"business_name":    normalizers.FieldName,
		"category":         normalizers.FieldBusinessType,
		"address":          normalizers.FieldAddress,
		"phone":            normalizers.FieldPhone,
		"website":          normalizers.FieldWebsite,
		"confidence_score": normalizers.FieldConfidenceScore,
	}
}

// directoryPage is one page of directory search results.
type directoryPage struct {
	Listings []json.RawMessage `json:"listings"`
	HasMore  bool              `json:"has_more"`
}

// FetchAll walks every category sequentially, paging each up to the
// cap. A failed category ends the fetch; already collected records are
// returned alongside the error. Malformed listings are skipped and
// reported as parse errors.
func (a *DirectoryAdapter) FetchAll(ctx context.Context) (FetchResult, error) {
	log := a.logger.WithContext(ctx).WithField("adapter", a.name)

	var result FetchResult
	for _, category := range a.categories {
		if err := a.fetchCategory(ctx, category, &result); err != nil {
			log.WithError(err).Errorf("Directory fetch failed in category %s", category)
			return result, err
		}
	}

	log.Infof("Fetched %d records from %s", len(result.Records), a.name)
	return result, nil
}

func (a *DirectoryAdapter) fetchCategory(ctx context.Context, category string, result *FetchResult) error {
	log := a.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"adapter":  a.name,
		"category": category,
	})

	count := 0
	for page := 1; page <= a.maxPages; page++ {
		params := url.Values{}
		params.Set("category", category)
		params.Set("location", a.location)
		params.Set("page", fmt.Sprintf("%d", page))
		searchURL := fmt.Sprintf("%s/search?%s", a.baseURL, params.Encode())

		var results directoryPage
		if err := a.client.GetJSON(ctx, searchURL, &results); err != nil {
			return err
		}

		for _, item := range results.Listings {
			var record models.RawRecord
			if err := json.Unmarshal(item, &record); err != nil {
				log.WithError(err).Warn("Skipping malformed directory listing")
				result.ParseErrors = append(result.ParseErrors, &ParseError{Source: a.name, Err: err})
				continue
			}
			result.Records = append(result.Records, record)
			count++
		}

		if !results.HasMore {
			break
		}
	}

	log.Debugf("Fetched %d records in category %s", count, category)
	return nil
}
