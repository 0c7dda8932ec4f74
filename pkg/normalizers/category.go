package normalizers

import "strings"

// DefaultCategory is assigned when no keyword matches.
const DefaultCategory = "services"

type categoryKeywords struct {
	category string
	keywords []string
}

// categoryTable is evaluated in order; the first category with a keyword
// contained in the input wins.
var categoryTable = []categoryKeywords{
	{"retail", []string{"retail", "trading", "shop", "store", "supermarket", "mall"}},
	{"manufacturing", []string{"manufactur", "production", "factory", "industrial"}},
	{"construction", []string{"construct", "building", "engineering", "contractor"}},
	{"transport", []string{"transport", "logistics", "delivery", "taxi", "bus"}},
	{"healthcare", []string{"health", "medical", "hospital", "clinic", "pharmacy"}},
	{"education", []string{"education", "school", "training", "college", "university"}},
	{"hospitality", []string{"hotel", "restaurant", "bar", "lodging", "hospitality"}},
	{"finance", []string{"finance", "bank", "insurance", "accounting", "financial"}},
	{"real_estate", []string{"real estate", "property", "housing", "estate"}},
	{"technology", []string{"technology", "software", "computer", "tech"}},
	{"agriculture", []string{"agricult", "farm", "crop", "livestock"}},
	{"wholesale", []string{"wholesale", "distribution", "supplier"}},
	{"services", []string{"services", "consulting", "professional"}},
}

// CategorizeBusiness maps free-form business type text to a fixed
// category, defaulting to "services".
func CategorizeBusiness(businessType string) string {
	typeLower := strings.ToLower(businessType)
	for _, entry := range categoryTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(typeLower, keyword) {
				return entry.category
			}
		}
	}
	return DefaultCategory
}
