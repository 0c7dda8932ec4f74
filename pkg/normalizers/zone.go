package normalizers

import "strings"

// CentralZone is the fallback zone for addresses that mention the city
// or territory without a recognized district.
const CentralZone = "Central Business District"

type zoneKeyword struct {
	keyword string
	zone    string
}

// zoneTable covers the Abuja area councils and districts the pipeline
// recognizes. Evaluated in order, first substring match wins.
var zoneTable = []zoneKeyword{
	{"wuse", "Wuse"},
	{"maitama", "Maitama"},
	{"asokoro", "Asokoro"},
	{"garki", "Garki"},
	{"kuje", "Kuje"},
	{"bwari", "Bwari"},
	{"kwali", "Kwali"},
	{"abaji", "Abaji"},
	{"central business district", CentralZone},
	{"cbd", CentralZone},
}

// ZoneFromAddress derives a geographic zone from address text. Returns
// an empty string when the address names no recognized area.
func ZoneFromAddress(address string) string {
	addressLower := strings.ToLower(address)
	for _, entry := range zoneTable {
		if strings.Contains(addressLower, entry.keyword) {
			return entry.zone
		}
	}
	if strings.Contains(addressLower, "abuja") || strings.Contains(addressLower, "fct") {
		return CentralZone
	}
	return ""
}
