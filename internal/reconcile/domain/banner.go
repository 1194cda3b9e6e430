package domain

import "strings"

// bannerMap converts raw Store_Type codes to banner labels.
var bannerMap = map[string]string{
	"SUP":        "Walmart",
	"WNM":        "Walmart",
	"W/M":        "Walmart",
	"FASHION":    "Walmart",
	"SAM":        "Sam's Club",
	"FC":         "DC",
	"GROCERY DC": "DC",
	"GDC":        "DC",
}

// ResolveBanner converts a warehouse Store_Type code to a banner label.
// Unrecognized non-empty codes default to Walmart.
func ResolveBanner(storeType string) string {
	if storeType == "" {
		return "Unknown"
	}
	if banner, ok := bannerMap[strings.TrimSpace(strings.ToUpper(storeType))]; ok {
		return banner
	}
	return "Walmart"
}
