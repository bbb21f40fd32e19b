package domain

import "strings"

// CustomerStats is the aggregate a metadata store computes for one customer.
type CustomerStats struct {
	DocumentCount    int
	AverageSentiment float64
}

type Analytics struct {
	CustomerID       string   `json:"customer_id"`
	DocumentCount    int      `json:"document_count"`
	AverageSentiment float64  `json:"average_sentiment"`
	Keyword          string   `json:"keyword,omitempty"`
	Matches          []string `json:"matches"`
}

// NormalizeKeyword trims the query keyword. An empty result means no keyword filter.
func NormalizeKeyword(keyword string) string {
	return strings.TrimSpace(keyword)
}

// MatchesKeyword reports whether text contains keyword, ignoring case.
// An empty keyword never matches.
func MatchesKeyword(text, keyword string) bool {
	keyword = NormalizeKeyword(keyword)
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}
