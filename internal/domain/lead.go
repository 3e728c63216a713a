package domain

import "strings"

// Unknown is the placeholder for any field whose value could not be
// determined. Downstream consumers rely on it being present instead of
// empty strings or nulls.
const Unknown = "N/A"

type Lead struct {
	Name     string
	Address  string
	State    string // 2-letter code, upper case
	Phone    string // raw as scraped, not dial-formatted
	Website  string
	Category string
	Rating   string // one fractional digit, e.g. "4.5"

	// Attached by the orchestrator after harvesting.
	SearchLocation string
	SearchCategory string
}

func (l *Lead) HasPhone() bool   { return Known(l.Phone) }
func (l *Lead) HasWebsite() bool { return Known(l.Website) }

// NeedsEnrichment reports whether a second detail-view pass could still
// recover something for this lead.
func (l *Lead) NeedsEnrichment() bool {
	return !l.HasPhone() || !l.HasWebsite()
}

// Known reports whether v carries an actual value rather than the
// Unknown sentinel or whitespace.
func Known(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != Unknown
}

// OrUnknown normalizes empty/whitespace values to the sentinel.
func OrUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	return v
}

// PhoneDigits strips a phone value down to its digits, the form used for
// duplicate suppression. Returns "" for sentinel or digit-free input.
func PhoneDigits(phone string) string {
	if !Known(phone) {
		return ""
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DedupKey is the secondary duplicate-suppression key: lowercase
// name+address. Empty when the address is unknown, in which case only
// the phone key applies.
func (l *Lead) DedupKey() string {
	if !Known(l.Name) || !Known(l.Address) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(l.Name)) + "|" + strings.ToLower(strings.TrimSpace(l.Address))
}

// SearchQuery identifies one search against the maps surface. Both the
// harvest pass and the enrichment pass must render it identically so the
// result feed keeps the same item ordering.
type SearchQuery struct {
	Category    string
	Location    string
	TargetCount int
}

// Text is the literal query string typed into the search box.
func (q SearchQuery) Text() string {
	return q.Category + " in " + q.Location
}
