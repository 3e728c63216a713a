package harvest

import "regexp"

// The tables below are ordered: earlier entries win. Markup drift on the
// maps surface is handled by editing these tables, not control flow.

// streetKeywords mark a text line as a street address when it also
// contains a digit.
var streetKeywords = []string{
	"St", "Street", "Ave", "Avenue", "Blvd", "Road", "Rd", "Dr", "Lane", "Ln",
}

// phonePatterns are tried in order against the full card text.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+?1?[\s\-.]?\(?\d{3}\)?[\s\-.]?\d{3}[\s\-.]?\d{4}`), // US with optional country code
	regexp.MustCompile(`\+\d{1,3}[\s\-.]?\d{1,4}[\s\-.]?\d{1,4}[\s\-.]?\d{1,9}`), // international
	regexp.MustCompile(`\(?\d{3}\)?[\s\-.]?\d{3}[\s\-.]?\d{4}`), // simple US
	regexp.MustCompile(`\d{3}[\s\-.]\d{3}[\s\-.]\d{4}`),         // dash/dot separated triplet
}

// labeledPhoneRe matches a phone number inside a control's accessible
// label or visible text: at least 8 digits with optional separators.
var labeledPhoneRe = regexp.MustCompile(`[+(]?\d[\d\-.\s()]{7,}\d`)

// loosePhoneHintRe flags descendant element text worth mining with
// labeledPhoneRe: a 3+3+4 digit grouping somewhere in the string.
var loosePhoneHintRe = regexp.MustCompile(`\d{3}.*\d{3}.*\d{4}`)

// bareURLRe finds absolute URLs inside free text or labels.
var bareURLRe = regexp.MustCompile(`https?://[^\s"<>]+`)

// Rating appears either as "4.5 ★" or as "Rated 4.5 out of".
var (
	ratingStarRe  = regexp.MustCompile(`(\d\.\d)\s*★`)
	ratingRatedRe = regexp.MustCompile(`Rated\s+(\d\.\d)\s+out of`)
)

// platformHosts are URL fragments owned by the search platform itself;
// anchors pointing at them are never a business website.
var platformHosts = []string{
	"google.com/maps",
	"maps.google.com",
	"g.page",
}

// Card-level mining selectors, applied to a card's HTML snapshot.
var (
	cardTelSelector   = `a[href^='tel:']`
	cardPhoneButtons  = `button[data-item-id*='phone'], button[aria-label*='Phone'], button[aria-label*='Call']`
	cardAnyText       = `a, span, div, button`
	cardWebsiteLinks  = `a[href^='http'], a[data-item-id='authority'], a[aria-label*='Website'], a[aria-label*='website']`
	cardWebsiteLabels = `button[aria-label*='Website'], button[aria-label*='website'], button[data-item-id*='authority']`
)

// probe is one selector/attribute lookup against a detail view. Attr ""
// reads the element text instead of an attribute.
type probe struct {
	Selector string
	Attr     string
}

// detailPhoneProbes mine the item detail layout for a phone number.
var detailPhoneProbes = []probe{
	{`button[aria-label*='Phone:']`, "aria-label"},
	{`button[aria-label*='Call:']`, "aria-label"},
	{`button[data-item-id*='phone:tel'] div.fontBodyMedium`, ""},
	{`button[data-item-id*='phone:tel']`, ""},
	{`a[href^='tel:']`, "href"},
	{`button[data-value*='Phone']`, ""},
	{`div[data-value*='Phone']`, ""},
	{`span[class*='phone']`, ""},
	{`div[class*='phone']`, ""},
	{`button[data-item-id*='phone']`, ""},
	{`button[jsaction*='phone']`, ""},
	{`div[jsaction*='phone']`, ""},
}

// detailWebsiteProbes mine the item detail layout for a website URL.
var detailWebsiteProbes = []probe{
	{`a[aria-label*='Website']`, "href"},
	{`a[data-item-id*='authority']`, "href"},
	{`a[data-item-id='authority']`, "href"},
	{`button[aria-label*='Website']`, "aria-label"},
	{`button[data-item-id*='authority']`, ""},
	{`a[href^='http']`, "href"},
}

// Challenge detection: structural probes over the page source plus a
// substring scan as a catch-all.
var challengeSelectors = []string{
	`iframe[src*='recaptcha']`,
	`div[class*='g-recaptcha']`,
	`[id*='recaptcha']`,
	`[class*='captcha']`,
}

var challengeTextHints = []string{
	"verify you",
	"verify that",
	"unusual traffic",
}

var challengeSourceHints = []string{
	"recaptcha",
	"captcha",
}

// noResultsPhrases distinguish an empty result set from a render failure.
var noResultsPhrases = []string{
	"no results",
	"didn't match",
}
