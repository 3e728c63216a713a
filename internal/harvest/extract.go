package harvest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"leadhunt-engine/internal/domain"
)

// Extract turns one rendered card into a lead. Returns nil when the card
// text is empty or whitespace (malformed render); every other miss
// resolves to the sentinel, never an error.
func Extract(c Card, q domain.SearchQuery) *domain.Lead {
	lines := textLines(c.Text)
	if len(lines) == 0 {
		return nil
	}

	lead := &domain.Lead{
		Name:     lines[0],
		Address:  extractAddress(lines[1:]),
		State:    domain.Unknown,
		Phone:    domain.Unknown,
		Website:  domain.Unknown,
		Category: q.Category,
		Rating:   extractRating(c.Text),
	}

	lead.State = stateFromAddress(lead.Address)
	if lead.State == domain.Unknown && strings.Contains(q.Location, ",") {
		segs := strings.Split(q.Location, ",")
		if s := strings.TrimSpace(segs[len(segs)-1]); s != "" {
			lead.State = s
		}
	}

	doc := cardDoc(c)
	lead.Phone = cleanPhoneLabel(extractPhone(doc, c.Text))
	lead.Website = extractWebsite(doc, c.Text)

	return lead
}

// cardDoc parses the card's HTML snapshot for element mining. A card
// without HTML (or with unparseable HTML) still extracts via text rules.
func cardDoc(c Card) *goquery.Document {
	if strings.TrimSpace(c.HTML) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.HTML))
	if err != nil {
		return nil
	}
	return doc
}

// extractAddress scans the lines after the name. A street-style line
// (digit plus street keyword) wins; otherwise the first comma-separated
// line with at least one letter.
func extractAddress(lines []string) string {
	for _, ln := range lines {
		if hasDigit(ln) && containsStreetKeyword(ln) {
			return ln
		}
	}
	for _, ln := range lines {
		if strings.Contains(ln, ",") && hasLetter(ln) {
			return ln
		}
	}
	return domain.Unknown
}

// stateFromAddress pulls a 2-letter state code out of an address like
// "123 Main St, New York, NY 10001".
func stateFromAddress(address string) string {
	if !domain.Known(address) {
		return domain.Unknown
	}
	parts := strings.Split(address, ",")
	if len(parts) < 3 {
		return domain.Unknown
	}
	fields := strings.Fields(strings.TrimSpace(parts[len(parts)-1]))
	if len(fields) == 0 {
		return domain.Unknown
	}
	tok := fields[0]
	if len(tok) == 2 && isAlpha(tok) {
		return strings.ToUpper(tok)
	}
	return domain.Unknown
}

// extractPhone tries, in order: telephone links, labeled phone controls,
// the regex cascade over the full card text, and finally any descendant
// element whose text carries a 3+3+4 digit grouping. First hit wins.
func extractPhone(doc *goquery.Document, text string) string {
	if doc != nil {
		if v := phoneFromTelLinks(doc); v != "" {
			return v
		}
		if v := phoneFromLabeledControls(doc); v != "" {
			return v
		}
	}
	for _, re := range phonePatterns {
		if m := strings.TrimSpace(re.FindString(text)); m != "" {
			return m
		}
	}
	if doc != nil {
		if v := phoneFromDescendants(doc); v != "" {
			return v
		}
	}
	return domain.Unknown
}

func phoneFromTelLinks(doc *goquery.Document) string {
	var found string
	doc.Find(cardTelSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if strings.HasPrefix(href, "tel:") {
			found = strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
			return false
		}
		return true
	})
	return found
}

func phoneFromLabeledControls(doc *goquery.Document) string {
	var found string
	doc.Find(cardPhoneButtons).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label := sel.AttrOr("aria-label", "")
		lower := strings.ToLower(label)
		if strings.Contains(lower, "phone") || strings.Contains(lower, "call") {
			if m := strings.TrimSpace(labeledPhoneRe.FindString(label)); m != "" {
				found = m
				return false
			}
		}
		if txt := strings.TrimSpace(sel.Text()); txt != "" && hasDigit(txt) {
			if m := strings.TrimSpace(labeledPhoneRe.FindString(txt)); m != "" {
				found = m
				return false
			}
		}
		return true
	})
	return found
}

func phoneFromDescendants(doc *goquery.Document) string {
	var found string
	doc.Find(cardAnyText).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		txt := sel.Text()
		if !loosePhoneHintRe.MatchString(txt) {
			return true
		}
		if m := strings.TrimSpace(labeledPhoneRe.FindString(txt)); m != "" {
			found = m
			return false
		}
		return true
	})
	return found
}

// cleanPhoneLabel strips link-scheme and label prefixes a mined value may
// still carry, and normalizes empties to the sentinel.
func cleanPhoneLabel(v string) string {
	v = strings.TrimSpace(v)
	for _, prefix := range []string{"tel:", "Phone:", "Call:"} {
		if strings.HasPrefix(v, prefix) {
			v = strings.TrimSpace(strings.TrimPrefix(v, prefix))
		}
	}
	return domain.OrUnknown(v)
}

// extractWebsite tries absolute anchors first, then website-labeled
// controls, then a bare URL in the card text. URLs on the platform's own
// domains never count.
func extractWebsite(doc *goquery.Document, text string) string {
	if doc != nil {
		var found string
		doc.Find(cardWebsiteLinks).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href := strings.TrimSpace(sel.AttrOr("href", ""))
			if isExternalURL(href) {
				found = href
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
		doc.Find(cardWebsiteLabels).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			label := sel.AttrOr("aria-label", "")
			if m := bareURLRe.FindString(label); isExternalURL(m) {
				found = m
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	for _, m := range bareURLRe.FindAllString(text, -1) {
		if isExternalURL(m) {
			return m
		}
	}
	return domain.Unknown
}

// extractRating finds a one-decimal rating: "4.5 ★" or "Rated 4.5 out of".
func extractRating(text string) string {
	if m := ratingStarRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := ratingRatedRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return domain.Unknown
}

// mineDetailPhone runs the detail-view probe table over an open detail
// page. First probe yielding a value with a digit wins.
func mineDetailPhone(doc *goquery.Document) string {
	if doc == nil {
		return domain.Unknown
	}
	for _, p := range detailPhoneProbes {
		v := probeValue(doc, p)
		if v == "" || !hasDigit(v) {
			continue
		}
		return cleanPhoneLabel(v)
	}
	return domain.Unknown
}

// mineDetailWebsite runs the detail-view probe table for a website URL,
// rejecting platform-owned URLs and recovering URLs embedded in labels.
func mineDetailWebsite(doc *goquery.Document) string {
	if doc == nil {
		return domain.Unknown
	}
	for _, p := range detailWebsiteProbes {
		v := probeValue(doc, p)
		if v == "" {
			continue
		}
		if isExternalURL(v) {
			return v
		}
		if m := bareURLRe.FindString(v); isExternalURL(m) {
			return m
		}
	}
	return domain.Unknown
}

func probeValue(doc *goquery.Document, p probe) string {
	sel := doc.Find(p.Selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if p.Attr == "" {
		return strings.TrimSpace(sel.Text())
	}
	return strings.TrimSpace(sel.AttrOr(p.Attr, ""))
}

func isExternalURL(u string) bool {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	lower := strings.ToLower(u)
	for _, host := range platformHosts {
		if strings.Contains(lower, host) {
			return false
		}
	}
	return true
}

func containsStreetKeyword(s string) bool {
	for _, kw := range streetKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return len(s) > 0
}
