package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"leadgen-engine/internal/domain"
)

var (
	phoneExpr = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	addrExpr  = regexp.MustCompile(`\d{1,5}\s+[A-Za-z][A-Za-z0-9 .'\-]*\s(?:St|Ave|Blvd|Dr|Rd|Ln|Way|Ct|Pl|Hwy|Pkwy|Street|Avenue|Boulevard|Drive|Road|Lane|Court|Place|Highway|Parkway)\b`)
	labelExpr = regexp.MustCompile(`aria-label="([^"]{3,120})"`)
)

// Platform chrome that shows up where business names are expected.
var nameArtifacts = map[string]struct{}{
	"google":     {},
	"maps":       {},
	"directions": {},
	"website":    {},
	"menu":       {},
	"sponsored":  {},
	"results":    {},
}

// ParseLeads extracts up to criteria.Quantity lead records from a
// rendered Maps search document. Parsing is best-effort: malformed or
// empty input yields an empty slice, never an error. Contact fields
// that cannot be located stay empty.
func ParseLeads(rawHTML string, criteria domain.SearchCriteria) []domain.Lead {
	if strings.TrimSpace(rawHTML) == "" || criteria.Quantity <= 0 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	seen := map[string]struct{}{}
	var out []domain.Lead

	add := func(name string, vicinity string, website, email string) bool {
		name = cleanText(name)
		if !validName(name) {
			return len(out) < criteria.Quantity
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return len(out) < criteria.Quantity
		}
		seen[key] = struct{}{}

		out = append(out, buildLead(name, vicinity, website, email, criteria))
		return len(out) < criteria.Quantity
	}

	// Structural pass: result cards link to /maps/place/.
	doc.Find(`a[href*="/maps/place/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		name, _ := a.Attr("aria-label")
		if cleanText(name) == "" {
			name = a.Text()
		}

		card := a.Parent()
		for i := 0; i < 3 && card.Parent().Length() > 0; i++ {
			card = card.Parent()
		}
		vicinity := cleanText(card.Text())

		website := ""
		email := ""
		card.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			switch {
			case strings.HasPrefix(href, "mailto:") && email == "":
				email = strings.TrimPrefix(href, "mailto:")
			case website == "" && isExternalSite(href):
				website = href
			}
			return website == "" || email == ""
		})

		return add(name, vicinity, website, email)
	})

	// Fallback pass: some renders flatten the card structure, but the
	// aria labels survive. Pair each label with nearby text.
	if len(out) < criteria.Quantity {
		for _, m := range labelExpr.FindAllStringSubmatchIndex(rawHTML, -1) {
			name := rawHTML[m[2]:m[3]]
			lo := m[1]
			hi := lo + 600
			if hi > len(rawHTML) {
				hi = len(rawHTML)
			}
			if !add(name, rawHTML[lo:hi], "", "") {
				break
			}
		}
	}

	return out
}

func buildLead(name, vicinity, website, email string, criteria domain.SearchCriteria) domain.Lead {
	phone := cleanText(phoneExpr.FindString(vicinity))
	address := cleanText(addrExpr.FindString(vicinity))

	location := criteria.Location()
	if address != "" {
		location = address + ", " + location
	}

	return domain.Lead{
		Name:       name,
		Company:    name,
		Industry:   cleanText(criteria.Keywords),
		Location:   location,
		Email:      email,
		Phone:      phone,
		Website:    website,
		Confidence: confidence(phone, website, email, address),
		Source:     domain.SourceGoogleMaps,
	}
}

// confidence is a deterministic heuristic in the 85..100 band for the
// primary source: the more corroborating fields the document yielded,
// the higher the score.
func confidence(phone, website, email, address string) int {
	score := 85
	if phone != "" {
		score += 5
	}
	if website != "" {
		score += 5
	}
	if email != "" {
		score += 3
	}
	if address != "" {
		score += 2
	}
	if score > 100 {
		score = 100
	}
	return score
}

func validName(name string) bool {
	if len(name) <= 2 {
		return false
	}
	if _, artifact := nameArtifacts[strings.ToLower(name)]; artifact {
		return false
	}
	return true
}

func isExternalSite(href string) bool {
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Host)
	return host != "" && !strings.Contains(host, "google.")
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
