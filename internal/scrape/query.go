package scrape

import (
	"net/url"

	"leadgen-engine/internal/domain"
)

const mapsSearchBase = "https://www.google.com/maps/search/"

// TargetURL builds the fully-formed search URL handed to the rendering
// proxy: the Maps search page for "keywords in city, country".
func TargetURL(c domain.SearchCriteria) string {
	return mapsSearchBase + url.PathEscape(c.Query())
}
