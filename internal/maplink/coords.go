package maplink

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Coordinates is a parsed latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

const num = `(-?\d{1,3}(?:\.\d+)?)`

// sep accepts a literal or percent-encoded comma, optionally followed by
// encoded or literal spaces.
const sep = `(?:,|%2C|%2c)(?:\s|\+|%20)*`

// coordinatePatterns are tried in order; the first valid match wins.
var coordinatePatterns = []*regexp.Regexp{
	// /@-6.2,106.8,17z
	regexp.MustCompile(`@` + num + `,` + num),
	// ?q=-6.2,106.8
	regexp.MustCompile(`[?&]q=` + num + sep + num),
	// data=!3d-6.2!4d106.8
	regexp.MustCompile(`!3d` + num + `!4d` + num),
	// /place/Name/@-6.2,106.8
	regexp.MustCompile(`/place/[^/]+/@` + num + `,` + num),
	// /maps/search/?api=1&query=-6.2,106.8 and legacy ll=
	regexp.MustCompile(`[?&](?:query|ll)=` + num + sep + num),
}

var placeNamePattern = regexp.MustCompile(`/place/([^/?#]+)`)

// ParseCoordinates extracts coordinates from a full map URL. It reports false
// when no pattern yields an in-range pair.
func ParseCoordinates(rawURL string) (Coordinates, bool) {
	for _, re := range coordinatePatterns {
		m := re.FindStringSubmatch(rawURL)
		if m == nil {
			continue
		}
		lat, errLat := strconv.ParseFloat(m[1], 64)
		lng, errLng := strconv.ParseFloat(m[2], 64)
		if errLat != nil || errLng != nil {
			continue
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			continue
		}
		return Coordinates{Lat: lat, Lng: lng}, true
	}
	return Coordinates{}, false
}

// ExtractPlaceName returns the human-readable name from a /place/<name>/ path
// segment, or "" when the URL has none.
func ExtractPlaceName(rawURL string) string {
	m := placeNamePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	name, err := url.QueryUnescape(m[1])
	if err != nil {
		name = strings.ReplaceAll(m[1], "+", " ")
	}
	name = norm.NFC.String(strings.TrimSpace(name))
	if strings.HasPrefix(name, "@") {
		return ""
	}
	return name
}
