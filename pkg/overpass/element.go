package overpass

import (
	"strconv"
	"strings"
)

// Place is one venue mapped from an Overpass element.
type Place struct {
	ID         string   `json:"id"`
	OSMID      int64    `json:"osm_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Cuisine    string   `json:"cuisine,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	PriceRange int      `json:"price_range"`
	Rating     *float64 `json:"rating,omitempty"`
}

const unknownAddress = "Address unknown"

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *center           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func mapElements(elements []element) []Place {
	places := make([]Place, 0, len(elements))
	for _, el := range elements {
		if p, ok := el.place(); ok {
			places = append(places, p)
		}
	}
	return places
}

// place maps an element, dropping those without a name.
func (el element) place() (Place, bool) {
	name := strings.TrimSpace(el.Tags["name"])
	if name == "" {
		return Place{}, false
	}

	p := Place{
		ID:         "osm-" + strconv.FormatInt(el.ID, 10),
		OSMID:      el.ID,
		Name:       name,
		Address:    address(el.Tags),
		Cuisine:    primaryCuisine(el.Tags["cuisine"]),
		PriceRange: priceTier(el.Tags),
		Rating:     rating(el.Tags),
	}
	p.Lat, p.Lng = el.coords()
	return p, true
}

// coords prefers the node's own position and falls back to a way's center.
func (el element) coords() (*float64, *float64) {
	lat, lng := el.Lat, el.Lon
	if el.Center != nil {
		if lat == nil || *lat == 0 {
			lat = &el.Center.Lat
		}
		if lng == nil || *lng == 0 {
			lng = &el.Center.Lon
		}
	}
	if lat == nil || lng == nil {
		return nil, nil
	}
	return lat, lng
}

func address(tags map[string]string) string {
	street := tags["addr:street"]
	if street == "" {
		return unknownAddress
	}
	return strings.TrimSpace(street + " " + tags["addr:housenumber"])
}

// primaryCuisine keeps the first entry of a ";"-separated cuisine list.
func primaryCuisine(v string) string {
	first, _, _ := strings.Cut(v, ";")
	return strings.TrimSpace(first)
}

// priceTier maps OSM payment and price hints onto the 1-3 tier scale.
func priceTier(tags map[string]string) int {
	if tags["payment:coins"] == "yes" || tags["cuisine"] == "fast_food" {
		return 1
	}
	price := tags["price"]
	if price == "" {
		price = tags["fee"]
	}
	if price == "high" || tags["expensive"] == "yes" {
		return 3
	}
	return 2
}

// rating reads the first non-empty of stars, rating or user_rating. Values
// that do not start with a positive number are ignored.
func rating(tags map[string]string) *float64 {
	for _, key := range []string{"stars", "rating", "user_rating"} {
		v := tags[key]
		if v == "" {
			continue
		}
		f, ok := leadingFloat(v)
		if !ok || f <= 0 {
			return nil
		}
		return &f
	}
	return nil
}

// leadingFloat parses the longest numeric prefix of s, so "4.5 stars" reads as 4.5.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			end = i + 1
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
