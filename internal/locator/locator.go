// Package locator ranks stores by great-circle distance from the user.
package locator

import (
	"math"
	"sort"
	"strings"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// EarthRadiusKM is the mean Earth radius used by Distance.
const EarthRadiusKM = 6371.0

// Point is a geodetic coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Ranked pairs a store with its distance from the origin.  DistanceKM is nil
// when either the origin or the store has no coordinates.
type Ranked struct {
	model.Store
	DistanceKM *float64 `json:"distance_km"`
}

// Distance returns the haversine distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	lat1, lat2 := rad(a.Lat), rad(b.Lat)
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Rank computes distances from origin and sorts the stores nearest first.
// Stores without a distance go last; ties are broken by name, ignoring case.
// origin may be nil when location is unavailable or denied.  The input slice
// is not modified.
func Rank(origin *Point, stores []model.Store) []Ranked {
	out := make([]Ranked, 0, len(stores))
	for _, s := range stores {
		r := Ranked{Store: s}
		if origin != nil && s.Latitude != nil && s.Longitude != nil {
			d := Distance(*origin, Point{Lat: *s.Latitude, Lng: *s.Longitude})
			r.DistanceKM = &d
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b Ranked) bool {
	switch {
	case a.DistanceKM != nil && b.DistanceKM != nil:
		if *a.DistanceKM != *b.DistanceKM {
			return *a.DistanceKM < *b.DistanceKM
		}
	case a.DistanceKM != nil:
		return true
	case b.DistanceKM != nil:
		return false
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

// Filter keeps stores whose name, city or address contains query (case
// insensitive) and, when city is set, whose city matches it exactly.
func Filter(stores []model.Store, query, city string) []model.Store {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Store, 0, len(stores))
	for _, s := range stores {
		if city != "" && !strings.EqualFold(s.City, city) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(s.Name), q) &&
			!strings.Contains(strings.ToLower(s.City), q) &&
			!strings.Contains(strings.ToLower(s.Address), q) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Cities returns the distinct store cities in sorted order.
func Cities(stores []model.Store) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range stores {
		if s.City != "" && !seen[s.City] {
			seen[s.City] = true
			out = append(out, s.City)
		}
	}
	sort.Strings(out)
	return out
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
