package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

var (
	capeTown     = Point{Lat: -33.9249, Lng: 18.4241}
	johannesburg = Point{Lat: -26.2041, Lng: 28.0473}
)

func ptr(f float64) *float64 { return &f }

func TestDistance(t *testing.T) {
	assert.Zero(t, Distance(capeTown, capeTown))
	assert.InDelta(t, Distance(capeTown, johannesburg), Distance(johannesburg, capeTown), 1e-9)
	assert.InDelta(t, 1270, Distance(capeTown, johannesburg), 20)
}

func TestRankOrdersKnownDistancesFirst(t *testing.T) {
	origin := Point{Lat: 0, Lng: 0}
	// One degree of longitude at the equator is ~111 km.
	stores := []model.Store{
		{ID: "a", Name: "A", Latitude: ptr(0), Longitude: ptr(5)},
		{ID: "b", Name: "B"},
		{ID: "c", Name: "C", Latitude: ptr(0), Longitude: ptr(2)},
	}
	ranked := Rank(&origin, stores)
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"c", "a", "b"}, ids(ranked))
	assert.Nil(t, ranked[2].DistanceKM)
	assert.Equal(t, "a", stores[0].ID, "input must not be reordered")
}

func TestRankWithoutOriginSortsByName(t *testing.T) {
	stores := []model.Store{
		{ID: "1", Name: "zeta", Latitude: ptr(1), Longitude: ptr(1)},
		{ID: "2", Name: "Alpha"},
		{ID: "3", Name: "beta"},
	}
	ranked := Rank(nil, stores)
	assert.Equal(t, []string{"2", "3", "1"}, ids(ranked))
	for _, r := range ranked {
		assert.Nil(t, r.DistanceKM)
	}
}

func TestRankTieBrokenByName(t *testing.T) {
	origin := Point{}
	stores := []model.Store{
		{ID: "x", Name: "mall", Latitude: ptr(1), Longitude: ptr(1)},
		{ID: "y", Name: "Arcade", Latitude: ptr(1), Longitude: ptr(1)},
	}
	assert.Equal(t, []string{"y", "x"}, ids(Rank(&origin, stores)))
}

func TestFilterAndCities(t *testing.T) {
	stores := []model.Store{
		{Name: "Canal Walk", City: "Cape Town", Address: "Century City"},
		{Name: "Sandton City", City: "Johannesburg", Address: "Rivonia Rd"},
		{Name: "V&A Waterfront", City: "Cape Town", Address: "Dock Rd"},
	}
	assert.Len(t, Filter(stores, "city", ""), 2)
	assert.Len(t, Filter(stores, "", "cape town"), 2)
	assert.Len(t, Filter(stores, "dock", "Cape Town"), 1)
	assert.Equal(t, []string{"Cape Town", "Johannesburg"}, Cities(stores))
}

func ids(rs []Ranked) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
