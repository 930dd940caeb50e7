package dedupe

import (
	"testing"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_IdenticalNames(t *testing.T) {
	a := Candidate{Name: "Trattoria Uno"}
	b := Candidate{Name: "trattoria  uno"}
	assert.InDelta(t, 1.0, Score(a, b), 0.001, "case and spacing do not matter")
}

func TestScore_UnrelatedNames(t *testing.T) {
	a := Candidate{Name: "Trattoria Uno"}
	b := Candidate{Name: "Blue Bottle Coffee"}
	assert.Less(t, Score(a, b), 0.3)
}

func TestScore_ProximityBoostsSimilarNames(t *testing.T) {
	// Same block in Naples, ~50m apart.
	near := Score(
		Candidate{Name: "Pizzeria da Michele", Latitude: 40.8498, Longitude: 14.2633},
		Candidate{Name: "Pizzeria de Michele", Latitude: 40.8502, Longitude: 14.2635},
	)
	// Same names, other side of town.
	far := Score(
		Candidate{Name: "Pizzeria da Michele", Latitude: 40.8498, Longitude: 14.2633},
		Candidate{Name: "Pizzeria de Michele", Latitude: 40.88, Longitude: 14.30},
	)
	assert.Greater(t, near, far)
	assert.Greater(t, near, DefaultThreshold)
}

func TestScore_MissingCoordinatesFallBackToName(t *testing.T) {
	withCoords := Candidate{Name: "Caffe Roma", Latitude: 41.9, Longitude: 12.5}
	without := Candidate{Name: "Caffe Roma"}
	assert.InDelta(t, 1.0, Score(withCoords, without), 0.001)
}

func TestFindMatches_SortedAndThresholded(t *testing.T) {
	existing := []*models.Entity{
		{EntityID: "e1", Name: "Trattoria Uno", Data: map[string]any{"lat": 40.8498, "lon": 14.2633}},
		{EntityID: "e2", Name: "Trattoria Unos", Data: map[string]any{"lat": 40.8499, "lon": 14.2634}},
		{EntityID: "e3", Name: "Sushi Zen", Data: map[string]any{}},
	}
	probe := Candidate{Name: "Trattoria Uno", Latitude: 40.8498, Longitude: 14.2633}

	matches := FindMatches(probe, existing, DefaultThreshold)
	require.Len(t, matches, 2)
	assert.Equal(t, "e1", matches[0].Entity.EntityID, "exact match ranks first")
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Naples to Rome is roughly 189km as the crow flies.
	d := haversineMeters(40.8518, 14.2681, 41.9028, 12.4964)
	assert.InDelta(t, 189000, d, 5000)
}
