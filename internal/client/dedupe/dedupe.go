// Package dedupe scores how likely two venue records describe the same
// physical place, combining name similarity with geographic proximity.
// Everything here is pure; callers decide what to do with a high score.
package dedupe

import (
	"math"
	"sort"
	"strings"

	"github.com/dmitrijs2005/placekeeper/internal/client/models"
)

// Candidate is the comparable core of a venue. Zero coordinates mean the
// location is unknown and the score falls back to the name alone.
type Candidate struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// FromEntity extracts a candidate from an entity, reading coordinates from
// the free-form data document when present.
func FromEntity(e *models.Entity) Candidate {
	c := Candidate{Name: e.Name}
	if v, ok := e.Data["lat"].(float64); ok {
		c.Latitude = v
	}
	if v, ok := e.Data["lon"].(float64); ok {
		c.Longitude = v
	}
	return c
}

// withinMeters is the radius inside which two venues with similar names are
// suspicious. Beyond it proximity contributes nothing.
const withinMeters = 500.0

const (
	nameWeight      = 0.7
	proximityWeight = 0.3
)

// Score returns a similarity in [0, 1]. Names dominate; proximity sharpens
// the verdict when both sides carry coordinates.
func Score(a, b Candidate) float64 {
	name := trigramSimilarity(a.Name, b.Name)

	if !a.located() || !b.located() {
		return name
	}

	dist := haversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	proximity := 1 - math.Min(dist/withinMeters, 1)

	return nameWeight*name + proximityWeight*proximity
}

// Match pairs an existing entity with its similarity to a probe.
type Match struct {
	Entity *models.Entity
	Score  float64
}

// DefaultThreshold is where a match becomes worth warning about.
const DefaultThreshold = 0.75

// FindMatches scores probe against every existing entity and returns matches
// at or above threshold, best first.
func FindMatches(probe Candidate, existing []*models.Entity, threshold float64) []Match {
	var matches []Match
	for _, e := range existing {
		s := Score(probe, FromEntity(e))
		if s >= threshold {
			matches = append(matches, Match{Entity: e, Score: s})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

func (c Candidate) located() bool {
	return c.Latitude != 0 || c.Longitude != 0
}

// trigramSimilarity is the Dice coefficient over character trigrams of the
// lowercased, whitespace-normalized names.
func trigramSimilarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		if normalize(a) == normalize(b) && normalize(a) != "" {
			return 1
		}
		return 0
	}

	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func trigrams(s string) map[string]struct{} {
	// Padding lets short and boundary runes participate in trigrams too.
	r := []rune("  " + normalize(s) + " ")
	set := map[string]struct{}{}
	for i := 0; i+3 <= len(r); i++ {
		set[string(r[i:i+3])] = struct{}{}
	}
	return set
}

const earthRadiusMeters = 6371000.0

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
