// Package discovery sorts catalog events into the shelves shown on the home page.
// Everything here is a pure function of its arguments.
package discovery

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/farellandr/sahmticket/internal/models"
)

const (
	EarthRadiusKm = 6371.0
	NearbyRadius  = 50.0

	// CategoryAll disables category filtering.
	CategoryAll = "All"

	// weekendOffset is how far ahead of today the "this weekend" shelf looks.
	weekendOffset = 2
)

type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether p is a real position. NaN and infinities are rejected.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

type Query struct {
	Now time.Time
	// Location is the viewer's time zone. Calendar days are compared in it.
	Location *time.Location
	Category string
	Search   string
	// User is nil when the viewer has not shared a position.
	User *Point
}

type Shelves struct {
	Today       []models.Event `json:"today"`
	Tomorrow    []models.Event `json:"tomorrow"`
	ThisWeekend []models.Event `json:"this_weekend"`
	Trending    []models.Event `json:"trending"`
	Featured    []models.Event `json:"featured"`
	New         []models.Event `json:"new"`
	Sponsored   []models.Event `json:"sponsored"`
	NearYou     []models.Event `json:"near_you"`
}

// Partition filters events by category and search term and then places each
// remaining event on every shelf it qualifies for. Shelves may overlap.
func Partition(events []models.Event, q Query) Shelves {
	loc := q.Location
	if loc == nil {
		loc = time.Local
	}
	now := q.Now.In(loc)
	today := civilDate(now)
	tomorrow := civilDate(now.AddDate(0, 0, 1))
	weekend := civilDate(now.AddDate(0, 0, weekendOffset))

	candidates := Filter(events, q.Category, q.Search)

	shelves := Shelves{
		Today:       []models.Event{},
		Tomorrow:    []models.Event{},
		ThisWeekend: []models.Event{},
		Trending:    []models.Event{},
		Featured:    []models.Event{},
		New:         []models.Event{},
		Sponsored:   []models.Event{},
		NearYou:     []models.Event{},
	}
	for _, event := range candidates {
		switch civilDate(event.StartsAt.In(loc)) {
		case today:
			shelves.Today = append(shelves.Today, event)
		case tomorrow:
			shelves.Tomorrow = append(shelves.Tomorrow, event)
		case weekend:
			shelves.ThisWeekend = append(shelves.ThisWeekend, event)
		}
		if event.Trending {
			shelves.Trending = append(shelves.Trending, event)
		}
		if event.Featured {
			shelves.Featured = append(shelves.Featured, event)
		}
		if event.IsNew {
			shelves.New = append(shelves.New, event)
		}
		if event.Sponsored {
			shelves.Sponsored = append(shelves.Sponsored, event)
		}
		if q.User != nil && event.HasLocation() {
			if DistanceKm(*q.User, Point{Lat: *event.Lat, Lng: *event.Lng}) <= NearbyRadius {
				shelves.NearYou = append(shelves.NearYou, event)
			}
		}
	}
	return shelves
}

// Filter applies the category and search term and returns the survivors ordered
// by start time, then id, regardless of the input order.
func Filter(events []models.Event, category, search string) []models.Event {
	category = strings.TrimSpace(category)
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]models.Event, 0, len(events))
	for _, event := range events {
		if category != "" && category != CategoryAll && !strings.EqualFold(event.Category, category) {
			continue
		}
		if search != "" && !matches(event, search) {
			continue
		}
		out = append(out, event)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func matches(event models.Event, term string) bool {
	for _, field := range []string{event.Title, event.Venue, event.City} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Badge picks the single label shown on an event card.
func Badge(event models.Event) string {
	switch {
	case event.Featured:
		return "Featured"
	case event.Trending:
		return "Trending"
	case event.IsNew:
		return "New"
	case event.Sponsored:
		return "Sponsored"
	}
	return ""
}

// DistanceKm is the haversine great-circle distance between two points.
func DistanceKm(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

type date struct {
	year  int
	month time.Month
	day   int
}

func civilDate(t time.Time) date {
	y, m, d := t.Date()
	return date{y, m, d}
}
