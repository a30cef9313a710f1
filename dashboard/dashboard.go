// Package dashboard computes the summary statistics of the dashboard from the
// raw collections. Nothing is materialized: every call recomputes.
package dashboard

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/models"
)

const lastYearWindow = 365 * 24 * time.Hour

// Stats are the headline counters
type Stats struct {
	TotalCases             int `json:"totalCases"`
	CasesLastYear          int `json:"casesLastYear"`
	CasesWithoutConviction int `json:"casesWithoutConviction"`
	CasesInInvestigation   int `json:"casesInInvestigation"`
}

// YearCount is one bar of the year histogram
type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

// StatusCount is one slice of the procedural status pie
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Color  string `json:"color"`
}

// ProvinceCount is one marker of the province map
type ProvinceCount struct {
	Province string  `json:"province"`
	Count    int     `json:"count"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Dashboard is everything the dashboard screen renders
type Dashboard struct {
	Stats      Stats           `json:"stats"`
	ByYear     []YearCount     `json:"casesByYear"`
	ByStatus   []StatusCount   `json:"casesByStatus"`
	ByProvince []ProvinceCount `json:"casesByProvince"`
}

// Store groups the collections the dashboard reads
type Store struct {
	Victims   databases.VictimDatabase
	Incidents databases.IncidentDatabase
	Accused   databases.AccusedDatabase
}

// NewStore builds the dashboard collections on db
func NewStore(db databases.DatabaseHelper) Store {
	return Store{
		Victims:   databases.NewVictimDatabase(db),
		Incidents: databases.NewIncidentDatabase(db),
		Accused:   databases.NewAccusedDatabase(db),
	}
}

// Load reads the raw rows and computes the dashboard
func Load(ctx context.Context, s Store, now time.Time) (*Dashboard, error) {
	victims, err := s.Victims.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	incidents, err := s.Incidents.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	accused, err := s.Accused.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	d := Compute(victims, incidents, accused, now)
	return &d, nil
}

// Compute aggregates the raw rows
func Compute(victims []models.Victim, incidents []models.Incident, accused []models.Accused, now time.Time) Dashboard {
	return Dashboard{
		Stats:      ComputeStats(victims, accused, now),
		ByYear:     CountByYear(incidents),
		ByStatus:   CountByStatus(accused),
		ByProvince: CountByProvince(incidents),
	}
}

// ComputeStats counts victims as cases. "Without conviction" counts accused
// with a status other than exactly "Condenado"; accused with no status are
// not counted.
func ComputeStats(victims []models.Victim, accused []models.Accused, now time.Time) Stats {
	s := Stats{TotalCases: len(victims)}
	cutoff := now.Add(-lastYearWindow)
	for _, v := range victims {
		if v.CreatedAt == 0 {
			continue
		}
		created := v.CreatedAt.Time()
		if !created.Before(cutoff) && !created.After(now) {
			s.CasesLastYear++
		}
	}
	for _, a := range accused {
		status := strings.TrimSpace(a.ProceduralStatus)
		if status == "" {
			continue
		}
		if status != models.StatusConvicted {
			s.CasesWithoutConviction++
		}
		if status == models.StatusInInvestigation {
			s.CasesInInvestigation++
		}
	}
	return s
}

// CountByYear groups incidents by the year written in their date, ascending.
// The year is read from the stored date string, no time zone conversion.
func CountByYear(incidents []models.Incident) []YearCount {
	counts := make(map[string]int)
	for _, i := range incidents {
		if year, ok := yearOf(i.Date); ok {
			counts[year]++
		}
	}
	out := make([]YearCount, 0, len(counts))
	for year, n := range counts {
		out = append(out, YearCount{Year: year, Count: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Year < out[b].Year })
	return out
}

func yearOf(date string) (string, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return "", false
	}
	year := date[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return year, true
}

// CountByStatus groups accused by procedural status. A missing status goes
// to "Otros". Slices are ordered by count, then by status.
func CountByStatus(accused []models.Accused) []StatusCount {
	counts := make(map[string]int)
	for _, a := range accused {
		status := strings.TrimSpace(a.ProceduralStatus)
		if status == "" {
			status = models.StatusOther
		}
		counts[status]++
	}
	out := make([]StatusCount, 0, len(counts))
	for status, n := range counts {
		out = append(out, StatusCount{Status: status, Count: n, Color: models.StatusColor(status)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Status < out[b].Status
	})
	return out
}

// CountByProvince groups incidents by province with approximate map
// coordinates, most cases first
func CountByProvince(incidents []models.Incident) []ProvinceCount {
	counts := make(map[string]int)
	for _, i := range incidents {
		province := strings.TrimSpace(i.Province)
		if province == "" {
			province = models.FallbackUnspecified
		}
		counts[province]++
	}
	out := make([]ProvinceCount, 0, len(counts))
	for province, n := range counts {
		c := Coordinates(province)
		out = append(out, ProvinceCount{Province: province, Count: n, Lat: c.Lat, Lng: c.Lng})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Province < out[b].Province
	})
	return out
}
