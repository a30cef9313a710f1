package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rvi-ar/casos-api/databases/dbtest"
	"github.com/rvi-ar/casos-api/models"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func at(t time.Time) primitive.DateTime {
	return primitive.NewDateTimeFromTime(t)
}

func TestCountByYear_BucketFromDateString(t *testing.T) {
	got := CountByYear([]models.Incident{{Date: "2024-03-15"}})
	assert.Equal(t, []YearCount{{Year: "2024", Count: 1}}, got)
}

func TestCountByYear_AscendingAndSkipsBadDates(t *testing.T) {
	got := CountByYear([]models.Incident{
		{Date: "2024-01-01"},
		{Date: "2019-12-31"},
		{Date: "2024-12-31"},
		{Date: ""},
		{Date: "s/f"},
		{Date: "2021"},
	})
	assert.Equal(t, []YearCount{{"2019", 1}, {"2021", 1}, {"2024", 2}}, got)
}

func TestComputeStats_AccusedCounts(t *testing.T) {
	accused := []models.Accused{
		{ProceduralStatus: models.StatusConvicted},
		{ProceduralStatus: models.StatusConvicted},
		{ProceduralStatus: models.StatusInInvestigation},
	}

	s := ComputeStats(nil, accused, now)

	assert.Equal(t, 1, s.CasesWithoutConviction)
	assert.Equal(t, 1, s.CasesInInvestigation)
}

func TestComputeStats_WithoutConvictionCountsOtherLiterals(t *testing.T) {
	accused := []models.Accused{
		{ProceduralStatus: models.StatusAcquitted},
		{ProceduralStatus: "Procesado"},
		{ProceduralStatus: ""},
		{ProceduralStatus: "condenado"},
	}

	s := ComputeStats(nil, accused, now)

	assert.Equal(t, 3, s.CasesWithoutConviction)
	assert.Equal(t, 0, s.CasesInInvestigation)
}

func TestComputeStats_Victims(t *testing.T) {
	victims := []models.Victim{
		{CreatedAt: at(now.Add(-24 * time.Hour))},
		{CreatedAt: at(now.Add(-364 * 24 * time.Hour))},
		{CreatedAt: at(now.Add(-366 * 24 * time.Hour))},
		{},
	}

	s := ComputeStats(victims, nil, now)

	assert.Equal(t, 4, s.TotalCases)
	assert.Equal(t, 2, s.CasesLastYear)
}

func TestCountByStatus(t *testing.T) {
	got := CountByStatus([]models.Accused{
		{ProceduralStatus: models.StatusConvicted},
		{ProceduralStatus: ""},
		{ProceduralStatus: models.StatusConvicted},
		{ProceduralStatus: "Estado raro"},
	})

	require.Len(t, got, 3)
	assert.Equal(t, StatusCount{Status: models.StatusConvicted, Count: 2, Color: models.StatusColor(models.StatusConvicted)}, got[0])
	assert.Equal(t, "Estado raro", got[1].Status)
	assert.Equal(t, models.DefaultStatusColor, got[1].Color)
	assert.Equal(t, models.StatusOther, got[2].Status)
}

func TestCountByProvince(t *testing.T) {
	got := CountByProvince([]models.Incident{
		{Province: "Córdoba"},
		{Province: "Buenos Aires"},
		{Province: "Buenos Aires"},
		{Province: "Atlántida"},
		{Province: "CABA"},
	})

	require.Len(t, got, 4)
	assert.Equal(t, "Buenos Aires", got[0].Province)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, CountryCenter.Lat, got[1].Lat, "unknown province uses the country center")
	assert.Equal(t, "Atlántida", got[1].Province)
	assert.Equal(t, Coordinates("Ciudad Autónoma de Buenos Aires"), LatLng{Lat: got[2].Lat, Lng: got[2].Lng})
}

func TestCoordinates(t *testing.T) {
	assert.Equal(t, LatLng{-31.4201, -64.1888}, Coordinates(" córdoba "))
	assert.Equal(t, Coordinates("Tierra del Fuego"), Coordinates("Tierra del Fuego, Antártida e Islas del Atlántico Sur"))
	assert.Equal(t, CountryCenter, Coordinates("Montevideo"))
}

func TestLoad(t *testing.T) {
	db := dbtest.New()
	s := NewStore(db)
	ctx := context.Background()
	_, err := s.Victims.InsertOne(ctx, models.Victim{FullName: "Ana", CreatedAt: at(now.Add(-time.Hour))})
	require.NoError(t, err)
	_, err = s.Incidents.InsertOne(ctx, models.Incident{Date: "2024-03-15", Province: "Salta"})
	require.NoError(t, err)
	_, err = s.Accused.InsertOne(ctx, models.Accused{Name: "X", ProceduralStatus: models.StatusInInvestigation})
	require.NoError(t, err)

	d, err := Load(ctx, s, now)
	require.NoError(t, err)

	assert.Equal(t, Stats{TotalCases: 1, CasesLastYear: 1, CasesWithoutConviction: 1, CasesInInvestigation: 1}, d.Stats)
	assert.Equal(t, []YearCount{{"2024", 1}}, d.ByYear)
	assert.Equal(t, "Salta", d.ByProvince[0].Province)
}

func TestLoad_Failure(t *testing.T) {
	db := dbtest.New()
	db.FailOn("acusados", "find", errors.New("down"))

	_, err := Load(context.Background(), NewStore(db), now)

	assert.Error(t, err)
}
