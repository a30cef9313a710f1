// Package listing builds the flat case rows shown by the grid views, filters
// them and pages through them.
package listing

import (
	"context"
	"errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/models"
)

// Row is one case as shown in a listing
type Row struct {
	CaseID         string `json:"id,omitempty"`
	VictimID       string `json:"victima_id,omitempty"`
	IncidentID     string `json:"hecho_id,omitempty"`
	VictimName     string `json:"victima"`
	Date           string `json:"fecha_hecho"`
	Province       string `json:"provincia"`
	Location       string `json:"ubicacion"`
	Status         string `json:"estado"`
	StatusColor    string `json:"color_estado"`
	AssignedMember string `json:"miembro_asignado"`
	FamilyContact  string `json:"contacto_familia"`
	Summary        string `json:"resumen_hecho,omitempty"`
	CrimeType      string `json:"tipo_delito,omitempty"`
	AccusedCount   int    `json:"acusados"`

	// stored values before the display fallbacks, nil for hand built rows
	raw *rawText
}

type rawText struct {
	victimName string
	province   string
	location   string
}

// searchable returns the victim name, province and location the text
// filters look at. Fallback strings such as "No especificado" never match.
func (r Row) searchable() (victimName, province, location string) {
	if r.raw != nil {
		return r.raw.victimName, r.raw.province, r.raw.location
	}
	return r.VictimName, r.Province, r.Location
}

// Store groups the collections the listings read
type Store struct {
	Victims   databases.VictimDatabase
	Incidents databases.IncidentDatabase
	Cases     databases.CaseDatabase
	FollowUps databases.FollowUpDatabase
	Accused   databases.AccusedDatabase
}

// NewStore builds the listing collections on db
func NewStore(db databases.DatabaseHelper) Store {
	return Store{
		Victims:   databases.NewVictimDatabase(db),
		Incidents: databases.NewIncidentDatabase(db),
		Cases:     databases.NewCaseDatabase(db),
		FollowUps: databases.NewFollowUpDatabase(db),
		Accused:   databases.NewAccusedDatabase(db),
	}
}

// CaseRows scans the case rows and joins each to its victim and incident.
// The follow-up of each row is looked up separately and a failed lookup only
// leaves the follow-up columns on their fallbacks.
func CaseRows(ctx context.Context, s Store) ([]Row, error) {
	cases, err := s.Cases.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	victimIDs := make([]primitive.ObjectID, 0, len(cases))
	incidentIDs := make([]primitive.ObjectID, 0, len(cases))
	for _, cs := range cases {
		victimIDs = append(victimIDs, cs.VictimID)
		incidentIDs = append(incidentIDs, cs.IncidentID)
	}
	victims, err := s.Victims.Find(ctx, bson.M{"_id": bson.M{"$in": victimIDs}})
	if err != nil {
		return nil, err
	}
	incidents, err := s.Incidents.Find(ctx, bson.M{"_id": bson.M{"$in": incidentIDs}})
	if err != nil {
		return nil, err
	}
	victimByID := indexVictims(victims)
	incidentByID := indexIncidents(incidents)

	followUps := make(map[primitive.ObjectID]*models.FollowUp)
	rows := make([]Row, 0, len(cases))
	for _, cs := range cases {
		f, looked := followUps[cs.IncidentID]
		if !looked {
			f = lookupFollowUp(ctx, s, cs.IncidentID)
			followUps[cs.IncidentID] = f
		}
		row := buildRow(victimByID[cs.VictimID], incidentByID[cs.IncidentID], f, cs.Status)
		row.CaseID = cs.ID.Hex()
		row.VictimID = cs.VictimID.Hex()
		row.IncidentID = cs.IncidentID.Hex()
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows, nil
}

func lookupFollowUp(ctx context.Context, s Store, incidentID primitive.ObjectID) *models.FollowUp {
	f, err := s.FollowUps.FindOne(ctx, bson.M{"hecho_id": incidentID})
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			zap.S().Warnw("follow-up lookup failed", "incidentId", incidentID.Hex(), "error", err)
		}
		return nil
	}
	return f
}

// VictimRows scans victims, incidents, follow-ups, accused and cases
// independently and joins them in memory. Every victim yields a row even
// when it has no case.
func VictimRows(ctx context.Context, s Store) ([]Row, error) {
	victims, err := s.Victims.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	incidents, err := s.Incidents.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	followUps, err := s.FollowUps.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	accused, err := s.Accused.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	cases, err := s.Cases.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	incidentByID := indexIncidents(incidents)
	followUpByIncident := make(map[primitive.ObjectID]*models.FollowUp, len(followUps))
	for i := range followUps {
		followUpByIncident[followUps[i].IncidentID] = &followUps[i]
	}
	accusedByIncident := make(map[primitive.ObjectID]int)
	for _, a := range accused {
		accusedByIncident[a.IncidentID]++
	}
	caseByVictim := make(map[primitive.ObjectID]*models.Case, len(cases))
	for i := range cases {
		if _, ok := caseByVictim[cases[i].VictimID]; !ok {
			caseByVictim[cases[i].VictimID] = &cases[i]
		}
	}
	// incidents linked only through their primary victim reference
	incidentByPrimary := make(map[primitive.ObjectID]*models.Incident)
	for i := range incidents {
		if ref := incidents[i].PrimaryVictimID; ref != nil {
			incidentByPrimary[*ref] = &incidents[i]
		}
	}

	rows := make([]Row, 0, len(victims))
	for i := range victims {
		v := &victims[i]
		var (
			incident *models.Incident
			status   string
			caseID   string
		)
		if cs, ok := caseByVictim[v.ID]; ok {
			incident = incidentByID[cs.IncidentID]
			status = cs.Status
			caseID = cs.ID.Hex()
		} else {
			incident = incidentByPrimary[v.ID]
		}
		var followUp *models.FollowUp
		if incident != nil {
			followUp = followUpByIncident[incident.ID]
		}

		row := buildRow(v, incident, followUp, status)
		row.CaseID = caseID
		row.VictimID = v.ID.Hex()
		if incident != nil {
			row.IncidentID = incident.ID.Hex()
			row.AccusedCount = accusedByIncident[incident.ID]
		}
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows, nil
}

func buildRow(v *models.Victim, i *models.Incident, f *models.FollowUp, status string) Row {
	row := Row{
		VictimName:     models.FallbackNoName,
		Province:       models.FallbackUnspecified,
		Location:       models.FallbackUnspecified,
		AssignedMember: models.FallbackUnspecified,
		FamilyContact:  models.FallbackFamily,
		Status:         status,
		raw:            &rawText{},
	}
	if v != nil {
		row.VictimName = v.DisplayName()
		if row.VictimName != models.FallbackNoName {
			row.raw.victimName = row.VictimName
		}
	}
	if i != nil {
		row.Date = i.Date
		if i.Province != "" {
			row.Province = i.Province
			row.raw.province = i.Province
		}
		row.Location = i.DisplayLocation()
		if row.Location != models.FallbackUnspecified {
			row.raw.location = row.Location
		}
		row.Summary = i.Summary
		row.CrimeType = i.CrimeType
		if row.Status == "" {
			row.Status = i.Status
		}
	}
	if f != nil {
		if f.AssignedMember != "" {
			row.AssignedMember = f.AssignedMember
		}
		row.FamilyContact = f.FamilyContact.Display()
	}
	if row.Status == "" {
		row.Status = models.FallbackUnspecified
	}
	row.StatusColor = models.StatusColor(row.Status)
	return row
}

func indexVictims(victims []models.Victim) map[primitive.ObjectID]*models.Victim {
	out := make(map[primitive.ObjectID]*models.Victim, len(victims))
	for i := range victims {
		out[victims[i].ID] = &victims[i]
	}
	return out
}

func indexIncidents(incidents []models.Incident) map[primitive.ObjectID]*models.Incident {
	out := make(map[primitive.ObjectID]*models.Incident, len(incidents))
	for i := range incidents {
		out[incidents[i].ID] = &incidents[i]
	}
	return out
}

// sortRows orders rows by incident date, newest first. Rows without a date
// go last.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Date == "" || rows[b].Date == "" {
			return rows[b].Date == "" && rows[a].Date != ""
		}
		return rows[a].Date > rows[b].Date
	})
}
