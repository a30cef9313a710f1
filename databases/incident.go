package databases

import "github.com/rvi-ar/casos-api/models"

const incidentName = "hechos"

// IncidentDatabase contains the methods to use with the incident database
type IncidentDatabase = EntityDatabase[models.Incident]

// NewIncidentDatabase initializes a new instance of incident database with the provided db connection
func NewIncidentDatabase(db DatabaseHelper) IncidentDatabase {
	return newEntityDatabase[models.Incident](db, incidentName)
}
