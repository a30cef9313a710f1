package databases

import "github.com/rvi-ar/casos-api/models"

const caseName = "casos"

// CaseDatabase contains the methods to use with the case database
type CaseDatabase = EntityDatabase[models.Case]

// NewCaseDatabase initializes a new instance of case database with the provided db connection
func NewCaseDatabase(db DatabaseHelper) CaseDatabase {
	return newEntityDatabase[models.Case](db, caseName)
}
