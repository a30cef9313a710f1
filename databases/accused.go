package databases

import "github.com/rvi-ar/casos-api/models"

const accusedName = "acusados"

// AccusedDatabase contains the methods to use with the accused database
type AccusedDatabase = EntityDatabase[models.Accused]

// NewAccusedDatabase initializes a new instance of accused database with the provided db connection
func NewAccusedDatabase(db DatabaseHelper) AccusedDatabase {
	return newEntityDatabase[models.Accused](db, accusedName)
}
