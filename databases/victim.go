package databases

import "github.com/rvi-ar/casos-api/models"

const victimName = "victimas"

// VictimDatabase contains the methods to use with the victim database
type VictimDatabase = EntityDatabase[models.Victim]

// NewVictimDatabase initializes a new instance of victim database with the provided db connection
func NewVictimDatabase(db DatabaseHelper) VictimDatabase {
	return newEntityDatabase[models.Victim](db, victimName)
}
