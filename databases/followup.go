package databases

import "github.com/rvi-ar/casos-api/models"

const followUpName = "seguimientos"

// FollowUpDatabase contains the methods to use with the follow-up database
type FollowUpDatabase = EntityDatabase[models.FollowUp]

// NewFollowUpDatabase initializes a new instance of follow-up database with the provided db connection
func NewFollowUpDatabase(db DatabaseHelper) FollowUpDatabase {
	return newEntityDatabase[models.FollowUp](db, followUpName)
}
