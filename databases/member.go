package databases

import "github.com/rvi-ar/casos-api/models"

const memberName = "miembros"

// MemberDatabase contains the methods to use with the member database
type MemberDatabase = EntityDatabase[models.Member]

// NewMemberDatabase initializes a new instance of member database with the provided db connection
func NewMemberDatabase(db DatabaseHelper) MemberDatabase {
	return newEntityDatabase[models.Member](db, memberName)
}
