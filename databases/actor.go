package databases

import "github.com/rvi-ar/casos-api/models"

const actorName = "actores"

// ActorDatabase contains the methods to use with the actor database
type ActorDatabase = EntityDatabase[models.Actor]

// NewActorDatabase initializes a new instance of actor database with the provided db connection
func NewActorDatabase(db DatabaseHelper) ActorDatabase {
	return newEntityDatabase[models.Actor](db, actorName)
}
