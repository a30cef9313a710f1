package databases

import "github.com/rvi-ar/casos-api/models"

const resourceName = "recursos"

// ResourceDatabase contains the methods to use with the resource database
type ResourceDatabase = EntityDatabase[models.Resource]

// NewResourceDatabase initializes a new instance of resource database with the provided db connection
func NewResourceDatabase(db DatabaseHelper) ResourceDatabase {
	return newEntityDatabase[models.Resource](db, resourceName)
}
