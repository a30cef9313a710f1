package dbtest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rvi-ar/casos-api/databases/dbtest"
	"github.com/rvi-ar/casos-api/models"
)

func TestCountDocuments_DottedPath(t *testing.T) {
	db := dbtest.New()
	coll := db.Collection("recursos")
	ctx := context.Background()

	first, err := coll.InsertOne(ctx, models.Resource{Title: "a", File: &models.StoredFile{Path: "recursos/1.pdf"}})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, models.Resource{Title: "b", File: &models.StoredFile{Path: "recursos/1.pdf"}})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, models.Resource{Title: "c", URL: "https://x.example.org"})
	require.NoError(t, err)
	firstID := first.Decode().(primitive.ObjectID)

	tests := []struct {
		name   string
		filter bson.M
		want   int64
	}{
		{"nested field", bson.M{"archivo.ruta": "recursos/1.pdf"}, 2},
		{"nested with $ne", bson.M{"archivo.ruta": "recursos/1.pdf", "_id": bson.M{"$ne": firstID}}, 1},
		{"missing parent", bson.M{"archivo.ruta": "https://x.example.org"}, 0},
		{"nested $exists", bson.M{"archivo.ruta": bson.M{"$exists": false}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := coll.CountDocuments(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestFailAfter(t *testing.T) {
	db := dbtest.New()
	coll := db.Collection("victimas")
	boom := errors.New("write failed")
	db.FailAfter("victimas", "insertOne", 1, boom)

	_, err := coll.InsertOne(context.Background(), bson.M{"nombre": "Ana"})
	require.NoError(t, err)
	_, err = coll.InsertOne(context.Background(), bson.M{"nombre": "Bea"})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, db.Len("victimas"))
}
