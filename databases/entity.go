package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EntityDatabase contains the methods shared by every case-file collection.
// T is the model decoded from the collection.
type EntityDatabase[T any] interface {
	FindOne(ctx context.Context, filter interface{}) (*T, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error)
	InsertOne(ctx context.Context, document interface{}) (primitive.ObjectID, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}) (int64, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error)
	DeleteOne(ctx context.Context, filter interface{}) (int64, error)
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
	Name() string
}

type entityDatabase[T any] struct {
	db   DatabaseHelper
	name string
}

func newEntityDatabase[T any](db DatabaseHelper, name string) EntityDatabase[T] {
	return &entityDatabase[T]{
		db:   db,
		name: name,
	}
}

func (e *entityDatabase[T]) Name() string {
	return e.name
}

func (e *entityDatabase[T]) FindOne(ctx context.Context, filter interface{}) (*T, error) {
	doc := new(T)
	err := e.db.Collection(e.name).FindOne(ctx, filter).Decode(doc)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (e *entityDatabase[T]) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	var docs []T
	curr, err := e.db.Collection(e.name).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &docs)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (e *entityDatabase[T]) InsertOne(ctx context.Context, document interface{}) (primitive.ObjectID, error) {
	res, err := e.db.Collection(e.name).InsertOne(ctx, document)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.Decode().(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T in %s", res.Decode(), e.name)
	}
	return id, nil
}

func (e *entityDatabase[T]) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}) (int64, error) {
	return e.db.Collection(e.name).ReplaceOne(ctx, filter, replacement)
}

func (e *entityDatabase[T]) UpdateOne(ctx context.Context, filter interface{}, update interface{}) (int64, error) {
	return e.db.Collection(e.name).UpdateOne(ctx, filter, update)
}

func (e *entityDatabase[T]) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	return e.db.Collection(e.name).DeleteOne(ctx, filter)
}

func (e *entityDatabase[T]) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return e.db.Collection(e.name).CountDocuments(ctx, filter)
}
