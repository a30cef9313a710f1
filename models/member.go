package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Member is an NGO staff user allowed into the application
type Member struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	Name         string             `json:"nombre" bson:"nombre"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	CreatedAt    primitive.DateTime `json:"created_at" bson:"created_at"`
}
