package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Actor types
const (
	ActorWitness      = "witness"
	ActorLawyer       = "lawyer"
	ActorFamily       = "family"
	ActorOrganization = "organization"
	ActorOther        = "other"
)

// Actor is a non-accused participant of an incident
type Actor struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	IncidentID primitive.ObjectID `json:"hecho_id" bson:"hecho_id"`
	Type       string             `json:"tipo" bson:"tipo"`
	Name       string             `json:"nombre" bson:"nombre"`
	Role       string             `json:"rol,omitempty" bson:"rol,omitempty"`
	Details    string             `json:"detalles,omitempty" bson:"detalles,omitempty"`
	CreatedAt  primitive.DateTime `json:"created_at" bson:"created_at"`
	UpdatedAt  primitive.DateTime `json:"updated_at" bson:"updated_at"`
}

// NormalizeActorType maps anything outside the known set to "other"
func NormalizeActorType(t string) string {
	switch t {
	case ActorWitness, ActorLawyer, ActorFamily, ActorOrganization:
		return t
	}
	return ActorOther
}
