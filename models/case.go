package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Case binds one victim to one incident, carrying the overall legal status
type Case struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	VictimID   primitive.ObjectID `json:"victima_id" bson:"victima_id"`
	IncidentID primitive.ObjectID `json:"hecho_id" bson:"hecho_id"`
	Status     string             `json:"estado_general" bson:"estado_general"`
	CreatedAt  primitive.DateTime `json:"created_at" bson:"created_at"`
	UpdatedAt  primitive.DateTime `json:"updated_at" bson:"updated_at"`
}

// CaseEvent is broadcast to live feed subscribers after a write
type CaseEvent struct {
	Type       string             `json:"type"` // case.created, case.updated, case.deleted, victim.deleted, incident.deleted
	CaseID     string             `json:"caseId,omitempty"`
	IncidentID string             `json:"incidentId,omitempty"`
	At         primitive.DateTime `json:"at"`
}
