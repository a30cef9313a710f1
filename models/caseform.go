package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CaseForm is the aggregate edited by the case form: every victim of an
// incident with its resources, the incident itself, its follow-up, accused,
// actors and incident-level resources.
type CaseForm struct {
	CaseID    primitive.ObjectID `json:"caso_id"`
	Status    string             `json:"estado_general"`
	Victims   []VictimForm       `json:"victimas"`
	Incident  Incident           `json:"hecho"`
	FollowUp  *FollowUp          `json:"seguimiento,omitempty"`
	Accused   []Accused          `json:"acusados"`
	Actors    []Actor            `json:"actores"`
	Resources []Resource         `json:"recursos"`
}

// VictimForm is a victim together with the resources attached to it
type VictimForm struct {
	Victim
	Resources []Resource `json:"recursos"`
}

// CaseFormResponse is returned after a successful aggregate save
type CaseFormResponse struct {
	Message string   `json:"message"`
	Form    CaseForm `json:"caso"`
}
