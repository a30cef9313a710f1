package models

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FollowUp holds the NGO case-management metadata of an incident. There is at
// most one per incident.
type FollowUp struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	IncidentID      primitive.ObjectID `json:"hecho_id" bson:"hecho_id"`
	AssignedMember  string             `json:"miembro_asignado,omitempty" bson:"miembro_asignado,omitempty"`
	FamilyContact   FamilyContact      `json:"contacto_familia" bson:"contacto_familia"`
	SupportTypes    []string           `json:"tipos_acompanamiento,omitempty" bson:"tipos_acompanamiento,omitempty"`
	Notes           string             `json:"observaciones,omitempty" bson:"observaciones,omitempty"`
	Court           string             `json:"juzgado,omitempty" bson:"juzgado,omitempty"`
	Prosecutor      string             `json:"fiscal,omitempty" bson:"fiscal,omitempty"`
	PlaintiffLawyer string             `json:"abogado_querellante,omitempty" bson:"abogado_querellante,omitempty"`
	AmicusCuriae    bool               `json:"amicus_curiae" bson:"amicus_curiae"`
	CreatedAt       primitive.DateTime `json:"created_at" bson:"created_at"`
	UpdatedAt       primitive.DateTime `json:"updated_at" bson:"updated_at"`
}

// FamilyContact is the family liaison of a case. Older records packed name
// and relationship into a single "Nombre - Relación" string; both shapes are
// accepted when decoding.
type FamilyContact struct {
	Name         string `json:"nombre,omitempty" bson:"nombre,omitempty"`
	Relationship string `json:"relacion,omitempty" bson:"relacion,omitempty"`
	Phone        string `json:"telefono,omitempty" bson:"telefono,omitempty"`
}

const familyContactSeparator = " - "

// ParseFamilyContact splits a packed "Nombre - Relación" string
func ParseFamilyContact(packed string) FamilyContact {
	packed = strings.TrimSpace(packed)
	if packed == "" {
		return FamilyContact{}
	}
	name, rel, found := strings.Cut(packed, familyContactSeparator)
	if !found {
		return FamilyContact{Name: packed}
	}
	return FamilyContact{Name: strings.TrimSpace(name), Relationship: strings.TrimSpace(rel)}
}

// IsZero reports whether no contact data was provided
func (f FamilyContact) IsZero() bool {
	return f.Name == "" && f.Relationship == "" && f.Phone == ""
}

// Display renders the contact the way listings show it. An empty contact is
// shown as "Familiar".
func (f FamilyContact) Display() string {
	switch {
	case f.Name == "" && f.Relationship == "":
		return FallbackFamily
	case f.Relationship == "":
		return f.Name
	case f.Name == "":
		return f.Relationship
	}
	return f.Name + familyContactSeparator + f.Relationship
}

type familyContactFields FamilyContact

// UnmarshalJSON accepts either the structured object or the packed string
func (f *FamilyContact) UnmarshalJSON(b []byte) error {
	var packed string
	if err := json.Unmarshal(b, &packed); err == nil {
		*f = ParseFamilyContact(packed)
		return nil
	}
	var fields familyContactFields
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*f = FamilyContact(fields)
	return nil
}

// UnmarshalBSONValue accepts either an embedded document or a packed string
func (f *FamilyContact) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.String:
		raw := bson.RawValue{Type: t, Value: data}
		*f = ParseFamilyContact(raw.StringValue())
		return nil
	case bsontype.Null, bsontype.Undefined:
		*f = FamilyContact{}
		return nil
	}
	var fields familyContactFields
	if err := bson.Unmarshal(data, &fields); err != nil {
		return err
	}
	*f = FamilyContact(fields)
	return nil
}
