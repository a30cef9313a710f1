package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Accused holds a person implicated in an incident, tracked through the
// acusados collection
type Accused struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	IncidentID       primitive.ObjectID `json:"hecho_id" bson:"hecho_id"`
	Name             string             `json:"nombre" bson:"nombre"`
	Alias            string             `json:"apodo,omitempty" bson:"apodo,omitempty"`
	Age              *int               `json:"edad,omitempty" bson:"edad,omitempty"`
	Minor            bool               `json:"es_menor" bson:"es_menor"`
	Nationality      string             `json:"nacionalidad,omitempty" bson:"nacionalidad,omitempty"`
	Court            string             `json:"juzgado,omitempty" bson:"juzgado,omitempty"`
	ProceduralStatus string             `json:"estado_procesal,omitempty" bson:"estado_procesal,omitempty"` // En investigación, Procesado, Condenado, ...
	Sentence         string             `json:"condena,omitempty" bson:"condena,omitempty"`
	TrialDate        string             `json:"fecha_juicio,omitempty" bson:"fecha_juicio,omitempty"`
	VerdictDate      string             `json:"fecha_sentencia,omitempty" bson:"fecha_sentencia,omitempty"`
	AbbreviatedTrial bool               `json:"juicio_abreviado" bson:"juicio_abreviado"`
	ForeignNational  bool               `json:"es_extranjero" bson:"es_extranjero"`
	PriorDetention   bool               `json:"detenido_previo" bson:"detenido_previo"`
	Deceased         bool               `json:"fallecido" bson:"fallecido"`
	RepeatOffender   bool               `json:"reincidente" bson:"reincidente"`
	Charges          string             `json:"cargos,omitempty" bson:"cargos,omitempty"`
	CreatedAt        primitive.DateTime `json:"created_at" bson:"created_at"`
	UpdatedAt        primitive.DateTime `json:"updated_at" bson:"updated_at"`
}
