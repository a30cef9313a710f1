package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Victim holds the structure for the victimas collection in mongo
type Victim struct {
	ID                    primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	FullName              string             `json:"nombre_completo" bson:"nombre_completo"`
	Surname               string             `json:"apellido,omitempty" bson:"apellido,omitempty"`
	BirthDate             string             `json:"fecha_nacimiento,omitempty" bson:"fecha_nacimiento,omitempty"` // YYYY-MM-DD
	Age                   *int               `json:"edad,omitempty" bson:"edad,omitempty"`
	Profession            string             `json:"profesion,omitempty" bson:"profesion,omitempty"`
	Nationality           string             `json:"nacionalidad,omitempty" bson:"nacionalidad,omitempty"`
	ResidenceProvince     string             `json:"provincia_residencia,omitempty" bson:"provincia_residencia,omitempty"`
	ResidenceMunicipality string             `json:"municipio_residencia,omitempty" bson:"municipio_residencia,omitempty"`
	SocialMedia           []string           `json:"redes_sociales,omitempty" bson:"redes_sociales,omitempty"`
	Phone                 string             `json:"telefono,omitempty" bson:"telefono,omitempty"`
	Email                 string             `json:"email,omitempty" bson:"email,omitempty"`
	Address               string             `json:"direccion,omitempty" bson:"direccion,omitempty"`
	Notes                 string             `json:"notas_adicionales,omitempty" bson:"notas_adicionales,omitempty"`
	CreatedAt             primitive.DateTime `json:"created_at" bson:"created_at"`
	UpdatedAt             primitive.DateTime `json:"updated_at" bson:"updated_at"`
}

// DisplayName joins the name and surname, falling back to "Sin nombre"
func (v Victim) DisplayName() string {
	name := v.FullName
	if v.Surname != "" {
		if name != "" {
			name += " "
		}
		name += v.Surname
	}
	if name == "" {
		return FallbackNoName
	}
	return name
}
