package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Incident holds the structure for the hechos collection in mongo
type Incident struct {
	ID                 primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Date               string              `json:"fecha_hecho" bson:"fecha_hecho"` // YYYY-MM-DD
	Time               string              `json:"hora,omitempty" bson:"hora,omitempty"`
	DeathDate          string              `json:"fecha_muerte,omitempty" bson:"fecha_muerte,omitempty"`
	Province           string              `json:"provincia,omitempty" bson:"provincia,omitempty"`
	Municipality       string              `json:"municipio,omitempty" bson:"municipio,omitempty"`
	Place              string              `json:"lugar,omitempty" bson:"lugar,omitempty"`
	PlaceType          string              `json:"tipo_lugar,omitempty" bson:"tipo_lugar,omitempty"`
	Location           string              `json:"ubicacion,omitempty" bson:"ubicacion,omitempty"`
	Summary            string              `json:"resumen_hecho,omitempty" bson:"resumen_hecho,omitempty"`
	CrimeType          string              `json:"tipo_delito,omitempty" bson:"tipo_delito,omitempty"`
	WeaponType         string              `json:"tipo_arma,omitempty" bson:"tipo_arma,omitempty"`
	PerpetratorType    string              `json:"tipo_perpetrador,omitempty" bson:"tipo_perpetrador,omitempty"`
	PerpetratorDetails string              `json:"detalle_perpetrador,omitempty" bson:"detalle_perpetrador,omitempty"`
	Aggravants         []string            `json:"agravantes,omitempty" bson:"agravantes,omitempty"`
	ProsecutorName     string              `json:"fiscal_nombre,omitempty" bson:"fiscal_nombre,omitempty"`
	ProsecutorPhone    string              `json:"fiscal_telefono,omitempty" bson:"fiscal_telefono,omitempty"`
	ProsecutorEmail    string              `json:"fiscal_email,omitempty" bson:"fiscal_email,omitempty"`
	FileNumber         string              `json:"numero_expediente,omitempty" bson:"numero_expediente,omitempty"`
	FileTitle          string              `json:"caratula,omitempty" bson:"caratula,omitempty"`
	Status             string              `json:"estado,omitempty" bson:"estado,omitempty"`
	Notes              string              `json:"notas,omitempty" bson:"notas,omitempty"`
	PrimaryVictimID    *primitive.ObjectID `json:"victima_id,omitempty" bson:"victima_id,omitempty"` // first victim created with the incident
	CreatedAt          primitive.DateTime  `json:"created_at" bson:"created_at"`
	UpdatedAt          primitive.DateTime  `json:"updated_at" bson:"updated_at"`
}

// DisplayLocation picks the most specific place we know about
func (i Incident) DisplayLocation() string {
	switch {
	case i.Municipality != "":
		return i.Municipality
	case i.Place != "":
		return i.Place
	case i.Location != "":
		return i.Location
	}
	return FallbackUnspecified
}

// NormalizeAggravants trims and de-duplicates the aggravating factor tags,
// keeping the first occurrence order.
func NormalizeAggravants(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = trimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
