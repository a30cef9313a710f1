package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Resource types
const (
	ResourceNews               = "news"
	ResourceVideo              = "video"
	ResourcePhoto              = "photo"
	ResourceDocument           = "document"
	ResourceJudicialResolution = "judicial_resolution"
	ResourceAudio              = "audio"
	ResourceSocial             = "social"
	ResourceOther              = "other"
)

// Resource input modes
const (
	ResourceModeURL  = "url"
	ResourceModeFile = "file"
)

// Resource is evidence attached to a victim and/or an incident, either an
// external link or an uploaded file
type Resource struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	VictimID    *primitive.ObjectID `json:"victima_id,omitempty" bson:"victima_id,omitempty"`
	IncidentID  *primitive.ObjectID `json:"hecho_id,omitempty" bson:"hecho_id,omitempty"`
	Type        string              `json:"tipo" bson:"tipo"`
	Title       string              `json:"titulo" bson:"titulo"`
	URL         string              `json:"url,omitempty" bson:"url,omitempty"`
	File        *StoredFile         `json:"archivo,omitempty" bson:"archivo,omitempty"`
	Source      string              `json:"fuente,omitempty" bson:"fuente,omitempty"`
	Description string              `json:"descripcion,omitempty" bson:"descripcion,omitempty"`
	Date        string              `json:"fecha,omitempty" bson:"fecha,omitempty"`
	CreatedAt   primitive.DateTime  `json:"created_at" bson:"created_at"`
	UpdatedAt   primitive.DateTime  `json:"updated_at" bson:"updated_at"`
}

// StoredFile describes an object uploaded to the object store
type StoredFile struct {
	Path         string `json:"ruta" bson:"ruta"`
	OriginalName string `json:"nombre_original" bson:"nombre_original"`
	MIMEType     string `json:"tipo_mime" bson:"tipo_mime"`
	Size         int64  `json:"tamano" bson:"tamano"`
	PublicURL    string `json:"url_publica,omitempty" bson:"url_publica,omitempty"`
}

// Mode reports which input mode the resource was stored with
func (r Resource) Mode() string {
	if r.File != nil && r.File.Path != "" {
		return ResourceModeFile
	}
	return ResourceModeURL
}

// Link returns the address a viewer should open: the cached public URL of an
// uploaded file, otherwise the external URL.
func (r Resource) Link() string {
	if r.Mode() == ResourceModeFile && r.File.PublicURL != "" {
		return r.File.PublicURL
	}
	return r.URL
}

// NormalizeResourceType maps anything outside the known set to "other"
func NormalizeResourceType(t string) string {
	switch t {
	case ResourceNews, ResourceVideo, ResourcePhoto, ResourceDocument,
		ResourceJudicialResolution, ResourceAudio, ResourceSocial:
		return t
	}
	return ResourceOther
}
