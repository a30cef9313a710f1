package handlers

import (
	"net/http"

	"github.com/rvi-ar/casos-api/caseform"
	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/models"
)

// Victim exported for testing purposes
type Victim struct {
	Controller *caseform.Controller
}

// VictimResponse is returned after a victim is created
type VictimResponse struct {
	Victim  models.Victim `json:"victima"`
	Message string        `json:"message"`
}

// CreateVictimHandler inserts a standalone victim
func (v Victim) CreateVictimHandler(w http.ResponseWriter, r *http.Request) {
	var req models.VictimRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("Cuerpo de la solicitud inválido", http.StatusBadRequest, w, err)
		return
	}

	victim, err := v.Controller.CreateVictim(r.Context(), req)
	if err != nil {
		controllerError(w, err, "No se pudo crear la víctima")
		return
	}
	writeJSON(w, http.StatusCreated, VictimResponse{Victim: *victim, Message: "Víctima creada correctamente"})
}

// DeleteVictimHandler deletes a victim and its case rows
func (v Victim) DeleteVictimHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idVar(w, r, "victim_id")
	if !ok {
		return
	}
	if err := v.Controller.DeleteVictim(r.Context(), id); err != nil {
		controllerError(w, err, "No se pudo eliminar la víctima")
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Víctima eliminada correctamente"})
}

// Incident exported for testing purposes
type Incident struct {
	Controller *caseform.Controller
}

// IncidentResponse is returned after an incident is created
type IncidentResponse struct {
	Incident models.Incident `json:"hecho"`
	Message  string          `json:"message"`
}

// CreateIncidentHandler inserts a standalone incident
func (i Incident) CreateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.IncidentRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("Cuerpo de la solicitud inválido", http.StatusBadRequest, w, err)
		return
	}

	incident, err := i.Controller.CreateIncident(r.Context(), req)
	if err != nil {
		controllerError(w, err, "No se pudo crear el hecho")
		return
	}
	writeJSON(w, http.StatusCreated, IncidentResponse{Incident: *incident, Message: "Hecho creado correctamente"})
}

// DeleteIncidentHandler deletes an incident and its case rows
func (i Incident) DeleteIncidentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idVar(w, r, "incident_id")
	if !ok {
		return
	}
	if err := i.Controller.DeleteIncident(r.Context(), id); err != nil {
		controllerError(w, err, "No se pudo eliminar el hecho")
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Hecho eliminado correctamente"})
}
