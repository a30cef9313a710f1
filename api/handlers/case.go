package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/api"
	"github.com/rvi-ar/casos-api/caseform"
	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/listing"
	"github.com/rvi-ar/casos-api/models"
)

// Case exported for testing purposes
type Case struct {
	Controller *caseform.Controller
	Rows       listing.Store
	Now        func() time.Time
}

// CaseList is the body of GET /api/casos
type CaseList struct {
	Cases []listing.Row `json:"casos"`
}

// CasesHandler returns the case rows matching the query filters
func (c Case) CasesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rows, err := listing.CaseRows(ctx, c.Rows)
	if err != nil {
		config.ErrorStatus("No se pudieron obtener los casos", http.StatusInternalServerError, w, err)
		return
	}
	filtered := listing.FilterFromQuery(r.URL.Query()).Apply(rows)
	if filtered == nil {
		filtered = []listing.Row{}
	}
	writeJSON(w, http.StatusOK, CaseList{Cases: filtered})
}

// CreateCaseHandler creates a victim, incident and case from the simple body
func (c Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCaseRequest
	if err := decodeBody(r, &req); err != nil {
		config.ErrorStatus("Cuerpo de la solicitud inválido", http.StatusBadRequest, w, err)
		return
	}

	form, err := c.Controller.CreateFromRequest(r.Context(), &req)
	if err != nil {
		controllerError(w, err, "No se pudo crear el caso")
		return
	}
	zap.S().Infow("case created", "caseId", form.CaseID.Hex())
	writeJSON(w, http.StatusCreated, models.CaseFormResponse{Message: "Caso creado correctamente", Form: *form})
}

// CaseFormHandler loads the aggregate edited by the case form
func (c Case) CaseFormHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idVar(w, r, "case_id")
	if !ok {
		return
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	form, err := c.Controller.Load(ctx, id)
	if err != nil {
		controllerError(w, err, "No se pudo cargar el caso")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// CreateCaseFormHandler saves a new aggregate
func (c Case) CreateCaseFormHandler(w http.ResponseWriter, r *http.Request) {
	var form models.CaseForm
	if err := decodeBody(r, &form); err != nil {
		config.ErrorStatus("Cuerpo de la solicitud inválido", http.StatusBadRequest, w, err)
		return
	}

	saved, err := c.Controller.Create(r.Context(), &form)
	if err != nil {
		controllerError(w, err, "No se pudo guardar el caso")
		return
	}
	writeJSON(w, http.StatusCreated, models.CaseFormResponse{Message: "Caso creado correctamente", Form: *saved})
}

// UpdateCaseFormHandler saves an edited aggregate
func (c Case) UpdateCaseFormHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idVar(w, r, "case_id")
	if !ok {
		return
	}
	var form models.CaseForm
	if err := decodeBody(r, &form); err != nil {
		config.ErrorStatus("Cuerpo de la solicitud inválido", http.StatusBadRequest, w, err)
		return
	}

	saved, err := c.Controller.Update(r.Context(), id, &form)
	if err != nil {
		controllerError(w, err, "No se pudo guardar el caso")
		return
	}
	writeJSON(w, http.StatusOK, models.CaseFormResponse{Message: "Caso actualizado correctamente", Form: *saved})
}

// ExportCasesHandler writes the filtered case rows as a spreadsheet
func (c Case) ExportCasesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	rows, err := listing.CaseRows(ctx, c.Rows)
	if err != nil {
		config.ErrorStatus("No se pudieron obtener los casos", http.StatusInternalServerError, w, err)
		return
	}
	rows = listing.FilterFromQuery(r.URL.Query()).Apply(rows)

	var buf bytes.Buffer
	if err := listing.WriteXLSX(&buf, rows); err != nil {
		config.ErrorStatus("No se pudo generar la planilla", http.StatusInternalServerError, w, err)
		return
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	filename := fmt.Sprintf("casos-%s.xlsx", now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
