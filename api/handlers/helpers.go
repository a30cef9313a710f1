package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rvi-ar/casos-api/caseform"
	"github.com/rvi-ar/casos-api/config"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// idVar reads an ObjectID route variable, writing a 400 when it is malformed
func idVar(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		config.ErrorStatus("Identificador inválido", http.StatusBadRequest, w, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

// controllerError maps caseform errors onto HTTP statuses
func controllerError(w http.ResponseWriter, err error, message string) {
	var ve *caseform.ValidationError
	switch {
	case errors.As(err, &ve):
		config.ErrorStatus(ve.Message, http.StatusBadRequest, w, err)
	case errors.Is(err, caseform.ErrCaseNotFound),
		errors.Is(err, caseform.ErrVictimNotFound),
		errors.Is(err, caseform.ErrIncidentNotFound):
		config.ErrorStatus(err.Error(), http.StatusNotFound, w, err)
	default:
		config.ErrorStatus(message, http.StatusInternalServerError, w, err)
	}
}
