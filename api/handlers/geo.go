package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rvi-ar/casos-api/geo"
)

// Geo serves the location pickers. Lookups never fail: the geo client
// answers with a built-in list when the public APIs are unavailable.
type Geo struct {
	Lookup geo.Lookup
}

// CountriesHandler returns every country name in Spanish
func (g Geo) CountriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.Lookup.Countries(r.Context()))
}

// ProvincesHandler returns the Argentine provinces
func (g Geo) ProvincesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, g.Lookup.Provinces(r.Context()))
}

// MunicipalitiesHandler returns the municipalities of the {provincia} route
// variable, or of ?provincia= on the flat route
func (g Geo) MunicipalitiesHandler(w http.ResponseWriter, r *http.Request) {
	province := mux.Vars(r)["provincia"]
	if province == "" {
		province = r.URL.Query().Get("provincia")
	}
	writeJSON(w, http.StatusOK, g.Lookup.Municipalities(r.Context(), province))
}
