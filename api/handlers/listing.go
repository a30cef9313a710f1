package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rvi-ar/casos-api/api"
	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/dashboard"
	"github.com/rvi-ar/casos-api/listing"
)

// Listing exported for testing purposes
type Listing struct {
	Rows listing.Store
}

// ListingHandler returns one page of the case or victim listing.
// vista=casos (default) joins from the cases collection, vista=victimas
// joins every collection in memory.
func (l Listing) ListingHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var (
		rows []listing.Row
		err  error
	)
	switch r.URL.Query().Get("vista") {
	case "", "casos":
		rows, err = listing.CaseRows(ctx, l.Rows)
	case "victimas":
		rows, err = listing.VictimRows(ctx, l.Rows)
	default:
		config.ErrorStatus("Vista desconocida", http.StatusBadRequest, w, nil)
		return
	}
	if err != nil {
		config.ErrorStatus("No se pudo obtener el listado", http.StatusInternalServerError, w, err)
		return
	}

	view := listing.NewView(rows)
	view.SetFilter(listing.FilterFromQuery(r.URL.Query()))
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		view.SetPage(p)
	}
	writeJSON(w, http.StatusOK, view.Current())
}

// Dashboard exported for testing purposes
type Dashboard struct {
	Store dashboard.Store
	Now   func() time.Time
}

// DashboardHandler returns the statistics and chart series
func (d Dashboard) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	resp, err := dashboard.Load(ctx, d.Store, now())
	if err != nil {
		config.ErrorStatus("No se pudo cargar el tablero", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
