package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/api"
	"github.com/rvi-ar/casos-api/caseform"
	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/dashboard"
	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/geo"
	"github.com/rvi-ar/casos-api/listing"
	"github.com/rvi-ar/casos-api/metrics"
	"github.com/rvi-ar/casos-api/models"
	"github.com/rvi-ar/casos-api/notifier"
	"github.com/rvi-ar/casos-api/storage"
)

// App stores the router and its dependencies, so they can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	DB       databases.DatabaseHelper
	Mailer   notifier.Notifier
	Uploader *storage.Uploader
	Geo      geo.Lookup
	Hub      *Hub
	Gate     *api.Gate
	Now      func() time.Time

	ctx    context.Context
	client databases.ClientHelper
	redis  *geo.RedisCache
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if a.Mailer == nil {
		a.Mailer = notifier.Log{}
	}
	if a.Geo == nil {
		a.Geo = geo.NewClient(a.Config.Geo, nil)
	}
	if a.Hub == nil {
		a.Hub = NewHub()
	}
	if a.Gate == nil {
		a.Gate = api.NewGate(ctx, &a.Config, databases.NewMemberDatabase(a.DB), a.Mailer)
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}

	opts := []caseform.Option{caseform.WithPublisher(a.Hub)}
	var uploader FileUploader
	if a.Uploader != nil {
		opts = append(opts, caseform.WithFileRemover(a.Uploader))
		uploader = a.Uploader
	}
	controller := caseform.NewController(caseform.NewStore(a.DB), opts...)
	rows := listing.NewStore(a.DB)

	c := Case{Controller: controller, Rows: rows, Now: now}
	v := Victim{Controller: controller}
	i := Incident{Controller: controller}
	l := Listing{Rows: rows}
	d := Dashboard{Store: dashboard.NewStore(a.DB), Now: now}
	g := Geo{Lookup: a.Geo}
	res := Resource{Uploader: uploader}
	m := Metrics{Collector: metrics.Get()}
	gate := a.Gate

	timeout := api.TimeoutMiddleware(a.Config.RequestTimeout)
	protect := func(h http.HandlerFunc) http.Handler {
		return gate.Middleware(timeout(h))
	}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()

	apiRouter.Handle("/auth/token", timeout(http.HandlerFunc(gate.CreateToken))).Methods("POST")
	apiRouter.Handle("/auth/logout", protect(gate.RevokeToken)).Methods("DELETE")
	apiRouter.Handle("/auth/enlace", timeout(http.HandlerFunc(gate.RequestMagicLink))).Methods("POST")
	apiRouter.Handle("/auth/callback", http.HandlerFunc(gate.Callback)).Methods("GET")
	apiRouter.Handle("/auth/estado", http.HandlerFunc(gate.State)).Methods("GET")

	apiRouter.Handle("/casos", protect(c.CasesHandler)).Methods("GET")
	apiRouter.Handle("/casos", protect(c.CreateCaseHandler)).Methods("POST")
	apiRouter.Handle("/casos/export", protect(c.ExportCasesHandler)).Methods("GET")
	apiRouter.Handle("/casos/formulario", protect(c.CreateCaseFormHandler)).Methods("POST")
	apiRouter.Handle("/casos/{case_id}/formulario", protect(c.CaseFormHandler)).Methods("GET")
	apiRouter.Handle("/casos/{case_id}/formulario", protect(c.UpdateCaseFormHandler)).Methods("PUT")

	apiRouter.Handle("/victimas", protect(v.CreateVictimHandler)).Methods("POST")
	apiRouter.Handle("/victimas/{victim_id}", protect(v.DeleteVictimHandler)).Methods("DELETE")
	apiRouter.Handle("/hechos", protect(i.CreateIncidentHandler)).Methods("POST")
	apiRouter.Handle("/hechos/{incident_id}", protect(i.DeleteIncidentHandler)).Methods("DELETE")

	apiRouter.Handle("/listado", protect(l.ListingHandler)).Methods("GET")
	apiRouter.Handle("/dashboard", protect(d.DashboardHandler)).Methods("GET")

	apiRouter.Handle("/geo/paises", protect(g.CountriesHandler)).Methods("GET")
	apiRouter.Handle("/geo/provincias", protect(g.ProvincesHandler)).Methods("GET")
	apiRouter.Handle("/geo/provincias/{provincia}/municipios", protect(g.MunicipalitiesHandler)).Methods("GET")
	apiRouter.Handle("/geo/municipios", protect(g.MunicipalitiesHandler)).Methods("GET")

	apiRouter.Handle("/recursos/archivo", protect(res.UploadFileHandler)).Methods("POST")

	apiRouter.Handle("/metrics/summary", protect(m.SummaryHandler)).Methods("GET")

	// long lived, so outside the request timeout
	apiRouter.Handle("/ws", gate.Middleware(http.HandlerFunc(a.Hub.FeedHandler))).Methods("GET")

	return r
}

// Initialize connects to the database and the optional services, then
// creates the router
func (a *App) Initialize(ctx context.Context) error {
	a.ctx = ctx

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	if err := client.Connect(ctx); err != nil {
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	a.client = client
	a.DB = databases.NewDatabase(&a.Config, client)
	zap.S().Info("casos-api has connected to the database")

	a.Mailer = notifier.New(a.Config.Mail)

	store, err := storage.NewCloudinaryStore(a.Config.Cloudinary)
	if err != nil {
		zap.S().Warnw("file uploads disabled", "error", err)
	} else {
		a.Uploader = storage.NewUploader(store, a.Config.Cloudinary.Folder)
	}

	var cache geo.Cache
	if a.Config.Geo.RedisURL != "" {
		rc, err := geo.NewRedisCache(a.Config.Geo.RedisURL)
		if err == nil {
			err = rc.Ping(ctx)
		}
		if err != nil {
			zap.S().Warnw("geo cache disabled", "error", err)
		} else {
			a.redis = rc
			cache = rc
		}
	}
	a.Geo = geo.NewClient(a.Config.Geo, cache)

	a.initializeRoutes()
	return nil
}

// Close releases the connections opened by Initialize
func (a *App) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			zap.S().Warnw("failed to close redis", "error", err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
