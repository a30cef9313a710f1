// Package caseform loads and saves a case together with everything reachable
// from it: victims, the incident, accused, actors, the follow-up and the
// resources attached to victims or to the incident.
//
// Saves are sequences of independent writes. Each write records its
// compensation on a Saga and any failure rolls the recorded writes back.
package caseform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/models"
)

var (
	// ErrCaseNotFound is returned when the case (or the victim or incident it
	// points to) does not exist
	ErrCaseNotFound = errors.New("caso no encontrado")
	// ErrVictimNotFound is returned when a victim id does not exist
	ErrVictimNotFound = errors.New("víctima no encontrada")
	// ErrIncidentNotFound is returned when an incident id does not exist
	ErrIncidentNotFound = errors.New("hecho no encontrado")
	// ErrValidation matches every *ValidationError
	ErrValidation = errors.New("datos inválidos")
)

// ValidationError carries the message shown to the user for a rejected form
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) true for every ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// Store groups the collections a case touches
type Store struct {
	Victims   databases.VictimDatabase
	Incidents databases.IncidentDatabase
	Cases     databases.CaseDatabase
	Accused   databases.AccusedDatabase
	FollowUps databases.FollowUpDatabase
	Resources databases.ResourceDatabase
	Actors    databases.ActorDatabase
}

// NewStore builds every collection accessor on db
func NewStore(db databases.DatabaseHelper) Store {
	return Store{
		Victims:   databases.NewVictimDatabase(db),
		Incidents: databases.NewIncidentDatabase(db),
		Cases:     databases.NewCaseDatabase(db),
		Accused:   databases.NewAccusedDatabase(db),
		FollowUps: databases.NewFollowUpDatabase(db),
		Resources: databases.NewResourceDatabase(db),
		Actors:    databases.NewActorDatabase(db),
	}
}

// Publisher receives an event after every successful write
type Publisher interface {
	Publish(event models.CaseEvent)
}

// FileRemover deletes an uploaded object. It undoes uploads referenced by
// resources of a save that failed.
type FileRemover interface {
	Remove(ctx context.Context, file *models.StoredFile) error
}

// Event types
const (
	EventCaseCreated     = "case.created"
	EventCaseUpdated     = "case.updated"
	EventVictimCreated   = "victim.created"
	EventVictimDeleted   = "victim.deleted"
	EventIncidentCreated = "incident.created"
	EventIncidentDeleted = "incident.deleted"
)

// Controller loads and saves case aggregates
type Controller struct {
	store  Store
	events Publisher
	files  FileRemover
	now    func() time.Time
}

// Option configures a Controller
type Option func(*Controller)

// WithPublisher sends events to p after successful writes
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.events = p }
}

// WithFileRemover removes uploaded files of resources written by a failed save
func WithFileRemover(f FileRemover) Option {
	return func(c *Controller) { c.files = f }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a Controller on store
func NewController(store Store, opts ...Option) *Controller {
	c := &Controller{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) timestamp() primitive.DateTime {
	return primitive.NewDateTimeFromTime(c.now())
}

func (c *Controller) publish(eventType string, caseID, incidentID primitive.ObjectID) {
	if c.events == nil {
		return
	}
	ev := models.CaseEvent{Type: eventType, At: c.timestamp()}
	if !caseID.IsZero() {
		ev.CaseID = caseID.Hex()
	}
	if !incidentID.IsZero() {
		ev.IncidentID = incidentID.Hex()
	}
	c.events.Publish(ev)
}

func byID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id}
}

// insert writes doc and records its deletion
func insert[T any](ctx context.Context, saga *Saga, db databases.EntityDatabase[T], step string, doc interface{}) (primitive.ObjectID, error) {
	id, err := db.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s: %w", step, err)
	}
	saga.Record(step, func(ctx context.Context) error {
		_, err := db.DeleteOne(ctx, byID(id))
		return err
	})
	return id, nil
}

// replace swaps the stored document for doc and records the restore of prior
func replace[T any](ctx context.Context, saga *Saga, db databases.EntityDatabase[T], step string, id primitive.ObjectID, doc interface{}, prior *T) error {
	if _, err := db.ReplaceOne(ctx, byID(id), doc); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	saga.Record(step, func(ctx context.Context) error {
		_, err := db.ReplaceOne(ctx, byID(id), prior)
		return err
	})
	return nil
}

// remove deletes the document and records its re-insertion
func remove[T any](ctx context.Context, saga *Saga, db databases.EntityDatabase[T], step string, id primitive.ObjectID, prior *T) error {
	if _, err := db.DeleteOne(ctx, byID(id)); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	saga.Record(step, func(ctx context.Context) error {
		_, err := db.InsertOne(ctx, prior)
		return err
	})
	return nil
}

// recordUpload registers the removal of the uploaded file of a resource this
// save just inserted. A file any other resource points at came from an
// earlier save and is never removed. When the check itself fails the file is
// kept.
func (c *Controller) recordUpload(ctx context.Context, saga *Saga, res models.Resource, id primitive.ObjectID) {
	if c.files == nil || res.Mode() != models.ResourceModeFile {
		return
	}
	file := res.File
	others, err := c.store.Resources.CountDocuments(ctx, bson.M{"archivo.ruta": file.Path, "_id": bson.M{"$ne": id}})
	if err != nil {
		zap.S().Warnw("failed to check upload references, file kept on rollback", "path", file.Path, "error", err)
		return
	}
	if others > 0 {
		return
	}
	saga.Record("upload", func(ctx context.Context) error {
		return c.files.Remove(ctx, file)
	})
}
