package caseform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/models"
)

// Validate checks the fields a case cannot be saved without
func Validate(form *models.CaseForm) error {
	if form == nil || len(form.Victims) == 0 {
		return invalid("El caso debe tener al menos una víctima")
	}
	for i, v := range form.Victims {
		if strings.TrimSpace(v.FullName) == "" {
			if len(form.Victims) == 1 {
				return invalid("El nombre de la víctima es obligatorio")
			}
			return invalid(fmt.Sprintf("El nombre de la víctima %d es obligatorio", i+1))
		}
	}
	if strings.TrimSpace(form.Incident.Date) == "" {
		return invalid("La fecha del hecho es obligatoria")
	}
	return nil
}

// Create saves a new case: the incident, then per victim the victim, its
// case row and its resources, then the incident's primary victim, actors,
// accused, follow-up and incident resources. The case id of the result is
// the first victim's case.
func (c *Controller) Create(ctx context.Context, form *models.CaseForm) (result *models.CaseForm, err error) {
	if err := Validate(form); err != nil {
		return nil, err
	}

	saga := NewSaga("create case")
	defer func() {
		if err != nil {
			saga.Rollback(ctx)
		}
	}()
	now := c.timestamp()

	incident := form.Incident
	incident.ID = primitive.NilObjectID
	incident.PrimaryVictimID = nil
	incident.Aggravants = models.NormalizeAggravants(incident.Aggravants)
	incident.CreatedAt, incident.UpdatedAt = now, now
	incidentID, err := insert(ctx, saga, c.store.Incidents, "insert incident", incident)
	if err != nil {
		return nil, err
	}
	incident.ID = incidentID

	result = &models.CaseForm{
		Status:  form.Status,
		Accused: []models.Accused{},
		Actors:  []models.Actor{},
	}

	for _, vf := range form.Victims {
		victim := vf.Victim
		victim.ID = primitive.NilObjectID
		victim.CreatedAt, victim.UpdatedAt = now, now
		victimID, err := insert(ctx, saga, c.store.Victims, "insert victim", victim)
		if err != nil {
			return nil, err
		}
		victim.ID = victimID

		cs := models.Case{VictimID: victimID, IncidentID: incidentID, Status: form.Status, CreatedAt: now, UpdatedAt: now}
		caseID, err := insert(ctx, saga, c.store.Cases, "insert case", cs)
		if err != nil {
			return nil, err
		}
		if result.CaseID.IsZero() {
			result.CaseID = caseID
		}

		resources, err := c.insertResources(ctx, saga, vf.Resources, &victimID, incidentID, now)
		if err != nil {
			return nil, err
		}
		result.Victims = append(result.Victims, models.VictimForm{Victim: victim, Resources: resources})
	}

	primary := result.Victims[0].ID
	if _, err := c.store.Incidents.UpdateOne(ctx, byID(incidentID), bson.M{"$set": bson.M{"victima_id": primary}}); err != nil {
		return nil, fmt.Errorf("set primary victim: %w", err)
	}
	saga.Record("set primary victim", func(ctx context.Context) error {
		_, err := c.store.Incidents.UpdateOne(ctx, byID(incidentID), bson.M{"$unset": bson.M{"victima_id": ""}})
		return err
	})
	incident.PrimaryVictimID = &primary
	result.Incident = incident

	for _, a := range form.Actors {
		a.ID = primitive.NilObjectID
		a.IncidentID = incidentID
		a.Type = models.NormalizeActorType(a.Type)
		a.CreatedAt, a.UpdatedAt = now, now
		if a.ID, err = insert(ctx, saga, c.store.Actors, "insert actor", a); err != nil {
			return nil, err
		}
		result.Actors = append(result.Actors, a)
	}

	for _, a := range form.Accused {
		a.ID = primitive.NilObjectID
		a.IncidentID = incidentID
		a.CreatedAt, a.UpdatedAt = now, now
		if a.ID, err = insert(ctx, saga, c.store.Accused, "insert accused", a); err != nil {
			return nil, err
		}
		result.Accused = append(result.Accused, a)
	}

	if form.FollowUp != nil {
		f := *form.FollowUp
		f.ID = primitive.NilObjectID
		f.IncidentID = incidentID
		f.CreatedAt, f.UpdatedAt = now, now
		if f.ID, err = insert(ctx, saga, c.store.FollowUps, "insert follow-up", f); err != nil {
			return nil, err
		}
		result.FollowUp = &f
	}

	if result.Resources, err = c.insertResources(ctx, saga, form.Resources, nil, incidentID, now); err != nil {
		return nil, err
	}

	zap.S().Infow("case created", "caseId", result.CaseID.Hex(), "incidentId", incidentID.Hex(), "victims", len(result.Victims), "writes", saga.Len())
	c.publish(EventCaseCreated, result.CaseID, incidentID)
	return result, nil
}

func (c *Controller) insertResources(ctx context.Context, saga *Saga, resources []models.Resource, victimID *primitive.ObjectID, incidentID primitive.ObjectID, now primitive.DateTime) ([]models.Resource, error) {
	out := make([]models.Resource, 0, len(resources))
	for _, r := range resources {
		r = prepareResource(r, victimID, incidentID)
		r.ID = primitive.NilObjectID
		r.CreatedAt, r.UpdatedAt = now, now
		id, err := insert(ctx, saga, c.store.Resources, "insert resource", r)
		if err != nil {
			return nil, err
		}
		c.recordUpload(ctx, saga, r, id)
		r.ID = id
		out = append(out, r)
	}
	return out, nil
}

func prepareResource(r models.Resource, victimID *primitive.ObjectID, incidentID primitive.ObjectID) models.Resource {
	r.Type = models.NormalizeResourceType(r.Type)
	r.VictimID = victimID
	r.IncidentID = &incidentID
	return r
}

// Update saves an edited case. Victims with an id are replaced in place,
// victims without one are inserted and linked to the case's incident.
// Actors and accused of the incident that are missing from the form are
// deleted. The last write wins: there is no version check.
func (c *Controller) Update(ctx context.Context, caseID primitive.ObjectID, form *models.CaseForm) (result *models.CaseForm, err error) {
	if err := Validate(form); err != nil {
		return nil, err
	}

	current, err := c.store.Cases.FindOne(ctx, byID(caseID))
	if err != nil {
		return nil, notFoundOr(err, ErrCaseNotFound, "loading case")
	}
	incidentID := current.IncidentID
	if err := c.checkVictimsBelong(ctx, form, current); err != nil {
		return nil, err
	}

	saga := NewSaga("update case")
	defer func() {
		if err != nil {
			saga.Rollback(ctx)
		}
	}()
	now := c.timestamp()

	result = &models.CaseForm{CaseID: caseID, Status: form.Status}

	for _, vf := range form.Victims {
		victim, err := c.saveVictim(ctx, saga, vf.Victim, incidentID, form.Status, now)
		if err != nil {
			return nil, err
		}
		victimID := victim.ID
		resources := make([]models.Resource, 0, len(vf.Resources))
		for _, r := range vf.Resources {
			saved, err := c.upsertResource(ctx, saga, prepareResource(r, &victimID, incidentID), now)
			if err != nil {
				return nil, err
			}
			resources = append(resources, saved)
		}
		result.Victims = append(result.Victims, models.VictimForm{Victim: victim, Resources: resources})
	}

	if result.Incident, err = c.replaceIncident(ctx, saga, form.Incident, incidentID, now); err != nil {
		return nil, err
	}
	if result.Actors, err = c.reconcileActors(ctx, saga, form.Actors, incidentID, now); err != nil {
		return nil, err
	}
	if result.Accused, err = c.reconcileAccused(ctx, saga, form.Accused, incidentID, now); err != nil {
		return nil, err
	}
	if result.FollowUp, err = c.saveFollowUp(ctx, saga, form.FollowUp, incidentID, now); err != nil {
		return nil, err
	}

	result.Resources = make([]models.Resource, 0, len(form.Resources))
	for _, r := range form.Resources {
		saved, err := c.upsertResource(ctx, saga, prepareResource(r, nil, incidentID), now)
		if err != nil {
			return nil, err
		}
		result.Resources = append(result.Resources, saved)
	}

	if _, err = c.store.Cases.UpdateOne(ctx, byID(caseID), bson.M{"$set": bson.M{"estado_general": form.Status, "updated_at": now}}); err != nil {
		return nil, fmt.Errorf("update case status: %w", err)
	}
	prevStatus, prevUpdated := current.Status, current.UpdatedAt
	saga.Record("update case status", func(ctx context.Context) error {
		_, err := c.store.Cases.UpdateOne(ctx, byID(caseID), bson.M{"$set": bson.M{"estado_general": prevStatus, "updated_at": prevUpdated}})
		return err
	})

	zap.S().Infow("case updated", "caseId", caseID.Hex(), "incidentId", incidentID.Hex(), "writes", saga.Len())
	c.publish(EventCaseUpdated, caseID, incidentID)
	return result, nil
}

// checkVictimsBelong rejects a form carrying the id of a victim that has no
// case row on the edited case's incident
func (c *Controller) checkVictimsBelong(ctx context.Context, form *models.CaseForm, current *models.Case) error {
	cases, err := c.store.Cases.Find(ctx, bson.M{"hecho_id": current.IncidentID})
	if err != nil {
		return fmt.Errorf("loading incident cases: %w", err)
	}
	linked := map[primitive.ObjectID]bool{current.VictimID: true}
	for _, cs := range cases {
		linked[cs.VictimID] = true
	}
	for i, vf := range form.Victims {
		if !vf.ID.IsZero() && !linked[vf.ID] {
			if len(form.Victims) == 1 {
				return invalid("La víctima no pertenece a este caso")
			}
			return invalid(fmt.Sprintf("La víctima %d no pertenece a este caso", i+1))
		}
	}
	return nil
}

func (c *Controller) saveVictim(ctx context.Context, saga *Saga, victim models.Victim, incidentID primitive.ObjectID, status string, now primitive.DateTime) (models.Victim, error) {
	if !victim.ID.IsZero() {
		prior, err := c.store.Victims.FindOne(ctx, byID(victim.ID))
		if err != nil {
			return victim, notFoundOr(err, ErrVictimNotFound, "loading victim")
		}
		victim.CreatedAt, victim.UpdatedAt = prior.CreatedAt, now
		return victim, replace(ctx, saga, c.store.Victims, "replace victim", victim.ID, victim, prior)
	}

	victim.CreatedAt, victim.UpdatedAt = now, now
	id, err := insert(ctx, saga, c.store.Victims, "insert victim", victim)
	if err != nil {
		return victim, err
	}
	victim.ID = id

	cs := models.Case{VictimID: id, IncidentID: incidentID, Status: status, CreatedAt: now, UpdatedAt: now}
	if _, err := insert(ctx, saga, c.store.Cases, "insert case", cs); err != nil {
		return victim, err
	}
	return victim, nil
}

func (c *Controller) upsertResource(ctx context.Context, saga *Saga, r models.Resource, now primitive.DateTime) (models.Resource, error) {
	if !r.ID.IsZero() {
		prior, err := c.store.Resources.FindOne(ctx, byID(r.ID))
		switch {
		case err == nil:
			if prior.IncidentID == nil || *prior.IncidentID != *r.IncidentID {
				return r, invalid(fmt.Sprintf("El recurso %q no pertenece a este caso", prior.Title))
			}
			r.CreatedAt, r.UpdatedAt = prior.CreatedAt, now
			return r, replace(ctx, saga, c.store.Resources, "replace resource", r.ID, r, prior)
		case !errors.Is(err, mongo.ErrNoDocuments):
			return r, fmt.Errorf("loading resource: %w", err)
		}
	}

	r.ID = primitive.NilObjectID
	r.CreatedAt, r.UpdatedAt = now, now
	id, err := insert(ctx, saga, c.store.Resources, "insert resource", r)
	if err != nil {
		return r, err
	}
	c.recordUpload(ctx, saga, r, id)
	r.ID = id
	return r, nil
}

func (c *Controller) replaceIncident(ctx context.Context, saga *Saga, incident models.Incident, incidentID primitive.ObjectID, now primitive.DateTime) (models.Incident, error) {
	prior, err := c.store.Incidents.FindOne(ctx, byID(incidentID))
	if err != nil {
		return incident, notFoundOr(err, ErrCaseNotFound, "loading incident")
	}
	incident.ID = incidentID
	incident.Aggravants = models.NormalizeAggravants(incident.Aggravants)
	if incident.PrimaryVictimID == nil {
		incident.PrimaryVictimID = prior.PrimaryVictimID
	}
	incident.CreatedAt, incident.UpdatedAt = prior.CreatedAt, now
	return incident, replace(ctx, saga, c.store.Incidents, "replace incident", incidentID, incident, prior)
}

func (c *Controller) reconcileActors(ctx context.Context, saga *Saga, actors []models.Actor, incidentID primitive.ObjectID, now primitive.DateTime) ([]models.Actor, error) {
	existing, err := c.store.Actors.Find(ctx, bson.M{"hecho_id": incidentID})
	if err != nil {
		return nil, fmt.Errorf("loading actors: %w", err)
	}
	stored := make(map[primitive.ObjectID]*models.Actor, len(existing))
	for i := range existing {
		stored[existing[i].ID] = &existing[i]
	}
	keep := make(map[primitive.ObjectID]bool, len(actors))
	for _, a := range actors {
		keep[a.ID] = true
	}
	for _, prior := range existing {
		if keep[prior.ID] {
			continue
		}
		prior := prior
		if err := remove(ctx, saga, c.store.Actors, "delete actor", prior.ID, &prior); err != nil {
			return nil, err
		}
	}

	out := make([]models.Actor, 0, len(actors))
	for _, a := range actors {
		a.IncidentID = incidentID
		a.Type = models.NormalizeActorType(a.Type)
		if prior, ok := stored[a.ID]; ok && !a.ID.IsZero() {
			a.CreatedAt, a.UpdatedAt = prior.CreatedAt, now
			if err := replace(ctx, saga, c.store.Actors, "replace actor", a.ID, a, prior); err != nil {
				return nil, err
			}
		} else {
			a.ID = primitive.NilObjectID
			a.CreatedAt, a.UpdatedAt = now, now
			if a.ID, err = insert(ctx, saga, c.store.Actors, "insert actor", a); err != nil {
				return nil, err
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *Controller) reconcileAccused(ctx context.Context, saga *Saga, accused []models.Accused, incidentID primitive.ObjectID, now primitive.DateTime) ([]models.Accused, error) {
	existing, err := c.store.Accused.Find(ctx, bson.M{"hecho_id": incidentID})
	if err != nil {
		return nil, fmt.Errorf("loading accused: %w", err)
	}
	stored := make(map[primitive.ObjectID]*models.Accused, len(existing))
	for i := range existing {
		stored[existing[i].ID] = &existing[i]
	}
	keep := make(map[primitive.ObjectID]bool, len(accused))
	for _, a := range accused {
		keep[a.ID] = true
	}
	for _, prior := range existing {
		if keep[prior.ID] {
			continue
		}
		prior := prior
		if err := remove(ctx, saga, c.store.Accused, "delete accused", prior.ID, &prior); err != nil {
			return nil, err
		}
	}

	out := make([]models.Accused, 0, len(accused))
	for _, a := range accused {
		a.IncidentID = incidentID
		if prior, ok := stored[a.ID]; ok && !a.ID.IsZero() {
			a.CreatedAt, a.UpdatedAt = prior.CreatedAt, now
			if err := replace(ctx, saga, c.store.Accused, "replace accused", a.ID, a, prior); err != nil {
				return nil, err
			}
		} else {
			a.ID = primitive.NilObjectID
			a.CreatedAt, a.UpdatedAt = now, now
			if a.ID, err = insert(ctx, saga, c.store.Accused, "insert accused", a); err != nil {
				return nil, err
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// saveFollowUp replaces the incident's follow-up when one exists, else
// inserts it. A nil follow-up leaves the stored one untouched.
func (c *Controller) saveFollowUp(ctx context.Context, saga *Saga, followUp *models.FollowUp, incidentID primitive.ObjectID, now primitive.DateTime) (*models.FollowUp, error) {
	prior, err := c.store.FollowUps.FindOne(ctx, bson.M{"hecho_id": incidentID})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("loading follow-up: %w", err)
	}
	if followUp == nil {
		return prior, nil
	}

	f := *followUp
	f.IncidentID = incidentID
	if prior != nil {
		f.ID = prior.ID
		f.CreatedAt, f.UpdatedAt = prior.CreatedAt, now
		return &f, replace(ctx, saga, c.store.FollowUps, "replace follow-up", f.ID, f, prior)
	}

	f.ID = primitive.NilObjectID
	f.CreatedAt, f.UpdatedAt = now, now
	if f.ID, err = insert(ctx, saga, c.store.FollowUps, "insert follow-up", f); err != nil {
		return nil, err
	}
	return &f, nil
}
