package caseform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/models"
)

// Load reads a case and everything reachable from it. The case, its victim
// and its incident must load; every other read degrades to an empty default
// and is only logged.
func (c *Controller) Load(ctx context.Context, caseID primitive.ObjectID) (*models.CaseForm, error) {
	cs, err := c.store.Cases.FindOne(ctx, byID(caseID))
	if err != nil {
		return nil, notFoundOr(err, ErrCaseNotFound, "loading case")
	}
	victim, err := c.store.Victims.FindOne(ctx, byID(cs.VictimID))
	if err != nil {
		return nil, notFoundOr(err, ErrCaseNotFound, "loading victim")
	}
	incident, err := c.store.Incidents.FindOne(ctx, byID(cs.IncidentID))
	if err != nil {
		return nil, notFoundOr(err, ErrCaseNotFound, "loading incident")
	}

	form := &models.CaseForm{
		CaseID:    cs.ID,
		Status:    cs.Status,
		Incident:  *incident,
		Accused:   []models.Accused{},
		Actors:    []models.Actor{},
		Resources: []models.Resource{},
	}

	for _, v := range c.siblingVictims(ctx, *victim, incident.ID) {
		form.Victims = append(form.Victims, models.VictimForm{
			Victim:    v,
			Resources: c.findResources(ctx, bson.M{"victima_id": v.ID}, "victimId", v.ID),
		})
	}
	form.Resources = c.findResources(ctx, bson.M{"hecho_id": incident.ID, "victima_id": nil}, "incidentId", incident.ID)

	followUp, err := c.store.FollowUps.FindOne(ctx, bson.M{"hecho_id": incident.ID})
	switch {
	case err == nil:
		form.FollowUp = followUp
	case !errors.Is(err, mongo.ErrNoDocuments):
		zap.S().Warnw("failed to load follow-up", "incidentId", incident.ID.Hex(), "error", err)
	}

	actors, err := c.store.Actors.Find(ctx, bson.M{"hecho_id": incident.ID})
	if err != nil {
		zap.S().Warnw("failed to load actors", "incidentId", incident.ID.Hex(), "error", err)
	} else if actors != nil {
		form.Actors = actors
	}

	accused, err := c.store.Accused.Find(ctx, bson.M{"hecho_id": incident.ID})
	if err != nil {
		zap.S().Warnw("failed to load accused", "incidentId", incident.ID.Hex(), "error", err)
	} else if accused != nil {
		form.Accused = accused
	}

	return form, nil
}

// siblingVictims returns every victim linked to the incident, ordered by
// creation time then id, so victims saved together keep their insertion
// order. On any failure only the case's own victim is returned.
func (c *Controller) siblingVictims(ctx context.Context, primary models.Victim, incidentID primitive.ObjectID) []models.Victim {
	fallback := []models.Victim{primary}

	cases, err := c.store.Cases.Find(ctx, bson.M{"hecho_id": incidentID})
	if err != nil {
		zap.S().Warnw("failed to load sibling cases", "incidentId", incidentID.Hex(), "error", err)
		return fallback
	}
	if len(cases) <= 1 {
		return fallback
	}

	ids := make([]primitive.ObjectID, 0, len(cases))
	seen := make(map[primitive.ObjectID]struct{}, len(cases))
	for _, cs := range cases {
		if _, ok := seen[cs.VictimID]; ok {
			continue
		}
		seen[cs.VictimID] = struct{}{}
		ids = append(ids, cs.VictimID)
	}

	victims, err := c.store.Victims.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		zap.S().Warnw("failed to load sibling victims", "incidentId", incidentID.Hex(), "error", err)
		return fallback
	}
	if len(victims) == 0 {
		return fallback
	}
	sort.SliceStable(victims, func(i, j int) bool {
		if victims[i].CreatedAt != victims[j].CreatedAt {
			return victims[i].CreatedAt < victims[j].CreatedAt
		}
		return bytes.Compare(victims[i].ID[:], victims[j].ID[:]) < 0
	})
	return victims
}

func (c *Controller) findResources(ctx context.Context, filter bson.M, key string, id primitive.ObjectID) []models.Resource {
	resources, err := c.store.Resources.Find(ctx, filter)
	if err != nil {
		zap.S().Warnw("failed to load resources", key, id.Hex(), "error", err)
		return []models.Resource{}
	}
	if resources == nil {
		return []models.Resource{}
	}
	return resources
}

func notFoundOr(err, notFound error, step string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return fmt.Errorf("%s: %w", step, err)
}
