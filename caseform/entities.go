package caseform

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/models"
)

// Validation messages of the simple creation routes
const (
	MsgVictimNameRequired   = "El nombre de la víctima es obligatorio"
	MsgIncidentDateRequired = "La fecha del hecho es obligatoria"
)

// ValidateCaseRequest checks a POST /api/casos body before anything is written
func ValidateCaseRequest(req *models.CreateCaseRequest) error {
	if strings.TrimSpace(req.Victim.Name) == "" {
		return invalid(MsgVictimNameRequired)
	}
	if strings.TrimSpace(req.Incident.Date) == "" {
		return invalid(MsgIncidentDateRequired)
	}
	return nil
}

// FormFromRequest maps the simple case body onto the aggregate form
func FormFromRequest(req *models.CreateCaseRequest) *models.CaseForm {
	form := &models.CaseForm{
		Status:   strings.TrimSpace(req.Incident.Status),
		Victims:  []models.VictimForm{{Victim: req.Victim.ToVictim()}},
		Incident: req.Incident.ToIncident(),
	}
	for _, a := range req.Accused {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		form.Accused = append(form.Accused, models.Accused{
			Name:             strings.TrimSpace(a.Name),
			Alias:            a.Alias,
			ProceduralStatus: a.Status,
			Court:            a.Court,
			Charges:          a.Charges,
		})
	}
	if req.FollowUp != nil {
		form.FollowUp = &models.FollowUp{
			AssignedMember: req.FollowUp.AssignedMember,
			FamilyContact:  req.FollowUp.FamilyContact,
			Notes:          req.FollowUp.Notes,
		}
	}
	for _, r := range req.Resources {
		form.Resources = append(form.Resources, models.Resource{
			Type:        r.Type,
			Title:       r.Title,
			URL:         r.URL,
			Source:      r.Source,
			Description: r.Description,
			Date:        r.Date,
		})
	}
	return form
}

// CreateFromRequest validates and saves the simple case body. Validation
// runs before any write so a rejected body leaves nothing behind.
func (c *Controller) CreateFromRequest(ctx context.Context, req *models.CreateCaseRequest) (*models.CaseForm, error) {
	if err := ValidateCaseRequest(req); err != nil {
		return nil, err
	}
	return c.Create(ctx, FormFromRequest(req))
}

// CreateVictim inserts a standalone victim
func (c *Controller) CreateVictim(ctx context.Context, req models.VictimRequest) (*models.Victim, error) {
	victim := req.ToVictim()
	if victim.FullName == "" {
		return nil, invalid(MsgVictimNameRequired)
	}
	now := c.timestamp()
	victim.CreatedAt, victim.UpdatedAt = now, now

	id, err := c.store.Victims.InsertOne(ctx, victim)
	if err != nil {
		return nil, err
	}
	victim.ID = id
	c.publish(EventVictimCreated, primitive.NilObjectID, primitive.NilObjectID)
	return &victim, nil
}

// CreateIncident inserts a standalone incident
func (c *Controller) CreateIncident(ctx context.Context, req models.IncidentRequest) (*models.Incident, error) {
	incident := req.ToIncident()
	if incident.Date == "" {
		return nil, invalid(MsgIncidentDateRequired)
	}
	now := c.timestamp()
	incident.CreatedAt, incident.UpdatedAt = now, now

	id, err := c.store.Incidents.InsertOne(ctx, incident)
	if err != nil {
		return nil, err
	}
	incident.ID = id
	c.publish(EventIncidentCreated, primitive.NilObjectID, id)
	return &incident, nil
}

// DeleteVictim deletes a victim and the case rows pointing at it. The case
// rows go first; if the victim delete then fails they are put back.
func (c *Controller) DeleteVictim(ctx context.Context, id primitive.ObjectID) error {
	if _, err := c.store.Victims.FindOne(ctx, byID(id)); err != nil {
		return notFoundOr(err, ErrVictimNotFound, "loading victim")
	}
	return c.deleteWithCases(ctx, "delete victim", bson.M{"victima_id": id}, func(ctx context.Context) error {
		if _, err := c.store.Victims.DeleteOne(ctx, byID(id)); err != nil {
			return err
		}
		c.publish(EventVictimDeleted, primitive.NilObjectID, primitive.NilObjectID)
		return nil
	})
}

// DeleteIncident deletes an incident and the case rows pointing at it
func (c *Controller) DeleteIncident(ctx context.Context, id primitive.ObjectID) error {
	if _, err := c.store.Incidents.FindOne(ctx, byID(id)); err != nil {
		return notFoundOr(err, ErrIncidentNotFound, "loading incident")
	}
	return c.deleteWithCases(ctx, "delete incident", bson.M{"hecho_id": id}, func(ctx context.Context) error {
		if _, err := c.store.Incidents.DeleteOne(ctx, byID(id)); err != nil {
			return err
		}
		c.publish(EventIncidentDeleted, primitive.NilObjectID, id)
		return nil
	})
}

func (c *Controller) deleteWithCases(ctx context.Context, name string, casesFilter bson.M, deleteRow func(context.Context) error) (err error) {
	saga := NewSaga(name)
	defer func() {
		if err != nil {
			saga.Rollback(ctx)
		}
	}()

	cases, err := c.store.Cases.Find(ctx, casesFilter)
	if err != nil {
		return err
	}
	for _, cs := range cases {
		cs := cs
		if err := remove(ctx, saga, c.store.Cases, "delete case", cs.ID, &cs); err != nil {
			return err
		}
	}
	if err := deleteRow(ctx); err != nil {
		return err
	}
	zap.S().Infow("row deleted", "op", name, "cases", len(cases))
	return nil
}
