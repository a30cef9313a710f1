package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/models"
	"github.com/rvi-ar/casos-api/notifier"
	templates "github.com/rvi-ar/casos-api/templates/html"
)

// Store is the data the anniversary job reads
type Store struct {
	Victims   databases.VictimDatabase
	Incidents databases.IncidentDatabase
	Cases     databases.CaseDatabase
}

// NewStore builds a Store over db
func NewStore(db databases.DatabaseHelper) Store {
	return Store{
		Victims:   databases.NewVictimDatabase(db),
		Incidents: databases.NewIncidentDatabase(db),
		Cases:     databases.NewCaseDatabase(db),
	}
}

// Scheduler runs the daily anniversary digest
type Scheduler struct {
	cron       *cron.Cron
	store      Store
	mailer     notifier.Notifier
	schedule   string
	recipients []string
	baseURL    string
	now        func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(conf *config.Config, store Store, mailer notifier.Notifier) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		store:      store,
		mailer:     mailer,
		schedule:   conf.Mail.AnniversarySchedule,
		recipients: conf.Mail.NotifyEmails,
		baseURL:    strings.TrimSuffix(conf.BaseURL, "/"),
		now:        time.Now,
	}
}

// Start registers the job and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.runAnniversaries)
	if err != nil {
		return fmt.Errorf("registering anniversary job %q: %w", s.schedule, err)
	}
	s.cron.Start()
	zap.S().Infow("anniversary scheduler started", "schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("anniversary scheduler stopped")
}

func (s *Scheduler) runAnniversaries() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		zap.S().Errorw("anniversary job failed", "error", err)
	}
}

// RunOnce collects today's anniversaries and mails the digest. It returns
// the number of anniversaries found. Nothing is sent when there are none.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()

	victims, err := s.store.Victims.Find(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("loading victims: %w", err)
	}
	incidents, err := s.store.Incidents.Find(ctx, bson.M{"fecha_muerte": bson.M{"$exists": true}})
	if err != nil {
		return 0, fmt.Errorf("loading incidents: %w", err)
	}
	cases, err := s.store.Cases.Find(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("loading cases: %w", err)
	}

	entries := FindAnniversaries(victims, incidents, cases, now, s.caseURL)
	if len(entries) == 0 {
		zap.S().Infow("no anniversaries today", "day", now.Format("2006-01-02"))
		return 0, nil
	}
	if len(s.recipients) == 0 {
		zap.S().Warnw("anniversaries found but no recipients configured", "count", len(entries))
		return len(entries), nil
	}

	day := now.Format("02/01")
	htmlContent, plainText := templates.RenderAnniversaryEmail(day, entries)
	err = s.mailer.Send(ctx, notifier.Message{
		To:      s.recipients,
		Subject: templates.AnniversarySubject(day, len(entries)),
		HTML:    htmlContent,
		Text:    plainText,
	})
	if err != nil {
		return len(entries), fmt.Errorf("sending anniversary digest: %w", err)
	}
	zap.S().Infow("anniversary digest sent", "count", len(entries), "recipients", len(s.recipients))
	return len(entries), nil
}

func (s *Scheduler) caseURL(caseID primitive.ObjectID) string {
	if s.baseURL == "" || caseID.IsZero() {
		return ""
	}
	return s.baseURL + "/api/casos/" + caseID.Hex() + "/formulario"
}

// FindAnniversaries returns the victims whose birth date, or the death date
// recorded on their incident, falls on now's month and day (UTC). Entries
// are ordered by victim name then kind.
func FindAnniversaries(victims []models.Victim, incidents []models.Incident, cases []models.Case, now time.Time, caseURL func(primitive.ObjectID) string) []templates.AnniversaryEntry {
	now = now.UTC()
	if caseURL == nil {
		caseURL = func(primitive.ObjectID) string { return "" }
	}

	incidentByID := make(map[primitive.ObjectID]models.Incident, len(incidents))
	for _, inc := range incidents {
		incidentByID[inc.ID] = inc
	}
	caseByVictim := make(map[primitive.ObjectID]models.Case, len(cases))
	for _, c := range cases {
		if _, ok := caseByVictim[c.VictimID]; !ok {
			caseByVictim[c.VictimID] = c
		}
	}

	var entries []templates.AnniversaryEntry
	for _, v := range victims {
		c, hasCase := caseByVictim[v.ID]

		if years, ok := anniversary(v.BirthDate, now); ok {
			entries = append(entries, templates.AnniversaryEntry{
				VictimName: v.DisplayName(),
				Kind:       templates.AnniversaryBirth,
				Date:       v.BirthDate,
				Years:      years,
				CaseURL:    caseURL(c.ID),
			})
		}

		if !hasCase {
			continue
		}
		inc, ok := incidentByID[c.IncidentID]
		if !ok {
			continue
		}
		if years, ok := anniversary(inc.DeathDate, now); ok {
			entries = append(entries, templates.AnniversaryEntry{
				VictimName: v.DisplayName(),
				Kind:       templates.AnniversaryDeath,
				Date:       inc.DeathDate,
				Years:      years,
				CaseURL:    caseURL(c.ID),
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].VictimName != entries[j].VictimName {
			return entries[i].VictimName < entries[j].VictimName
		}
		return entries[i].Kind < entries[j].Kind
	})
	return entries
}

// anniversary reports whether date (YYYY-MM-DD) shares now's month and day,
// and how many years have passed. Future dates never match.
func anniversary(date string, now time.Time) (int, bool) {
	if len(date) < 10 {
		return 0, false
	}
	d, err := time.Parse("2006-01-02", date[:10])
	if err != nil {
		return 0, false
	}
	if d.Month() != now.Month() || d.Day() != now.Day() || d.Year() > now.Year() {
		return 0, false
	}
	return now.Year() - d.Year(), true
}
