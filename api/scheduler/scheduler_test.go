package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/databases/dbtest"
	"github.com/rvi-ar/casos-api/models"
	"github.com/rvi-ar/casos-api/notifier"
	templates "github.com/rvi-ar/casos-api/templates/html"
)

type recordingNotifier struct {
	sent []notifier.Message
	err  error
}

func (r *recordingNotifier) Send(ctx context.Context, msg notifier.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

var today = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

func TestFindAnniversaries(t *testing.T) {
	ana := models.Victim{ID: primitive.NewObjectID(), FullName: "Ana", Surname: "Paz", BirthDate: "1990-03-14"}
	luis := models.Victim{ID: primitive.NewObjectID(), FullName: "Luis", BirthDate: "1985-07-01"}
	nadie := models.Victim{ID: primitive.NewObjectID(), FullName: "Nadie", BirthDate: "no es fecha"}
	incident := models.Incident{ID: primitive.NewObjectID(), Date: "2015-03-10", DeathDate: "2015-03-14"}
	cases := []models.Case{
		{ID: primitive.NewObjectID(), VictimID: luis.ID, IncidentID: incident.ID},
	}

	entries := FindAnniversaries([]models.Victim{luis, ana, nadie}, []models.Incident{incident}, cases, today, nil)

	require.Len(t, entries, 2)
	assert.Equal(t, "Ana Paz", entries[0].VictimName)
	assert.Equal(t, templates.AnniversaryBirth, entries[0].Kind)
	assert.Equal(t, 35, entries[0].Years)
	assert.Equal(t, "Luis", entries[1].VictimName)
	assert.Equal(t, templates.AnniversaryDeath, entries[1].Kind)
	assert.Equal(t, 10, entries[1].Years)
}

func TestFindAnniversaries_UsesUTCDay(t *testing.T) {
	v := models.Victim{ID: primitive.NewObjectID(), FullName: "Eva", BirthDate: "2000-03-15"}
	buenosAires := time.FixedZone("ART", -3*60*60)
	// 22:00 on the 14th in Buenos Aires is already the 15th in UTC
	now := time.Date(2025, time.March, 14, 22, 0, 0, 0, buenosAires)

	entries := FindAnniversaries([]models.Victim{v}, nil, nil, now, nil)
	require.Len(t, entries, 1)
	assert.Equal(t, 25, entries[0].Years)
}

func TestFindAnniversaries_FutureDateIgnored(t *testing.T) {
	v := models.Victim{ID: primitive.NewObjectID(), FullName: "Eva", BirthDate: "2030-03-14"}
	assert.Empty(t, FindAnniversaries([]models.Victim{v}, nil, nil, today, nil))
}

func newTestScheduler(t *testing.T, mailer notifier.Notifier, recipients []string) (*Scheduler, *dbtest.Database) {
	t.Helper()
	db := dbtest.New()
	conf := config.Default()
	conf.BaseURL = "https://casos.example.org/"
	conf.Mail.NotifyEmails = recipients
	s := NewScheduler(conf, NewStore(db), mailer)
	s.now = func() time.Time { return today }
	return s, db
}

func TestRunOnce_SendsDigest(t *testing.T) {
	mailer := &recordingNotifier{}
	s, _ := newTestScheduler(t, mailer, []string{"equipo@example.org"})
	ctx := context.Background()

	victimID, err := s.store.Victims.InsertOne(ctx, models.Victim{FullName: "Ana", BirthDate: "1990-03-14"})
	require.NoError(t, err)
	incidentID, err := s.store.Incidents.InsertOne(ctx, models.Incident{Date: "2020-01-01"})
	require.NoError(t, err)
	caseID, err := s.store.Cases.InsertOne(ctx, models.Case{VictimID: victimID, IncidentID: incidentID})
	require.NoError(t, err)

	n, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, []string{"equipo@example.org"}, msg.To)
	assert.Equal(t, "Aniversarios del 14/03: 1 caso", msg.Subject)
	assert.Contains(t, msg.Text, "Ana")
	assert.Contains(t, msg.Text, "https://casos.example.org/api/casos/"+caseID.Hex()+"/formulario")
}

func TestRunOnce_RunsTwiceSendsTwice(t *testing.T) {
	mailer := &recordingNotifier{}
	s, _ := newTestScheduler(t, mailer, []string{"equipo@example.org"})
	ctx := context.Background()
	_, err := s.store.Victims.InsertOne(ctx, models.Victim{FullName: "Ana", BirthDate: "1990-03-14"})
	require.NoError(t, err)

	_, err = s.RunOnce(ctx)
	require.NoError(t, err)
	_, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 2)
}

func TestRunOnce_NothingToSend(t *testing.T) {
	mailer := &recordingNotifier{}
	s, _ := newTestScheduler(t, mailer, []string{"equipo@example.org"})
	_, err := s.store.Victims.InsertOne(context.Background(), models.Victim{FullName: "Ana", BirthDate: "1990-05-01"})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, mailer.sent)
}

func TestRunOnce_NoRecipients(t *testing.T) {
	mailer := &recordingNotifier{}
	s, _ := newTestScheduler(t, mailer, nil)
	_, err := s.store.Victims.InsertOne(context.Background(), models.Victim{FullName: "Ana", BirthDate: "1990-03-14"})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, mailer.sent)
}

func TestRunOnce_Errors(t *testing.T) {
	t.Run("victims query", func(t *testing.T) {
		s, db := newTestScheduler(t, &recordingNotifier{}, []string{"a@example.org"})
		db.FailOn("victimas", "find", errors.New("mongo down"))
		_, err := s.RunOnce(context.Background())
		assert.ErrorContains(t, err, "loading victims")
	})
	t.Run("send", func(t *testing.T) {
		s, _ := newTestScheduler(t, &recordingNotifier{err: errors.New("sendgrid 500")}, []string{"a@example.org"})
		_, err := s.store.Victims.InsertOne(context.Background(), models.Victim{FullName: "Ana", BirthDate: "1990-03-14"})
		require.NoError(t, err)
		_, err = s.RunOnce(context.Background())
		assert.ErrorContains(t, err, "sending anniversary digest")
	})
}

func TestStart_InvalidSchedule(t *testing.T) {
	s, _ := newTestScheduler(t, &recordingNotifier{}, nil)
	s.schedule = "every tuesday"
	assert.Error(t, s.Start())
}
