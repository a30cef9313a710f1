package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/databases/dbtest"
	"github.com/rvi-ar/casos-api/models"
)

func TestCreateMember(t *testing.T) {
	ctx := context.Background()
	members := databases.NewMemberDatabase(dbtest.New())

	m, err := createMember(ctx, members, " Ana@Example.org ", "Ana", "una-clave-larga", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", m.Email)
	assert.False(t, m.ID.IsZero())

	stored, err := members.FindOne(ctx, bson.M{"email": "ana@example.org"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("una-clave-larga")))

	_, err = createMember(ctx, members, "ana@example.org", "Otra", "una-clave-larga", time.Now())
	assert.ErrorIs(t, err, errMemberExists)
}

func TestCreateMember_Rejects(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New()
	members := databases.NewMemberDatabase(db)

	_, err := createMember(ctx, members, "sin-arroba", "", "una-clave-larga", time.Now())
	assert.Error(t, err)

	_, err = createMember(ctx, members, "ana@example.org", "", "corta", time.Now())
	assert.ErrorContains(t, err, "at least")
	assert.Zero(t, db.Len("miembros"))

	db.FailOn("miembros", "findOne", errors.New("mongo down"))
	_, err = createMember(ctx, members, "ana@example.org", "", "una-clave-larga", time.Now())
	assert.ErrorContains(t, err, "checking existing member")
}

func TestSetMemberPassword(t *testing.T) {
	ctx := context.Background()
	members := databases.NewMemberDatabase(dbtest.New())
	_, err := createMember(ctx, members, "ana@example.org", "Ana", "una-clave-larga", time.Now())
	require.NoError(t, err)

	require.NoError(t, setMemberPassword(ctx, members, "ANA@example.org", "otra-clave-larga"))
	stored, err := members.FindOne(ctx, bson.M{"email": "ana@example.org"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("otra-clave-larga")))

	assert.ErrorIs(t, setMemberPassword(ctx, members, "nadie@example.org", "otra-clave-larga"), errMemberNotFound)
}

func TestWelcomeMessage(t *testing.T) {
	m := &models.Member{Email: "ana@example.org", Name: "Ana <b>"}
	msg := welcomeMessage(m, "https://casos.example.org/")

	assert.Equal(t, []string{"ana@example.org"}, msg.To)
	assert.Contains(t, msg.Text, "Hola Ana <b>,")
	assert.Contains(t, msg.Text, "https://casos.example.org con tu")
	assert.Contains(t, msg.HTML, "Hola Ana &lt;b&gt;,")
	assert.NotContains(t, msg.HTML, "<b>,")
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["anniversaries"])
	assert.True(t, names["member"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
