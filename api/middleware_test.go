package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/rvi-ar/casos-api/api"
	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/databases/dbtest"
	"github.com/rvi-ar/casos-api/databases/mocks"
	"github.com/rvi-ar/casos-api/models"
	"github.com/rvi-ar/casos-api/notifier"
)

type recordingNotifier struct {
	sent []notifier.Message
}

func (r *recordingNotifier) Send(ctx context.Context, msg notifier.Message) error {
	r.sent = append(r.sent, msg)
	return nil
}

const testPassword = "clave-segura"

func testConfig() *config.Config {
	conf := config.Default()
	conf.BaseURL = "https://api.example.org"
	conf.Auth.JWTSecret = "test-secret"
	return conf
}

type gateFixture struct {
	gate   *api.Gate
	member models.Member
	mailer *recordingNotifier
	conf   *config.Config
	db     *dbtest.Database
}

func newGateFixture(t *testing.T, conf *config.Config, opts ...api.GateOption) gateFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db := dbtest.New()
	members := databases.NewMemberDatabase(db)
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	member := models.Member{Email: "ana@example.org", Name: "Ana", PasswordHash: string(hash)}
	member.ID, err = members.InsertOne(ctx, member)
	require.NoError(t, err)

	mailer := &recordingNotifier{}
	return gateFixture{
		gate:   api.NewGate(ctx, conf, members, mailer, opts...),
		member: member,
		mailer: mailer,
		conf:   conf,
		db:     db,
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(user.UserName()))
})

func protected(t *testing.T, g *api.Gate, token string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("GET", "/api/casos", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	g.Middleware(okHandler).ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, g *api.Gate, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("POST", "/api/auth/token", nil)
	require.NoError(t, err)
	req.SetBasicAuth(email, password)
	rr := httptest.NewRecorder()
	http.HandlerFunc(g.CreateToken).ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_DevBypass(t *testing.T) {
	conf := testConfig()
	conf.Auth.DevBypass = true
	f := newGateFixture(t, conf)

	rr := protected(t, f.gate, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "dev@localhost", rr.Body.String())
}

func TestMiddleware_RejectsWithoutSession(t *testing.T) {
	f := newGateFixture(t, testConfig())

	rr := protected(t, f.gate, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = protected(t, f.gate, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPasswordLoginAndLogout(t *testing.T) {
	f := newGateFixture(t, testConfig())

	rr := login(t, f.gate, "ANA@example.org ", testPassword)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp api.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, f.member.ID.Hex(), resp.MemberID)

	rr = protected(t, f.gate, resp.Token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ana@example.org", rr.Body.String())

	req, err := http.NewRequest("DELETE", "/api/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rr = httptest.NewRecorder()
	http.HandlerFunc(f.gate.RevokeToken).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = protected(t, f.gate, resp.Token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPasswordLogin_Rejected(t *testing.T) {
	f := newGateFixture(t, testConfig())

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ana@example.org", "otra"},
		{"unknown member", "nadie@example.org", testPassword},
		{"empty password", "ana@example.org", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := login(t, f.gate, tt.email, tt.password)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestRevokeToken_MissingHeader(t *testing.T) {
	f := newGateFixture(t, testConfig())
	req, err := http.NewRequest("DELETE", "/api/auth/logout", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	http.HandlerFunc(f.gate.RevokeToken).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func callback(t *testing.T, g *api.Gate, link string) *httptest.ResponseRecorder {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	req, err := http.NewRequest("GET", u.RequestURI(), nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	http.HandlerFunc(g.Callback).ServeHTTP(rr, req)
	return rr
}

func sessionFromRedirect(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	loc := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/#token="), loc)
	token, err := url.QueryUnescape(strings.TrimPrefix(loc, "/#token="))
	require.NoError(t, err)
	return token
}

func TestMagicLink_OneShot(t *testing.T) {
	f := newGateFixture(t, testConfig())

	link, err := f.gate.IssueMagicLink(f.member.ID, f.member.Email)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://api.example.org/api/auth/callback?access_token="))

	rr := callback(t, f.gate, link)
	require.Equal(t, http.StatusFound, rr.Code)
	token := sessionFromRedirect(t, rr)
	assert.Equal(t, http.StatusOK, protected(t, f.gate, token).Code)

	rr = callback(t, f.gate, link)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), api.MsgExpiredLink)
}

func TestMagicLink_Expired(t *testing.T) {
	conf := testConfig()
	past := time.Now().Add(-20 * time.Minute)
	issuer := newGateFixture(t, conf, api.WithClock(func() time.Time { return past }))
	link, err := issuer.gate.IssueMagicLink(issuer.member.ID, issuer.member.Email)
	require.NoError(t, err)

	verifier := api.NewGate(context.Background(), conf, databases.NewMemberDatabase(issuer.db), issuer.mailer)
	rr := callback(t, verifier, link)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), api.MsgExpiredLink)
}

func TestMagicLink_Invalid(t *testing.T) {
	f := newGateFixture(t, testConfig())

	other := testConfig()
	other.Auth.JWTSecret = "another-secret"
	forger := newGateFixture(t, other)
	forged, err := forger.gate.IssueMagicLink(f.member.ID, f.member.Email)
	require.NoError(t, err)

	tests := []struct {
		name string
		link string
	}{
		{"no token", "https://api.example.org/api/auth/callback"},
		{"garbage", "https://api.example.org/api/auth/callback?access_token=abc.def.ghi"},
		{"wrong signature", forged},
		{"unknown member", mustLink(t, f.gate, primitive.NewObjectID())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := callback(t, f.gate, tt.link)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), api.MsgExpiredLink)
		})
	}
}

func mustLink(t *testing.T, g *api.Gate, id primitive.ObjectID) string {
	t.Helper()
	link, err := g.IssueMagicLink(id, "x@example.org")
	require.NoError(t, err)
	return link
}

func TestMagicLink_CallbackTimeout(t *testing.T) {
	conf := testConfig()
	conf.Auth.CallbackTimeout = 50 * time.Millisecond

	db := &mocks.DatabaseHelper{}
	coll := &mocks.CollectionHelper{}
	sr := &mocks.SingleResultHelper{}
	db.On("Collection", "miembros").Return(coll)
	coll.On("FindOne", mock.Anything, mock.Anything).After(300 * time.Millisecond).Return(sr)
	sr.On("Decode", mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := api.NewGate(ctx, conf, databases.NewMemberDatabase(db), &recordingNotifier{})
	link, err := g.IssueMagicLink(primitive.NewObjectID(), "ana@example.org")
	require.NoError(t, err)

	start := time.Now()
	rr := callback(t, g, link)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestIssueMagicLink_NoSecret(t *testing.T) {
	conf := testConfig()
	conf.Auth.JWTSecret = ""
	f := newGateFixture(t, conf)
	_, err := f.gate.IssueMagicLink(f.member.ID, f.member.Email)
	assert.Error(t, err)
}

func requestLink(t *testing.T, g *api.Gate, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("POST", "/api/auth/enlace", strings.NewReader(body))
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	http.HandlerFunc(g.RequestMagicLink).ServeHTTP(rr, req)
	return rr
}

func TestRequestMagicLink(t *testing.T) {
	f := newGateFixture(t, testConfig())

	rr := requestLink(t, f.gate, `{"email": "Ana@Example.org"}`)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, []string{"ana@example.org"}, msg.To)
	assert.Contains(t, msg.Text, "https://api.example.org/api/auth/callback?access_token=")

	rr = requestLink(t, f.gate, `{"email": "nadie@example.org"}`)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Len(t, f.mailer.sent, 1)

	rr = requestLink(t, f.gate, `{"email": ""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = requestLink(t, f.gate, `{`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func state(t *testing.T, g *api.Gate, token string) api.StateResponse {
	t.Helper()
	req, err := http.NewRequest("GET", "/api/auth/estado", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	http.HandlerFunc(g.State).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp api.StateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestState(t *testing.T) {
	f := newGateFixture(t, testConfig())
	assert.Equal(t, api.StateReady, state(t, f.gate, "").State)

	rr := login(t, f.gate, "ana@example.org", testPassword)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp api.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	got := state(t, f.gate, resp.Token)
	assert.Equal(t, api.StateAuthenticated, got.State)
	assert.Equal(t, "ana@example.org", got.User)

	conf := testConfig()
	conf.Auth.DevBypass = true
	bypass := newGateFixture(t, conf)
	assert.Equal(t, api.StateAuthenticated, state(t, bypass.gate, "").State)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, api.CanTransition(api.StateChecking, api.StateProcessingToken))
	assert.True(t, api.CanTransition(api.StateProcessingToken, api.StateReady))
	assert.True(t, api.CanTransition(api.StateProcessingToken, api.StateAuthenticated))
	assert.True(t, api.CanTransition(api.StateChecking, api.StateAuthenticated))
	assert.False(t, api.CanTransition(api.StateReady, api.StateChecking))
	assert.False(t, api.CanTransition(api.StateAuthenticated, api.StateProcessingToken))
}
