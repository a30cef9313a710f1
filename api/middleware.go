package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/databases"
	"github.com/rvi-ar/casos-api/notifier"
)

// SessionTTL is how long an issued bearer token stays valid
const SessionTTL = 12 * time.Hour

// ErrInvalidCredentials is returned when an email/password pair does not
// match a member
var ErrInvalidCredentials = errors.New("credenciales inválidas")

// Gate guards the API. Members authenticate with their password (basic) or
// with a magic link, and receive a cached bearer token for later requests.
type Gate struct {
	conf          config.AuthConfig
	baseURL       string
	appRoot       string
	members       databases.MemberDatabase
	mailer        notifier.Notifier
	authenticator auth.Authenticator
	cache         store.Cache
	links         *linkLatch
	now           func() time.Time
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithClock replaces the gate's time source
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate sets up the go-guardian strategies. The token cache lives until
// ctx is cancelled.
func NewGate(ctx context.Context, conf *config.Config, members databases.MemberDatabase, mailer notifier.Notifier, opts ...GateOption) *Gate {
	g := &Gate{
		conf:          conf.Auth,
		baseURL:       strings.TrimSuffix(conf.BaseURL, "/"),
		appRoot:       conf.AppRoot,
		members:       members,
		mailer:        mailer,
		authenticator: auth.New(),
		cache:         store.NewFIFO(ctx, SessionTTL),
		links:         newLinkLatch(),
		now:           time.Now,
	}
	if g.appRoot == "" {
		g.appRoot = "/"
	}
	for _, opt := range opts {
		opt(g)
	}

	basicStrategy := basic.New(g.ValidateMember, g.cache)
	tokenStrategy := bearer.New(bearer.NoOpAuthenticate, g.cache)
	g.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return g
}

type userContextKey struct{}

// UserFromContext returns the member authenticated for the request, if any
func UserFromContext(ctx context.Context) (auth.Info, bool) {
	info, ok := ctx.Value(userContextKey{}).(auth.Info)
	return info, ok
}

// devUser is the identity attached to requests when the bypass is enabled
var devUser = auth.NewDefaultUser("dev@localhost", "dev", nil, nil)

// Middleware rejects requests without a valid session. With the development
// bypass every request passes as devUser.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.conf.DevBypass {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey{}, devUser)))
			return
		}
		user, err := g.authenticator.Authenticate(r)
		if err != nil {
			config.ErrorStatus("No autorizado", http.StatusUnauthorized, w, err)
			return
		}
		zap.S().Debugw("authenticated request", "user", user.UserName(), "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey{}, user)))
	})
}

// ValidateMember checks basic credentials against the members collection
func (g *Gate) ValidateMember(ctx context.Context, r *http.Request, userName, password string) (auth.Info, error) {
	email := strings.ToLower(strings.TrimSpace(userName))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	member, err := g.members.FindOne(ctx, bson.M{"email": email})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading member: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return auth.NewDefaultUser(member.Email, member.ID.Hex(), nil, nil), nil
}

// TokenResponse is returned when a session token is issued
type TokenResponse struct {
	Token     string    `json:"token"`
	MemberID  string    `json:"_id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateToken exchanges basic credentials for a bearer token
func (g *Gate) CreateToken(w http.ResponseWriter, r *http.Request) {
	user, err := g.authenticator.Strategy(basic.StrategyKey).Authenticate(r.Context(), r)
	if err != nil {
		config.ErrorStatus("Email o contraseña incorrectos", http.StatusUnauthorized, w, err)
		return
	}
	token, err := g.issueToken(r, user)
	if err != nil {
		config.ErrorStatus("No se pudo iniciar la sesión", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(TokenResponse{Token: token, MemberID: user.ID(), ExpiresAt: g.now().Add(SessionTTL)})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (g *Gate) issueToken(r *http.Request, user auth.Info) (string, error) {
	token := uuid.New().String()
	if err := auth.Append(g.authenticator.Strategy(bearer.CachedStrategyKey), token, user, r); err != nil {
		return "", err
	}
	return token, nil
}

// RevokeToken ends the session carried in the Authorization header
func (g *Gate) RevokeToken(w http.ResponseWriter, r *http.Request) {
	reqToken := r.Header.Get("Authorization")
	splitToken := strings.Split(reqToken, "Bearer ")
	if len(splitToken) != 2 || strings.TrimSpace(splitToken[1]) == "" {
		config.ErrorStatus("Falta el token de sesión", http.StatusBadRequest, w, nil)
		return
	}
	if err := auth.Revoke(g.authenticator.Strategy(bearer.CachedStrategyKey), strings.TrimSpace(splitToken[1]), r); err != nil {
		config.ErrorStatus("No se pudo cerrar la sesión", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "Sesión cerrada"}`))
}
