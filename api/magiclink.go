package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/config"
	"github.com/rvi-ar/casos-api/notifier"
	templates "github.com/rvi-ar/casos-api/templates/html"
)

// GateState is the authentication state reported to the client
type GateState string

// Gate states
const (
	StateChecking        GateState = "checking"
	StateProcessingToken GateState = "processing_token"
	StateReady           GateState = "ready"
	StateAuthenticated   GateState = "authenticated"
)

var gateTransitions = map[GateState][]GateState{
	StateChecking:        {StateProcessingToken, StateReady, StateAuthenticated},
	StateProcessingToken: {StateAuthenticated, StateReady},
	StateReady:           {StateProcessingToken, StateAuthenticated},
	StateAuthenticated:   {StateReady},
}

// CanTransition reports whether the gate may move from one state to another
func CanTransition(from, to GateState) bool {
	for _, s := range gateTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MsgExpiredLink is shown when a magic link cannot be used
const MsgExpiredLink = "El enlace expiró o no es válido"

// ErrExpiredLink is returned for magic links that are expired, malformed,
// already used or that did not resolve in time
var ErrExpiredLink = errors.New("magic link expired or invalid")

const magicLinkAudience = "casos-api-login"

type magicClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// linkLatch lets each magic link establish a session once
type linkLatch struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func newLinkLatch() *linkLatch {
	return &linkLatch{used: make(map[string]time.Time)}
}

// claim marks jti as used. It returns false when it already was. Entries
// are kept until the token they belong to expires.
func (l *linkLatch) claim(jti string, expires, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, exp := range l.used {
		if now.After(exp) {
			delete(l.used, k)
		}
	}
	if _, ok := l.used[jti]; ok {
		return false
	}
	l.used[jti] = expires
	return true
}

// StateResponse is the body of GET /api/auth/estado
type StateResponse struct {
	State GateState `json:"state"`
	User  string    `json:"user,omitempty"`
}

// State reports whether the request carries a valid session
func (g *Gate) State(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{State: StateChecking}
	if g.conf.DevBypass {
		resp = StateResponse{State: StateAuthenticated, User: devUser.UserName()}
	} else if user, err := g.authenticator.Authenticate(r); err == nil {
		resp = StateResponse{State: StateAuthenticated, User: user.UserName()}
	} else {
		resp.State = StateReady
	}
	writeJSON(w, http.StatusOK, resp)
}

// IssueMagicLink signs a single use login token for the member with email
// and returns the callback URL carrying it
func (g *Gate) IssueMagicLink(memberID primitive.ObjectID, email string) (string, error) {
	if g.conf.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := g.now()
	claims := magicClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   memberID.Hex(),
			Audience:  jwt.ClaimStrings{magicLinkAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.conf.MagicLinkTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.conf.JWTSecret))
	if err != nil {
		return "", err
	}
	return g.baseURL + "/api/auth/callback?access_token=" + url.QueryEscape(signed), nil
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

// RequestMagicLink mails a login link to a registered member. The response
// is the same whether or not the email belongs to a member.
func (g *Gate) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("Cuerpo de la solicitud inválido", http.StatusBadRequest, w, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		config.ErrorStatus("El email es obligatorio", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := WithQueryTimeout(r.Context())
	defer cancel()

	member, err := g.members.FindOne(ctx, bson.M{"email": email})
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		zap.S().Infow("magic link requested for unknown email", "email", email)
	case err != nil:
		config.ErrorStatus("No se pudo enviar el enlace", http.StatusInternalServerError, w, err)
		return
	default:
		link, err := g.IssueMagicLink(member.ID, member.Email)
		if err != nil {
			config.ErrorStatus("No se pudo enviar el enlace", http.StatusInternalServerError, w, err)
			return
		}
		htmlBody, text := templates.RenderMagicLinkEmail(member.Name, link, int(g.conf.MagicLinkTTL.Minutes()))
		msg := notifier.Message{
			To:      []string{member.Email},
			ToName:  member.Name,
			Subject: templates.MagicLinkSubject,
			HTML:    htmlBody,
			Text:    text,
		}
		if err := g.mailer.Send(ctx, msg); err != nil {
			config.ErrorStatus("No se pudo enviar el enlace", http.StatusInternalServerError, w, err)
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Si el email está registrado, te enviamos un enlace de acceso",
	})
}

type callbackResult struct {
	token string
	err   error
}

// Callback turns a magic link into a session. It waits at most
// CallbackTimeout for the token to verify and the member to load, then
// redirects to the application root with the session token in the fragment.
func (g *Gate) Callback(w http.ResponseWriter, r *http.Request) {
	state := StateChecking
	move := func(to GateState) {
		if !CanTransition(state, to) {
			zap.S().Warnw("unexpected gate transition", "from", state, "to", to)
		}
		state = to
	}

	raw := r.URL.Query().Get("access_token")
	if raw == "" {
		move(StateReady)
		config.ErrorStatus(MsgExpiredLink, http.StatusUnauthorized, w, ErrExpiredLink)
		return
	}
	move(StateProcessingToken)

	ctx, cancel := context.WithTimeout(r.Context(), g.conf.CallbackTimeout)
	defer cancel()

	done := make(chan callbackResult, 1)
	go func() {
		token, err := g.materialize(ctx, r, raw)
		done <- callbackResult{token: token, err: err}
	}()

	var res callbackResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = fmt.Errorf("%w: %v", ErrExpiredLink, ctx.Err())
	}
	if res.err != nil {
		move(StateReady)
		config.ErrorStatus(MsgExpiredLink, http.StatusUnauthorized, w, res.err)
		return
	}

	move(StateAuthenticated)
	http.Redirect(w, r, g.appRoot+"#token="+url.QueryEscape(res.token), http.StatusFound)
}

// materialize verifies the link, loads its member and issues a bearer token
func (g *Gate) materialize(ctx context.Context, r *http.Request, raw string) (string, error) {
	claims := &magicClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(g.conf.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(magicLinkAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExpiredLink, err)
	}
	if claims.ID == "" {
		return "", fmt.Errorf("%w: missing jti", ErrExpiredLink)
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("%w: bad subject", ErrExpiredLink)
	}
	member, err := g.members.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return "", fmt.Errorf("%w: loading member: %v", ErrExpiredLink, err)
	}

	if !g.links.claim(claims.ID, claims.ExpiresAt.Time, g.now()) {
		return "", fmt.Errorf("%w: already used", ErrExpiredLink)
	}
	return g.issueToken(r, auth.NewDefaultUser(member.Email, member.ID.Hex(), nil, nil))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
