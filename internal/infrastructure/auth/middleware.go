package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/honeynil/storefront-api/internal/infrastructure/observability"
	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/pkg/requestid"
	"go.uber.org/zap"
)

// ErrorWriter renders a pipeline rejection.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err *Error)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WriteJSONError is the default ErrorWriter.
func WriteJSONError(w http.ResponseWriter, _ *http.Request, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status())
	_ = json.NewEncoder(w).Encode(errorResponse{Status: "fail", Message: err.Message()})
}

type Option func(*Middleware)

func WithErrorWriter(fn ErrorWriter) Option {
	return func(m *Middleware) {
		if fn != nil {
			m.writeError = fn
		}
	}
}

// Middleware runs the authentication pipeline in front of protected
// handlers: bearer extraction, token verification, principal resolution,
// role check, then the principal is attached to the request context.
type Middleware struct {
	verifier   Verifier
	resolver   Resolver
	writeError ErrorWriter
	logger     *zap.Logger
}

func NewMiddleware(verifier Verifier, resolver Resolver, logger *zap.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		verifier:   verifier,
		resolver:   resolver,
		writeError: WriteJSONError,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes the pipeline against header and returns the principal and the
// last stage reached. Every stage short-circuits on failure, so the verifier
// is never called without a token and the store never without valid claims.
func (m *Middleware) Run(ctx context.Context, header http.Header, set RoleSet) (*models.User, Stage, error) {
	stage := StageUnauthenticated

	token, ok := BearerToken(header)
	if !ok {
		return nil, stage, newError(KindNoCredential, nil)
	}
	stage = StageTokenExtracted

	claims, err := m.verifier.Verify(ctx, token)
	if err != nil {
		return nil, stage, asError(err)
	}
	if claims == nil {
		return nil, stage, newError(KindVerificationUnknown, nil)
	}
	stage = StageTokenVerified

	user, err := m.resolver.Resolve(ctx, claims.UserID)
	if err != nil {
		return nil, stage, asError(err)
	}
	stage = StagePrincipalResolved

	if err := Authorize(set, user); err != nil {
		return nil, stage, err
	}
	return user, StageAuthorized, nil
}

// Authenticate admits any active principal.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return m.Protect()(next)
}

// Protect authenticates the request and, when roles are given, restricts it
// to principals holding one of them.
func (m *Middleware) Protect(roles ...models.Role) func(http.Handler) http.Handler {
	set := NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, stage, err := m.Run(r.Context(), r.Header, set)
			if err != nil {
				m.reject(w, r, stage, asError(err))
				return
			}
			m.dispatch(w, r, next, user)
		})
	}
}

// RestrictTo is a standalone role gate for handlers already behind
// Authenticate. A request without a principal in its context is rejected as
// unauthenticated.
func (m *Middleware) RestrictTo(roles ...models.Role) func(http.Handler) http.Handler {
	set := NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := PrincipalFromContext(r.Context())
			if !ok {
				m.logger.Error("role gate reached without a principal",
					zap.String("request_id", requestid.FromContext(r.Context())),
					zap.String("path", r.URL.Path))
				m.reject(w, r, StageUnauthenticated, newError(KindNoCredential, nil))
				return
			}
			if err := Authorize(set, user); err != nil {
				m.reject(w, r, StagePrincipalResolved, asError(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) dispatch(w http.ResponseWriter, r *http.Request, next http.Handler, user *models.User) {
	observability.AuthDecisions.WithLabelValues("allowed", "none").Inc()
	m.logger.Debug("request authorized",
		zap.String("request_id", requestid.FromContext(r.Context())),
		zap.Int32("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Stringer("stage", StageDispatched))
	next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, stage Stage, err *Error) {
	observability.AuthDecisions.WithLabelValues("rejected", err.Kind.String()).Inc()

	fields := []zap.Field{
		zap.String("request_id", requestid.FromContext(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Stringer("stage", stage),
		zap.Stringer("reason", err.Kind),
	}
	if err.Err != nil {
		fields = append(fields, zap.Error(err.Err))
	}
	if err.Kind == KindVerificationUnknown {
		m.logger.Error("authentication failed", fields...)
	} else {
		m.logger.Info("request rejected", fields...)
	}

	m.writeError(w, r, err)
}
