package auth

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/honeynil/storefront-api/internal/models"
	"github.com/honeynil/storefront-api/internal/repository"
	pkgerrors "github.com/honeynil/storefront-api/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PrincipalStore is the part of the user repository the resolver needs.
type PrincipalStore interface {
	FindByID(ctx context.Context, id int32, proj repository.Projection) (*models.User, error)
}

// Resolver loads the principal named by verified claims.
type Resolver interface {
	Resolve(ctx context.Context, id int32) (*models.User, error)
}

const DefaultLookupTimeout = 2 * time.Second

type PrincipalResolver struct {
	store   PrincipalStore
	timeout time.Duration
}

var _ Resolver = (*PrincipalResolver)(nil)

func NewPrincipalResolver(store PrincipalStore, timeout time.Duration) *PrincipalResolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &PrincipalResolver{store: store, timeout: timeout}
}

// Resolve fetches the user with its active flag and rejects missing or
// deactivated accounts. The lookup outlives client cancellation but not the
// resolver's timeout.
func (r *PrincipalResolver) Resolve(ctx context.Context, id int32) (*models.User, error) {
	ctx, span := otel.Tracer("auth").Start(ctx, "PrincipalResolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(id)))

	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	user, err := r.store.FindByID(lookupCtx, id, repository.WithHidden(repository.FieldActive))
	switch {
	case stderrors.Is(err, pkgerrors.ErrUserNotFound):
		span.SetStatus(codes.Error, "principal not found")
		return nil, newError(KindPrincipalNotFound, err)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "principal lookup failed")
		return nil, newError(KindVerificationUnknown, err)
	case user == nil:
		span.SetStatus(codes.Error, "principal not found")
		return nil, newError(KindPrincipalNotFound, nil)
	case !user.IsActive():
		span.SetStatus(codes.Error, "principal inactive")
		return nil, newError(KindPrincipalInactive, nil)
	}
	return user, nil
}
