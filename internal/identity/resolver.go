// Package identity resolves the acting staff member for a request from the
// optional X-User-JWT header and the internal profile table.
package identity

import (
	"context"
	"errors"
	"log/slog"

	"lumine/internal/identity/models"
	"lumine/pkg/domain"
	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/platform/sentinel"
)

type ProfileStore interface {
	FindProfile(ctx context.Context, userID string) (models.Profile, error)
}

type Validator interface {
	Validate(token string) (string, error)
}

// Resolver implements the auth middleware's ActorResolver.
type Resolver struct {
	enforce   bool
	validator Validator
	profiles  ProfileStore
	logger    *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithEnforcement turns on token and profile checks. Without it every request
// runs as the system actor.
func WithEnforcement(validator Validator, profiles ProfileStore) Option {
	return func(r *Resolver) {
		r.enforce = true
		r.validator = validator
		r.profiles = profiles
	}
}

func NewResolver(opts ...Option) (*Resolver, error) {
	r := &Resolver{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.enforce && (r.validator == nil || r.profiles == nil) {
		return nil, errors.New("validator and profile store are required when enforcing roles")
	}
	return r, nil
}

func (r *Resolver) Resolve(ctx context.Context, userToken string) (domain.Actor, error) {
	if !r.enforce {
		if userToken != "" {
			return domain.SystemActor(domain.SourceJWTOptional), nil
		}
		return domain.SystemActor(domain.SourceSystem), nil
	}

	if userToken == "" {
		return domain.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "internal user token is required")
	}
	userID, err := r.validator.Validate(userToken)
	if err != nil {
		return domain.Actor{}, err
	}

	profile, err := r.profiles.FindProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Actor{}, dErrors.New(dErrors.CodeForbidden, "internal profile is missing or inactive")
		}
		return domain.Actor{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load internal profile")
	}
	if !profile.Active {
		r.logger.WarnContext(ctx, "inactive profile attempted access", "user_id", userID)
		return domain.Actor{}, dErrors.New(dErrors.CodeForbidden, "internal profile is missing or inactive")
	}

	return domain.Actor{UserID: userID, Role: profile.Role, Source: domain.SourceJWT}, nil
}
