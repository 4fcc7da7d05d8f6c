package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumine/pkg/domain"
	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/requestcontext"
)

type stubResolver struct {
	actor domain.Actor
	err   error
	seen  string
}

func (s *stubResolver) Resolve(_ context.Context, token string) (domain.Actor, error) {
	s.seen = token
	return s.actor, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAPIToken(t *testing.T) {
	mw := RequireAPIToken("s3cret", discardLogger())(okHandler())

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sync", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sync", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("missing header rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sync", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unconfigured token rejects every request", func(t *testing.T) {
		unset := RequireAPIToken("", discardLogger())(okHandler())
		for _, header := range []string{"", "Bearer ", "Bearer anything"} {
			req := httptest.NewRequest(http.MethodGet, "/sync", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			unset.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
			assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
		}
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("stores resolved actor", func(t *testing.T) {
		resolver := &stubResolver{actor: domain.Actor{UserID: "u-1", Role: domain.RoleTriage, Source: domain.SourceJWT}}
		var got domain.Actor
		h := Authenticate(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = requestcontext.Actor(r.Context())
		}))

		req := httptest.NewRequest(http.MethodPost, "/intake/triage", nil)
		req.Header.Set(HeaderUserJWT, " token-abc ")
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "token-abc", resolver.seen)
		assert.Equal(t, "u-1", got.UserID)
	})

	t.Run("resolver error is written", func(t *testing.T) {
		resolver := &stubResolver{err: dErrors.New(dErrors.CodeForbidden, "profile inactive")}
		w := httptest.NewRecorder()
		Authenticate(resolver, discardLogger())(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "FORBIDDEN_ROLE")
	})
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole(discardLogger(), domain.RoleAdmin, domain.RoleTriage)(okHandler())

	serve := func(actor domain.Actor) int {
		req := httptest.NewRequest(http.MethodPost, "/intake/triage", nil)
		if !actor.IsZero() {
			req = req.WithContext(requestcontext.WithActor(req.Context(), actor))
		}
		w := httptest.NewRecorder()
		gate.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(domain.Actor{UserID: "a", Role: domain.RoleTriage, Source: domain.SourceJWT}))
	assert.Equal(t, http.StatusNoContent, serve(domain.SystemActor(domain.SourceSystem)))
	assert.Equal(t, http.StatusForbidden, serve(domain.Actor{UserID: "b", Role: domain.RoleEducator, Source: domain.SourceJWT}))
	assert.Equal(t, http.StatusUnauthorized, serve(domain.Actor{}))
}
