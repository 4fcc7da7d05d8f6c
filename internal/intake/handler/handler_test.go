package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumine/internal/dataset/revision"
	"lumine/internal/dataset/store/counter"
	"lumine/internal/dataset/store/snapshot"
	"lumine/internal/intake/service"
	"lumine/internal/intake/store"
	"lumine/pkg/domain"
	"lumine/pkg/platform/tx"
	"lumine/pkg/testutil"
)

func newRouter(t *testing.T, actor domain.Actor) http.Handler {
	t.Helper()
	counters := counter.NewInMemoryCounter()
	svc, err := service.New(
		store.NewInMemoryStore(),
		snapshot.NewInMemoryStore(),
		revision.NewStore(counters),
		revision.NewAllocator(counters, revision.DefaultPrefix),
		tx.NewMemoryRunner(),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(testutil.ActorMiddleware(actor))
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func post(t *testing.T, router http.Handler, path, body string) (int, testutil.Envelope) {
	t.Helper()
	rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, body))
	return rec.Code, testutil.DecodeEnvelope(t, rec)
}

const preRegistration = `{
	"nomeCrianca": "Ana Souza",
	"dataNascimento": "2017-04-09",
	"nomeResponsavel": "Maria Souza",
	"telefonePrincipal": "(11) 98888-7777",
	"bairro": "Centro",
	"escola": "EMEF Azul",
	"turnoEscolar": "manha",
	"referralSource": "escola",
	"schoolCommuteAlone": "nao",
	"consentimentoLgpd": true
}`

func TestPreRegistrationTwiceIsDuplicated(t *testing.T) {
	router := newRouter(t, domain.SystemActor(domain.SourceSystem))

	code, env := post(t, router, "/intake/pre-registration", preRegistration)
	require.Equal(t, http.StatusOK, code)
	var first struct {
		EntityID   string `json:"entityId"`
		PublicID   string `json:"publicId"`
		Duplicated bool   `json:"duplicated"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.False(t, first.Duplicated)
	assert.Equal(t, "CRI-0001", first.PublicID)

	code, env = post(t, router, "/intake/pre-registration", preRegistration)
	require.Equal(t, http.StatusOK, code)
	var second struct {
		EntityID   string `json:"entityId"`
		Duplicated bool   `json:"duplicated"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.True(t, second.Duplicated)
	assert.Equal(t, first.EntityID, second.EntityID)
}

func TestHoneypotRejected(t *testing.T) {
	router := newRouter(t, domain.SystemActor(domain.SourceSystem))
	body := strings.Replace(preRegistration, `"bairro"`, `"website": "spam", "bairro"`, 1)

	code, env := post(t, router, "/intake/pre-registration", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_PAYLOAD", env.Error)
}

func TestTriageRoleGate(t *testing.T) {
	router := newRouter(t, domain.Actor{UserID: "u-1", Role: domain.RoleEducator, Source: domain.SourceJWT})

	code, env := post(t, router, "/intake/triage",
		`{"preRegistrationId": "6f1c1a52-35a4-4b8d-9d93-0d0f0b7cc0a1", "result": "approved"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN_ROLE", env.Error)
}

func TestTriageUnknownPreRegistration(t *testing.T) {
	router := newRouter(t, domain.Actor{UserID: "u-2", Role: domain.RoleTriage, Source: domain.SourceJWT})

	code, env := post(t, router, "/intake/triage",
		`{"preCadastroId": "6f1c1a52-35a4-4b8d-9d93-0d0f0b7cc0a1", "resultado": "aprovado"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error)
}

func TestEnrollmentFlow(t *testing.T) {
	router := newRouter(t, domain.Actor{UserID: "u-3", Role: domain.RoleAdmin, Source: domain.SourceJWT})

	_, env := post(t, router, "/intake/pre-registration", preRegistration)
	var created struct {
		EntityID string `json:"entityId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, env := post(t, router, "/intake/enrollment", `{
		"individualId": "`+created.EntityID+`",
		"startDate": "2026-03-01",
		"participationDays": "seg|qua",
		"authorizedPickup": "Maria",
		"canLeaveAlone": "nao",
		"termsAccepted": true
	}`)
	require.Equal(t, http.StatusOK, code)
	var advanced struct {
		StatusBefore string `json:"statusBefore"`
		StatusAfter  string `json:"statusAfter"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &advanced))
	assert.Equal(t, "in_triage", advanced.StatusBefore)
	assert.Equal(t, "enrolled", advanced.StatusAfter)
}

func TestStageMiddlewareRunsBeforeRoleGate(t *testing.T) {
	var seen []string
	stage := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := chi.NewRouter()
	r.Use(testutil.ActorMiddleware(domain.Actor{UserID: "u-9", Role: domain.RoleEducator, Source: domain.SourceJWT}))
	New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), WithStageMiddleware(stage)).Register(r)

	code, _ := post(t, r, "/intake/triage", `{}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, []string{StageTriage}, seen)
}
