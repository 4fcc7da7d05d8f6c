package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumine/internal/enrollment"
	dErrors "lumine/pkg/domain-errors"
)

func body(t *testing.T, v map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func validPreRegistration() map[string]any {
	return map[string]any{
		"nomeCrianca":        "  Ana   Souza ",
		"dataNascimento":     "2017-04-09",
		"nomeResponsavel":    "Maria Souza",
		"telefonePrincipal":  "(11) 98888-7777",
		"bairro":             "Centro",
		"escola":             "EMEF Azul",
		"turnoEscolar":       "Manhã",
		"referralSource":     "cras",
		"schoolCommuteAlone": "não",
		"consentimentoLgpd":  true,
	}
}

func TestDecodePreRegistration(t *testing.T) {
	t.Run("legacy keys and tokens are normalised", func(t *testing.T) {
		p, err := DecodePreRegistration(body(t, validPreRegistration()))
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza", p.IndividualName)
		assert.Equal(t, "manha", p.SchoolShift)
		assert.Equal(t, "CRAS", p.ReferralSource)
		assert.Equal(t, "nao", p.SchoolCommuteAlone)
		assert.True(t, p.DataConsent)
	})

	t.Run("honeypot rejects", func(t *testing.T) {
		payload := validPreRegistration()
		payload["website"] = "http://spam.example"
		_, err := DecodePreRegistration(body(t, payload))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload))
	})

	cases := map[string]func(map[string]any){
		"bad phone":        func(m map[string]any) { m["telefonePrincipal"] = "abc" },
		"bad birth date":   func(m map[string]any) { m["dataNascimento"] = "09/04/2017" },
		"missing name":     func(m map[string]any) { delete(m, "nomeCrianca") },
		"unknown shift":    func(m map[string]any) { m["turnoEscolar"] = "noite" },
		"unknown referral": func(m map[string]any) { m["referralSource"] = "radio" },
		"consent not bool": func(m map[string]any) { m["consentimentoLgpd"] = "maybe" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			payload := validPreRegistration()
			mutate(payload)
			_, err := DecodePreRegistration(body(t, payload))
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload), "got %v", err)
		})
	}

	t.Run("not an object", func(t *testing.T) {
		_, err := DecodePreRegistration([]byte(`[1,2]`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload))
	})
}

func TestDecodeTriage(t *testing.T) {
	t.Run("legacy result token", func(t *testing.T) {
		tr, err := DecodeTriage(body(t, map[string]any{
			"preCadastroId": "6f1c1a52-35a4-4b8d-9d93-0d0f0b7cc0a1",
			"resultado":     "lista_espera",
			"priority":      "Média",
		}))
		require.NoError(t, err)
		assert.Equal(t, enrollment.StatusWaitlisted, tr.Result)
		assert.Equal(t, "media", tr.Priority)
	})

	t.Run("enrolled is not a triage result", func(t *testing.T) {
		_, err := DecodeTriage(body(t, map[string]any{
			"preRegistrationId": "6f1c1a52-35a4-4b8d-9d93-0d0f0b7cc0a1",
			"result":            "enrolled",
		}))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload))
	})

	t.Run("id must be a uuid", func(t *testing.T) {
		_, err := DecodeTriage(body(t, map[string]any{"preRegistrationId": "42", "result": "approved"}))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload))
	})
}

func validEnrollment() map[string]any {
	return map[string]any{
		"criancaId":         "ind-1",
		"startDate":         "2026-03-01",
		"participationDays": []any{"seg", "qua", "seg"},
		"authorizedPickup":  "Maria",
		"canLeaveAlone":     "nao",
		"termsAccepted":     true,
		"imageConsent":      "uso_interno",
		"documentsReceived": "Certidão Nascimento | comprovante residencia, certidao nascimento",
	}
}

func TestDecodeEnrollment(t *testing.T) {
	t.Run("normalises lists and tokens", func(t *testing.T) {
		e, err := DecodeEnrollment(body(t, validEnrollment()))
		require.NoError(t, err)
		assert.Equal(t, []string{"seg", "qua"}, e.ParticipationDays)
		assert.Equal(t, "interno", e.ImageConsent)
		assert.Equal(t, []string{"certidao_nascimento", "comprovante_residencia"}, e.Documents)
	})

	cases := map[string]func(map[string]any){
		"no days":             func(m map[string]any) { m["participationDays"] = []any{} },
		"unknown day":         func(m map[string]any) { m["participationDays"] = []any{"mon"} },
		"terms not accepted":  func(m map[string]any) { m["termsAccepted"] = false },
		"leave alone consent": func(m map[string]any) { m["canLeaveAlone"] = "sim" },
		"leave alone confirmation": func(m map[string]any) {
			m["canLeaveAlone"] = "sim"
			m["leaveAloneConsent"] = true
		},
		"bad image consent": func(m map[string]any) { m["imageConsent"] = "public" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			payload := validEnrollment()
			mutate(payload)
			_, err := DecodeEnrollment(body(t, payload))
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPayload), "got %v", err)
		})
	}

	t.Run("leave alone with consent and confirmation", func(t *testing.T) {
		payload := validEnrollment()
		payload["canLeaveAlone"] = "sim"
		payload["leaveAloneConsent"] = "sim"
		payload["leaveAloneConfirmation"] = "Assinado pela mãe"
		e, err := DecodeEnrollment(body(t, payload))
		require.NoError(t, err)
		assert.True(t, e.LeaveAloneConsent)
	})
}

func TestFingerprintNormalisesCaseAndWhitespace(t *testing.T) {
	a := Fingerprint("(11) 98888-7777", "2017-04-09", "Ana Souza")
	b := Fingerprint(" (11)  98888-7777", "2017-04-09", "ANA  SOUZA ")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Fingerprint("(11) 98888-7777", "2017-04-10", "Ana Souza"))
}

func TestASCIIToken(t *testing.T) {
	assert.Equal(t, "manha", ASCIIToken(" Manhã "))
	assert.Equal(t, "comunicacao", ASCIIToken("Comunicação"))
	assert.Equal(t, "", ImageConsent("Nenhum"))
}

func TestGuardianEnrichOnlyFillsBlanks(t *testing.T) {
	g := Guardian{Neighbourhood: "Centro"}
	assert.True(t, g.Enrich("11 9999-0000", "Vila Nova"))
	assert.Equal(t, "Centro", g.Neighbourhood)
	assert.Equal(t, "11 9999-0000", g.AlternatePhone)
	assert.False(t, g.Enrich("other", "other"))
}
