package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"lumine/internal/enrollment"
	dErrors "lumine/pkg/domain-errors"
	pstrings "lumine/pkg/platform/strings"
)

var (
	phonePattern   = regexp.MustCompile(`^[+()\d\s-]{8,20}$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

var (
	referralOptions = []string{"igreja", "escola", "CRAS", "indicacao", "redes_sociais", "outro"}
	shiftOptions    = []string{"manha", "tarde", "integral"}
	yesNoOptions    = []string{"sim", "nao"}
	priorityOptions = []string{"alta", "media", "baixa"}
	weekdayOptions  = []string{"seg", "ter", "qua", "qui", "sex", "sab", "dom"}
	imageOptions    = []string{"", "interno", "comunicacao"}
	triageResults   = []enrollment.Status{
		enrollment.StatusInTriage,
		enrollment.StatusApproved,
		enrollment.StatusWaitlisted,
		enrollment.StatusRejected,
	}
)

// fields reads a JSON object whose keys may use current or legacy names.
type fields map[string]any

func parseObject(body []byte) (fields, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, invalid("", "request body must be a JSON object")
	}
	return fields(obj), nil
}

func (f fields) raw(keys ...string) any {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (f fields) text(max int, keys ...string) string {
	switch v := f.raw(keys...).(type) {
	case string:
		return pstrings.Clean(v, max)
	case json.Number:
		return pstrings.Clean(v.String(), max)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func (f fields) required(field string, max int, keys ...string) (string, error) {
	v := f.text(max, keys...)
	if v == "" {
		return "", invalid(field, field+" is required")
	}
	return v, nil
}

func (f fields) boolean(keys ...string) (bool, bool) {
	v := f.raw(keys...)
	if n, ok := v.(json.Number); ok {
		fv, err := n.Float64()
		if err != nil {
			return false, false
		}
		v = fv
	}
	return Bool(v)
}

// list accepts an array of strings or a "|" or "," joined string.
func (f fields) list(keys ...string) ([]string, bool) {
	switch v := f.raw(keys...).(type) {
	case nil:
		return nil, true
	case string:
		return pstrings.SplitList(v, "|,"), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func oneOf(field, value string, options []string) error {
	if !slices.Contains(options, value) {
		return invalid(field, fmt.Sprintf("%s must be one of %s", field, strings.Join(options, ", ")))
	}
	return nil
}

func invalid(field, msg string) *dErrors.Error {
	err := dErrors.New(dErrors.CodeInvalidPayload, msg)
	if field != "" {
		err = err.WithMeta(map[string]any{"field": field})
	}
	return err
}

// DecodePreRegistration validates a first-contact form. A non-empty honeypot
// field "website" rejects the submission outright.
func DecodePreRegistration(body []byte) (PreRegistration, error) {
	f, err := parseObject(body)
	if err != nil {
		return PreRegistration{}, err
	}
	if f.text(200, "website") != "" {
		return PreRegistration{}, dErrors.New(dErrors.CodeInvalidPayload, "invalid request")
	}

	var p PreRegistration
	if p.IndividualName, err = f.required("individualName", 200, "individualName", "nomeCrianca"); err != nil {
		return PreRegistration{}, err
	}
	p.BirthDate = f.text(10, "birthDate", "dataNascimento")
	if !isoDatePattern.MatchString(p.BirthDate) {
		return PreRegistration{}, invalid("birthDate", "birthDate must be YYYY-MM-DD")
	}
	if p.GuardianName, err = f.required("guardianName", 200, "guardianName", "nomeResponsavel"); err != nil {
		return PreRegistration{}, err
	}
	p.PrimaryPhone = f.text(24, "primaryPhone", "telefonePrincipal")
	if !phonePattern.MatchString(p.PrimaryPhone) {
		return PreRegistration{}, invalid("primaryPhone", "primaryPhone is invalid")
	}
	if p.Neighbourhood, err = f.required("neighbourhood", 120, "neighbourhood", "bairro"); err != nil {
		return PreRegistration{}, err
	}
	if p.School, err = f.required("school", 180, "school", "escola"); err != nil {
		return PreRegistration{}, err
	}

	p.SchoolShift = SchoolShift(f.text(0, "schoolShift", "turnoEscolar"))
	if err := oneOf("schoolShift", p.SchoolShift, shiftOptions); err != nil {
		return PreRegistration{}, err
	}
	p.ReferralSource = ReferralSource(f.text(0, "referralSource"))
	if err := oneOf("referralSource", p.ReferralSource, referralOptions); err != nil {
		return PreRegistration{}, err
	}
	p.SchoolCommuteAlone = YesNo(f.text(0, "schoolCommuteAlone"))
	if err := oneOf("schoolCommuteAlone", p.SchoolCommuteAlone, yesNoOptions); err != nil {
		return PreRegistration{}, err
	}

	consent, ok := f.boolean("dataConsent", "consentimentoLgpd")
	if !ok {
		return PreRegistration{}, invalid("dataConsent", "dataConsent must be a boolean")
	}
	p.DataConsent = consent

	p.ConsentText = f.text(400, "consentText", "consentimentoTexto")
	p.AlternatePhone = f.text(24, "alternatePhone", "telefoneAlternativo")
	p.Grade = f.text(60, "grade", "serie")
	return p, nil
}

// DecodeTriage validates a triage decision.
func DecodeTriage(body []byte) (Triage, error) {
	f, err := parseObject(body)
	if err != nil {
		return Triage{}, err
	}

	var t Triage
	t.PreRegistrationID, err = uuid.Parse(f.text(64, "preRegistrationId", "preCadastroId"))
	if err != nil {
		return Triage{}, invalid("preRegistrationId", "preRegistrationId must be a UUID")
	}

	result, ok := enrollment.Parse(f.text(40, "result", "resultado"))
	if !ok || !slices.Contains(triageResults, result) {
		return Triage{}, invalid("result", "result must be one of in_triage, approved, waitlisted, rejected")
	}
	t.Result = result

	if v := f.text(0, "healthCareNeeded"); v != "" {
		t.HealthCareNeeded = YesNo(v)
		if err := oneOf("healthCareNeeded", t.HealthCareNeeded, yesNoOptions); err != nil {
			return Triage{}, err
		}
	}
	if v := f.text(0, "dietaryRestriction"); v != "" {
		t.DietaryRestriction = YesNo(v)
		if err := oneOf("dietaryRestriction", t.DietaryRestriction, yesNoOptions); err != nil {
			return Triage{}, err
		}
	}
	if v := f.text(0, "priority"); v != "" {
		t.Priority = Priority(v)
		if err := oneOf("priority", t.Priority, priorityOptions); err != nil {
			return Triage{}, err
		}
	}
	t.HealthNotes = f.text(800, "healthNotes")
	t.SpecialNeeds = f.text(800, "specialNeeds")
	t.TriageNotes = f.text(1000, "triageNotes")
	t.PriorityReason = f.text(500, "priorityReason")
	return t, nil
}

// DecodeEnrollment validates an enrollment confirmation.
func DecodeEnrollment(body []byte) (Enrollment, error) {
	f, err := parseObject(body)
	if err != nil {
		return Enrollment{}, err
	}

	var e Enrollment
	if e.IndividualID, err = f.required("individualId", 64, "individualId", "criancaId"); err != nil {
		return Enrollment{}, err
	}
	e.StartDate = f.text(10, "startDate")
	if !isoDatePattern.MatchString(e.StartDate) {
		return Enrollment{}, invalid("startDate", "startDate must be YYYY-MM-DD")
	}

	days, ok := f.list("participationDays")
	if !ok {
		return Enrollment{}, invalid("participationDays", "participationDays must be a list")
	}
	for _, d := range days {
		day := ASCIIToken(d)
		if err := oneOf("participationDays", day, weekdayOptions); err != nil {
			return Enrollment{}, err
		}
		if !slices.Contains(e.ParticipationDays, day) {
			e.ParticipationDays = append(e.ParticipationDays, day)
		}
	}
	if len(e.ParticipationDays) == 0 {
		return Enrollment{}, invalid("participationDays", "at least one participation day is required")
	}

	if e.AuthorizedPickup, err = f.required("authorizedPickup", 300, "authorizedPickup"); err != nil {
		return Enrollment{}, err
	}

	e.CanLeaveAlone = YesNo(f.text(0, "canLeaveAlone"))
	if err := oneOf("canLeaveAlone", e.CanLeaveAlone, yesNoOptions); err != nil {
		return Enrollment{}, err
	}
	if e.CanLeaveAlone == "sim" {
		consent, _ := f.boolean("leaveAloneConsent")
		if !consent {
			return Enrollment{}, invalid("leaveAloneConsent", "leaveAloneConsent is required when canLeaveAlone is sim")
		}
		e.LeaveAloneConsent = true
		e.LeaveAloneConfirmation = f.text(500, "leaveAloneConfirmation")
		if e.LeaveAloneConfirmation == "" {
			return Enrollment{}, invalid("leaveAloneConfirmation", "leaveAloneConfirmation is required when canLeaveAlone is sim")
		}
	}

	if accepted, _ := f.boolean("termsAccepted"); !accepted {
		return Enrollment{}, invalid("termsAccepted", "termsAccepted is required")
	}
	e.TermsAccepted = true

	e.ClassGroup = ClassGroup(f.text(100, "classGroup"))
	e.ImageConsent = ImageConsent(f.text(0, "imageConsent"))
	if err := oneOf("imageConsent", e.ImageConsent, imageOptions); err != nil {
		return Enrollment{}, err
	}

	docs, ok := f.list("documentsReceived", "documents")
	if !ok {
		return Enrollment{}, invalid("documentsReceived", "documentsReceived must be a list")
	}
	e.Documents = Documents(docs)
	e.Observations = f.text(1200, "observations", "initialObservations")
	return e, nil
}
