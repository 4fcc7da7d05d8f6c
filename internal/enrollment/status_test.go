package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/testutil"
)

func TestCanTransitionFullProduct(t *testing.T) {
	blocked := map[[2]Status]bool{
		{StatusEnrolled, StatusInTriage}:   true,
		{StatusEnrolled, StatusApproved}:   true,
		{StatusEnrolled, StatusWaitlisted}: true,
	}

	for _, before := range All {
		for _, after := range All {
			want := !blocked[[2]Status{before, after}]
			assert.Equalf(t, want, CanTransition(before, after), "%s -> %s", before, after)
		}
	}
}

func TestAssertTransition(t *testing.T) {
	t.Run("regression carries context", func(t *testing.T) {
		err := AssertTransition("child-9", StatusEnrolled, StatusInTriage)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTransitionNotAllowed))

		de, ok := dErrors.From(err)
		require.True(t, ok)
		assert.Equal(t, "child-9", de.Meta["resourceId"])
		assert.Equal(t, "enrolled", de.Meta["before"])
		assert.Equal(t, "in_triage", de.Meta["after"])
		assert.Equal(t, "child-9", de.Meta["childId"])
		assert.Equal(t, "enrolled", de.Meta["statusBefore"])
		assert.Equal(t, "in_triage", de.Meta["statusAfter"])
	})

	t.Run("leaving the program is allowed", func(t *testing.T) {
		assert.NoError(t, AssertTransition("child-9", StatusEnrolled, StatusWithdrawn))
		assert.NoError(t, AssertTransition("child-9", StatusEnrolled, StatusInactive))
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"", StatusNone, true},
		{"  Matriculado ", StatusEnrolled, true},
		{"em_triagem", StatusInTriage, true},
		{"lista_espera", StatusWaitlisted, true},
		{"desistente", StatusWithdrawn, true},
		{"inativo", StatusInactive, true},
		{"approved", StatusApproved, true},
		{"graduated", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEnrollmentLifecycle(t *testing.T) {
	testutil.Given(t, "a new individual", func(t *testing.T) {
		testutil.When(t, "it moves through triage to enrollment", func(t *testing.T) {
			path := []Status{StatusNone, StatusInTriage, StatusWaitlisted, StatusApproved, StatusEnrolled}
			for i := 1; i < len(path); i++ {
				require.NoError(t, AssertTransition("child-1", path[i-1], path[i]))
			}
			testutil.Then(t, "a late triage result cannot demote it", func(t *testing.T) {
				err := AssertTransition("child-1", StatusEnrolled, StatusWaitlisted)
				assert.True(t, dErrors.IsConflict(err))
			})
			testutil.And(t, "re-saving the same status is a no-op", func(t *testing.T) {
				assert.NoError(t, AssertTransition("child-1", StatusEnrolled, StatusEnrolled))
			})
		})
	})
}
