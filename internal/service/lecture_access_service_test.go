package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-booking-api/internal/models"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

func TestResolveAuthorizationSingleTeacher(t *testing.T) {
	h := newHarness(t)
	h.w.addLecture("L1", "T1", false)

	cases := []struct {
		actorID    string
		role       models.UserRole
		authorized bool
		reason     string
	}{
		{"T1", models.RoleTeacher, true, ""},
		{"A1", models.RoleAdmin, true, ""},
		{"T2", models.RoleTeacher, false, reasonNotAuthorized},
		{"S1", models.RoleStudent, false, reasonRoleDenied},
	}
	for _, tc := range cases {
		decision, err := h.access.ResolveAuthorization(context.Background(), tc.actorID, tc.role, "L1")
		require.NoError(t, err)
		assert.Equal(t, tc.authorized, decision.Authorized, tc.actorID)
		assert.Equal(t, tc.reason, decision.Reason, tc.actorID)
	}
}

func TestResolveAuthorizationMultiTeacher(t *testing.T) {
	h := newHarness(t)
	h.w.addLecture("L1", "T1", true, "T2", "T3")

	for _, id := range []string{"T1", "T2", "T3"} {
		decision, err := h.access.ResolveAuthorization(context.Background(), id, models.RoleTeacher, "L1")
		require.NoError(t, err)
		assert.True(t, decision.Authorized, id)
	}

	decision, err := h.access.ResolveAuthorization(context.Background(), "T4", models.RoleTeacher, "L1")
	require.NoError(t, err)
	assert.False(t, decision.Authorized)
	assert.True(t, errors.Is(decision.Err(), appErrors.ErrForbidden))
}

func TestResolveAuthorizationIgnoresAssignmentsOnSingleTeacherLecture(t *testing.T) {
	h := newHarness(t)
	h.w.addLecture("L1", "T1", false, "T2")

	decision, err := h.access.ResolveAuthorization(context.Background(), "T2", models.RoleTeacher, "L1")
	require.NoError(t, err)
	assert.False(t, decision.Authorized)
}

func TestResolveAuthorizationMissingLecture(t *testing.T) {
	h := newHarness(t)
	h.w.addLecture("L1", "T1", false).IsDeleted = true

	_, err := h.access.ResolveAuthorization(context.Background(), "A1", models.RoleAdmin, "L1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = h.access.ResolveAuthorization(context.Background(), "A1", models.RoleAdmin, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestResolveAuthorizationStorageFault(t *testing.T) {
	h := newHarness(t)
	h.w.failWith = errors.New("connection reset")

	_, err := h.access.ResolveAuthorization(context.Background(), "T1", models.RoleTeacher, "L1")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
