package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-booking-api/internal/dto"
	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestLectureCreate(t *testing.T) {
	cases := []struct {
		name  string
		actor models.Actor
		req   dto.CreateLectureRequest
		want  *appErrors.Error
	}{
		{name: "teacher for self", actor: teacher, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T1")}},
		{name: "admin multi", actor: admin, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T1"), IsMultiTeacher: true}},
		{name: "short title", actor: teacher, req: dto.CreateLectureRequest{Title: "  Go ", TeacherID: strPtr("T1")}, want: appErrors.ErrValidation},
		{name: "teacher without id", actor: teacher, req: dto.CreateLectureRequest{Title: "Go 101"}, want: appErrors.ErrPolicy},
		{name: "teacher for another", actor: teacher, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T2")}, want: appErrors.ErrPolicy},
		{name: "teacher multi", actor: teacher, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T1"), IsMultiTeacher: true}, want: appErrors.ErrPolicy},
		{name: "teacher without profile", actor: models.Actor{UserID: "T3", Role: models.RoleTeacher}, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T3")}, want: appErrors.ErrPolicy},
		{name: "admin without id", actor: admin, req: dto.CreateLectureRequest{Title: "Go 101"}, want: appErrors.ErrPolicy},
		{name: "admin unknown teacher", actor: admin, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T9")}, want: appErrors.ErrNotFound},
		{name: "admin student as teacher", actor: admin, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("U1")}, want: appErrors.ErrPolicy},
		{name: "admin teacher without profile", actor: admin, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T3")}, want: appErrors.ErrPolicy},
		{name: "student", actor: student, req: dto.CreateLectureRequest{Title: "Go 101", TeacherID: strPtr("T1")}, want: appErrors.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.w.addTeacher("T1")
			h.w.addUser("T3", models.RoleTeacher)
			h.w.addUser("U1", models.RoleStudent)

			lecture, err := h.lectures.Create(context.Background(), tc.actor, tc.req)
			if tc.want != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.want), "got %v", err)
				assert.Empty(t, h.w.lectures)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, lecture.ID)
			assert.Equal(t, models.ApprovalPending, lecture.ApprovalStatus)
			assert.Equal(t, "T1", lecture.TeacherID)
			assert.Equal(t, tc.req.IsMultiTeacher, lecture.IsMultiTeacher)
			assert.Contains(t, h.w.lectures, lecture.ID)
		})
	}
}

func TestLectureList(t *testing.T) {
	h := newHarness(t)
	h.w.addLecture("L1", "T1", false)
	approved := h.w.addLecture("L2", "T1", false)
	approved.ApprovalStatus = models.ApprovalApproved

	items, page, err := h.lectures.List(context.Background(), dto.LectureListQuery{ApprovalStatus: "APPROVED"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "L2", items[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)

	_, _, err = h.lectures.List(context.Background(), dto.LectureListQuery{ApprovalStatus: "archived"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLectureGet(t *testing.T) {
	h := newHarness(t)
	h.w.addTeacher("T1")
	h.w.addLecture("L1", "T1", false)

	detail, err := h.lectures.Get(context.Background(), "L1")
	require.NoError(t, err)
	assert.Equal(t, "Teacher T1", detail.TeacherName)

	_, err = h.lectures.Get(context.Background(), "L9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLectureChangeTeacherSingle(t *testing.T) {
	h := newHarness(t)
	h.w.addTeacher("T1")
	h.w.addTeacher("T2")
	h.w.addLecture("L1", "T1", false)

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
	lecture, err := h.lectures.ChangeTeacher(context.Background(), admin, "L1", dto.ChangeLectureTeacherRequest{NewTeacherID: "T2"})
	require.NoError(t, err)
	assert.Equal(t, "T2", lecture.TeacherID)
	assert.Equal(t, "T2", h.w.lectures["L1"].TeacherID)
	assert.Empty(t, h.w.assignments["L1"])
	assert.Equal(t, []string{repository.LectureScope("L1")}, h.locks.scopes)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestLectureChangeTeacherMultiSwapsAssignment(t *testing.T) {
	h := newHarness(t)
	repo := newCacheRepoStub()
	h.lectures.cache = NewCacheService(repo, nil, 0, nil, true)
	h.w.addTeacher("T1")
	h.w.addTeacher("T2")
	h.w.addLecture("L1", "T1", true, "T2")

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()
	_, err := h.lectures.ChangeTeacher(context.Background(), admin, "L1", dto.ChangeLectureTeacherRequest{NewTeacherID: "T2"})
	require.NoError(t, err)
	assert.Equal(t, "T2", h.w.lectures["L1"].TeacherID)
	assert.Equal(t, map[string]bool{"T1": true}, h.w.assignments["L1"])
	assert.Equal(t, []string{lectureTeachersKey("L1")}, repo.deleted)
}

func TestLectureChangeTeacherRejections(t *testing.T) {
	cases := []struct {
		name  string
		actor models.Actor
		multi bool
		next  string
		want  *appErrors.Error
	}{
		{name: "same teacher", actor: admin, next: "T1", want: appErrors.ErrPolicy},
		{name: "multi unassigned", actor: admin, multi: true, next: "T3", want: appErrors.ErrPolicy},
		{name: "unknown teacher", actor: admin, next: "T9", want: appErrors.ErrNotFound},
		{name: "student as teacher", actor: admin, next: "U1", want: appErrors.ErrPolicy},
		{name: "unrelated teacher actor", actor: models.Actor{UserID: "T3", Role: models.RoleTeacher}, next: "T3", want: appErrors.ErrForbidden},
		{name: "student actor", actor: student, next: "T3", want: appErrors.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.w.addTeacher("T1")
			h.w.addTeacher("T3")
			h.w.addUser("U1", models.RoleStudent)
			h.w.addLecture("L1", "T1", tc.multi)

			h.mock.ExpectBegin()
			h.mock.ExpectRollback()
			_, err := h.lectures.ChangeTeacher(context.Background(), tc.actor, "L1", dto.ChangeLectureTeacherRequest{NewTeacherID: tc.next})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, "T1", h.w.lectures["L1"].TeacherID)
			require.NoError(t, h.mock.ExpectationsWereMet())
		})
	}
}

func TestLectureAddTeacher(t *testing.T) {
	cases := []struct {
		name     string
		multi    bool
		assigned []string
		add      string
		want     *appErrors.Error
	}{
		{name: "adds", multi: true, add: "T2"},
		{name: "single teacher lecture", add: "T2", want: appErrors.ErrPolicy},
		{name: "primary", multi: true, add: "T1", want: appErrors.ErrPolicy},
		{name: "already assigned", multi: true, assigned: []string{"T2"}, add: "T2", want: appErrors.ErrConflict},
		{name: "not a teacher", multi: true, add: "U1", want: appErrors.ErrPolicy},
		{name: "unknown", multi: true, add: "T9", want: appErrors.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.w.addTeacher("T1")
			h.w.addTeacher("T2")
			h.w.addUser("U1", models.RoleStudent)
			h.w.addLecture("L1", "T1", tc.multi, tc.assigned...)

			h.mock.ExpectBegin()
			if tc.want == nil {
				h.mock.ExpectCommit()
			} else {
				h.mock.ExpectRollback()
			}
			assignment, err := h.lectures.AddTeacher(context.Background(), admin, "L1", dto.AddLectureTeacherRequest{TeacherID: tc.add})
			if tc.want != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.want), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, assignment.ID)
				assert.True(t, h.w.assignments["L1"]["T2"])
			}
			require.NoError(t, h.mock.ExpectationsWereMet())
		})
	}
}

func TestLectureStaffingIsAdminOnly(t *testing.T) {
	primary := teacher
	assigned := models.Actor{UserID: "T2", Role: models.RoleTeacher}
	ops := []struct {
		name string
		run  func(h *harness, actor models.Actor) error
	}{
		{name: "change teacher", run: func(h *harness, actor models.Actor) error {
			_, err := h.lectures.ChangeTeacher(context.Background(), actor, "L1", dto.ChangeLectureTeacherRequest{NewTeacherID: "T2"})
			return err
		}},
		{name: "add teacher", run: func(h *harness, actor models.Actor) error {
			_, err := h.lectures.AddTeacher(context.Background(), actor, "L1", dto.AddLectureTeacherRequest{TeacherID: "T4"})
			return err
		}},
		{name: "remove teacher", run: func(h *harness, actor models.Actor) error {
			return h.lectures.RemoveTeacher(context.Background(), actor, "L1", "T3")
		}},
	}

	for _, op := range ops {
		for _, actor := range []models.Actor{primary, assigned} {
			t.Run(op.name+" by "+actor.UserID, func(t *testing.T) {
				h := newHarness(t)
				for _, id := range []string{"T1", "T2", "T3", "T4"} {
					h.w.addTeacher(id)
				}
				h.w.addLecture("L1", "T1", true, "T2", "T3")

				h.mock.ExpectBegin()
				h.mock.ExpectRollback()
				err := op.run(h, actor)
				require.Error(t, err)
				assert.True(t, errors.Is(err, appErrors.ErrForbidden), "got %v", err)
				assert.Equal(t, "T1", h.w.lectures["L1"].TeacherID)
				assert.Equal(t, map[string]bool{"T2": true, "T3": true}, h.w.assignments["L1"])
				assert.Empty(t, h.locks.scopes)
				require.NoError(t, h.mock.ExpectationsWereMet())
			})
		}
	}
}

func TestLectureRemoveTeacher(t *testing.T) {
	cases := []struct {
		name   string
		multi  bool
		remove string
		want   *appErrors.Error
	}{
		{name: "removes", multi: true, remove: "T2"},
		{name: "primary on multi", multi: true, remove: "T1", want: appErrors.ErrPolicy},
		{name: "primary on single", remove: "T1", want: appErrors.ErrPolicy},
		{name: "single teacher lecture", remove: "T2", want: appErrors.ErrPolicy},
		{name: "not assigned", multi: true, remove: "T3", want: appErrors.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.w.addLecture("L1", "T1", tc.multi)
			if tc.multi {
				h.w.assign("L1", "T2")
			}

			h.mock.ExpectBegin()
			if tc.want == nil {
				h.mock.ExpectCommit()
			} else {
				h.mock.ExpectRollback()
			}
			err := h.lectures.RemoveTeacher(context.Background(), admin, "L1", tc.remove)
			if tc.want != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.want), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.False(t, h.w.assignments["L1"]["T2"])
			}
			require.NoError(t, h.mock.ExpectationsWereMet())
		})
	}
}

func TestLectureListTeachers(t *testing.T) {
	h := newHarness(t)
	h.w.addTeacher("T1")
	h.w.addTeacher("T2")
	h.w.addLecture("L1", "T1", true, "T2")
	h.w.addLecture("L2", "T1", false)

	views, err := h.lectures.ListTeachers(context.Background(), "L1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, models.LectureTeacherView{TeacherID: "T1", TeacherName: "Teacher T1", IsPrimary: true}, views[0])
	assert.Equal(t, models.LectureTeacherView{TeacherID: "T2", TeacherName: "Teacher T2"}, views[1])

	_, err = h.lectures.ListTeachers(context.Background(), "L2")
	assert.True(t, errors.Is(err, appErrors.ErrPolicy))

	_, err = h.lectures.ListTeachers(context.Background(), "L9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
