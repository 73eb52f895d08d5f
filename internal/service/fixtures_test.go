package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/internal/repository"
	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

// world is an in-memory backing store shared by the repository stubs below.
type world struct {
	lectures    map[string]*models.Lecture
	assignments map[string]map[string]bool
	users       map[string]*repository.TeacherCandidate
	schedules   []models.Schedule
	bookings    []models.Booking
	seq         int
	failWith    error
}

func newWorld() *world {
	return &world{
		lectures:    map[string]*models.Lecture{},
		assignments: map[string]map[string]bool{},
		users:       map[string]*repository.TeacherCandidate{},
	}
}

func (w *world) nextID(prefix string) string {
	w.seq++
	return fmt.Sprintf("%s-%d", prefix, w.seq)
}

func (w *world) addTeacher(id string) {
	w.users[id] = &repository.TeacherCandidate{ID: id, Name: "Teacher " + id, Role: models.RoleTeacher, HasProfile: true}
}

func (w *world) addUser(id string, role models.UserRole) {
	w.users[id] = &repository.TeacherCandidate{ID: id, Name: "User " + id, Role: role}
}

func (w *world) addLecture(id, teacherID string, multi bool, assigned ...string) *models.Lecture {
	lecture := &models.Lecture{ID: id, Title: "Lecture " + id, TeacherID: teacherID, IsMultiTeacher: multi, ApprovalStatus: models.ApprovalPending}
	w.lectures[id] = lecture
	for _, t := range assigned {
		w.assign(id, t)
	}
	return lecture
}

func (w *world) assign(lectureID, teacherID string) {
	if w.assignments[lectureID] == nil {
		w.assignments[lectureID] = map[string]bool{}
	}
	w.assignments[lectureID][teacherID] = true
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := timeslot.ParseDate("date", raw)
	require.NoError(t, err)
	return d
}

type lectureStub struct{ w *world }

func (s lectureStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Lecture, error) {
	if s.w.failWith != nil {
		return nil, s.w.failWith
	}
	lecture, ok := s.w.lectures[id]
	if !ok || lecture.IsDeleted {
		return nil, sql.ErrNoRows
	}
	cp := *lecture
	return &cp, nil
}

func (s lectureStub) Create(ctx context.Context, exec sqlx.ExtContext, lecture *models.Lecture) error {
	if lecture.ID == "" {
		lecture.ID = s.w.nextID("lecture")
	}
	cp := *lecture
	s.w.lectures[lecture.ID] = &cp
	return nil
}

func (s lectureStub) UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, id, teacherID string, at time.Time) error {
	lecture, ok := s.w.lectures[id]
	if !ok {
		return sql.ErrNoRows
	}
	lecture.TeacherID = teacherID
	return nil
}

func (s lectureStub) List(ctx context.Context, filter models.LectureFilter) ([]models.LectureListItem, int, error) {
	var items []models.LectureListItem
	for _, l := range s.w.lectures {
		if filter.ApprovalStatus != nil && l.ApprovalStatus != *filter.ApprovalStatus {
			continue
		}
		items = append(items, models.LectureListItem{Lecture: *l})
	}
	return items, len(items), nil
}

func (s lectureStub) FindDetail(ctx context.Context, id string) (*models.LectureDetail, error) {
	lecture, ok := s.w.lectures[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.LectureDetail{Lecture: *lecture, TeacherName: s.w.users[lecture.TeacherID].Name}, nil
}

type assignmentStub struct{ w *world }

func (s assignmentStub) Exists(ctx context.Context, exec sqlx.ExtContext, lectureID, teacherID string) (bool, error) {
	if s.w.failWith != nil {
		return false, s.w.failWith
	}
	return s.w.assignments[lectureID][teacherID], nil
}

func (s assignmentStub) Create(ctx context.Context, exec sqlx.ExtContext, a *models.LectureTeacher) error {
	if s.w.assignments[a.LectureID][a.TeacherID] {
		return repository.ErrDuplicate
	}
	if a.ID == "" {
		a.ID = s.w.nextID("assignment")
	}
	s.w.assign(a.LectureID, a.TeacherID)
	return nil
}

func (s assignmentStub) Delete(ctx context.Context, exec sqlx.ExtContext, lectureID, teacherID string) error {
	if !s.w.assignments[lectureID][teacherID] {
		return sql.ErrNoRows
	}
	delete(s.w.assignments[lectureID], teacherID)
	return nil
}

func (s assignmentStub) ListByLecture(ctx context.Context, lectureID string) ([]models.LectureTeacher, error) {
	var out []models.LectureTeacher
	for teacherID := range s.w.assignments[lectureID] {
		out = append(out, models.LectureTeacher{LectureID: lectureID, TeacherID: teacherID})
	}
	return out, nil
}

type teacherDirStub struct{ w *world }

func (s teacherDirStub) FindCandidate(ctx context.Context, exec sqlx.ExtContext, id string) (*repository.TeacherCandidate, error) {
	candidate, ok := s.w.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *candidate
	return &cp, nil
}

func (s teacherDirStub) ProfileExists(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	candidate, ok := s.w.users[id]
	return ok && candidate.HasProfile, nil
}

func (s teacherDirStub) LookupName(ctx context.Context, id string) (string, error) {
	candidate, ok := s.w.users[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	return candidate.Name, nil
}

type scheduleStub struct{ w *world }

func (s scheduleStub) ListActiveOnDate(ctx context.Context, exec sqlx.ExtContext, lectureID string, date time.Time) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, sc := range s.w.schedules {
		if sc.LectureID == lectureID && !sc.IsExpired && sc.Date.Equal(date) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s scheduleStub) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = s.w.nextID("schedule")
	}
	s.w.schedules = append(s.w.schedules, *schedule)
	return nil
}

func (s scheduleStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error) {
	for i := range s.w.schedules {
		if s.w.schedules[i].ID == id {
			cp := s.w.schedules[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s scheduleStub) ListActive(ctx context.Context) ([]models.ScheduleDetail, error) {
	var out []models.ScheduleDetail
	for _, sc := range s.w.schedules {
		if !sc.IsExpired {
			out = append(out, models.ScheduleDetail{Schedule: sc})
		}
	}
	return out, nil
}

func (s scheduleStub) ListActiveByLecture(ctx context.Context, lectureID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, sc := range s.w.schedules {
		if sc.LectureID == lectureID && !sc.IsExpired {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s scheduleStub) Expire(ctx context.Context, exec sqlx.ExtContext, id string) error {
	for i := range s.w.schedules {
		if s.w.schedules[i].ID == id && !s.w.schedules[i].IsExpired {
			s.w.schedules[i].IsExpired = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s scheduleStub) ExpireBefore(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	for i := range s.w.schedules {
		if !s.w.schedules[i].IsExpired && s.w.schedules[i].Date.Before(day) {
			s.w.schedules[i].IsExpired = true
			n++
		}
	}
	return n, nil
}

type bookingStub struct{ w *world }

func (s bookingStub) ListActiveOnDate(ctx context.Context, exec sqlx.ExtContext, userID, lectureID string, date time.Time) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.w.bookings {
		if b.UserID == userID && b.LectureID == lectureID && b.Date.Equal(date) && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s bookingStub) Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = s.w.nextID("booking")
	}
	s.w.bookings = append(s.w.bookings, *booking)
	return nil
}

func (s bookingStub) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Booking, error) {
	for i := range s.w.bookings {
		if s.w.bookings[i].ID == id {
			cp := s.w.bookings[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s bookingStub) Cancel(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error {
	for i := range s.w.bookings {
		if s.w.bookings[i].ID == id && s.w.bookings[i].Status == models.BookingPending {
			s.w.bookings[i].Status = models.BookingCancelled
			s.w.bookings[i].CancelledAt = &at
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s bookingStub) ListByLecture(ctx context.Context, lectureID string) ([]models.BookingListItem, error) {
	var out []models.BookingListItem
	for _, b := range s.w.bookings {
		if b.LectureID == lectureID {
			out = append(out, models.BookingListItem{ID: b.ID, Status: b.Status, Date: b.Date, StartTime: b.StartTime, EndTime: b.EndTime})
		}
	}
	return out, nil
}

func (s bookingStub) ListAll(ctx context.Context) ([]models.BookingListItem, error) {
	var out []models.BookingListItem
	for _, b := range s.w.bookings {
		out = append(out, models.BookingListItem{ID: b.ID, Status: b.Status, Date: b.Date, StartTime: b.StartTime, EndTime: b.EndTime})
	}
	return out, nil
}

func (s bookingStub) CountByStatus(ctx context.Context) ([]models.BookingStatusCount, error) {
	counts := map[models.BookingStatus]int{}
	for _, b := range s.w.bookings {
		counts[b.Status]++
	}
	var out []models.BookingStatusCount
	for status, n := range counts {
		out = append(out, models.BookingStatusCount{Status: status, Count: n})
	}
	return out, nil
}

func (s bookingStub) TopLectures(ctx context.Context, limit int) ([]models.LectureBookingCount, error) {
	return []models.LectureBookingCount{{LectureID: "L1", LectureTitle: "Lecture L1", Count: len(s.w.bookings)}}, nil
}

type lockStub struct {
	scopes []string
	err    error
}

func (l *lockStub) Lock(ctx context.Context, exec sqlx.ExtContext, scope string) error {
	l.scopes = append(l.scopes, scope)
	return l.err
}

type sqlmockTx struct {
	db *sqlx.DB
}

func (p *sqlmockTx) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

// newSQLMockTx returns a transaction provider whose Begin/Commit/Rollback are
// asserted through the returned mock.
func newSQLMockTx(t *testing.T) (*sqlmockTx, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &sqlmockTx{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func fixedClock(raw string) func() time.Time {
	return func() time.Time {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			panic(err)
		}
		return t
	}
}

type harness struct {
	w         *world
	mock      sqlmock.Sqlmock
	locks     *lockStub
	access    *LectureAccessService
	admission *BookingAdmission
	bookings  *BookingService
	schedules *ScheduleService
	lectures  *LectureService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	w := newWorld()
	tx, mock := newSQLMockTx(t)
	locks := &lockStub{}

	access := NewLectureAccessService(nil, lectureStub{w}, assignmentStub{w}, nil)
	conflicts := NewConflictDetector(scheduleStub{w}, bookingStub{w})
	admission := NewBookingAdmission(lectureStub{w}, assignmentStub{w}, conflicts, time.UTC)
	admission.now = fixedClock("2024-06-01T10:00:00Z")

	bookings := NewBookingService(tx, locks, bookingStub{w}, admission, access, nil, nil, nil, nil)
	schedules := NewScheduleService(ScheduleServiceDeps{
		Tx:          tx,
		Locks:       locks,
		Schedules:   scheduleStub{w},
		Lectures:    lectureStub{w},
		Assignments: assignmentStub{w},
		Teachers:    teacherDirStub{w},
		Access:      access,
		Conflicts:   conflicts,
	})
	schedules.now = fixedClock("2024-06-01T10:00:00Z")
	lectures := NewLectureService(LectureServiceDeps{
		Tx:          tx,
		Locks:       locks,
		Lectures:    lectureStub{w},
		Assignments: assignmentStub{w},
		Teachers:    teacherDirStub{w},
		Access:      access,
	})

	return &harness{
		w:         w,
		mock:      mock,
		locks:     locks,
		access:    access,
		admission: admission,
		bookings:  bookings,
		schedules: schedules,
		lectures:  lectures,
	}
}
