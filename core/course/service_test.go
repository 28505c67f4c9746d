package course

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/workill/worknote/core"
	"github.com/workill/worknote/core/user"
	emailsvc "github.com/workill/worknote/services/email"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// fakeRepo is a map-backed Repository for exercising the service alone.
type fakeRepo struct {
	courses      map[string]*Course
	reservations map[string]*CodeReservation
	seq          int
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		courses:      make(map[string]*Course),
		reservations: make(map[string]*CodeReservation),
	}
}

func (r *fakeRepo) CreateCourse(ctx context.Context, crs Course) (Course, error) {
	code := crs.ShareCode.String
	if code != "" {
		if _, taken := r.reservations[code]; taken {
			return Course{}, ErrCodeTaken
		}
	}
	r.seq++
	crs.ID = fmt.Sprintf("crs%d", r.seq)
	if code != "" {
		r.reservations[code] = &CodeReservation{Code: code, CourseID: crs.ID, CreatedAt: crs.CreatedAt}
	}
	r.courses[crs.ID] = &crs
	return crs, nil
}

func (r *fakeRepo) GetCourseByID(ctx context.Context, id string) (Course, error) {
	if crs, ok := r.courses[id]; ok {
		return *crs, nil
	}
	return Course{}, ErrNotFound
}

func (r *fakeRepo) GetReservation(ctx context.Context, code string) (CodeReservation, error) {
	if res, ok := r.reservations[code]; ok {
		return *res, nil
	}
	return CodeReservation{}, ErrNotFound
}

func (r *fakeRepo) ClaimCode(ctx context.Context, res CodeReservation) error {
	if _, taken := r.reservations[res.Code]; taken {
		return ErrCodeTaken
	}
	r.reservations[res.Code] = &res
	return nil
}

func (r *fakeRepo) FindCourseByShareCode(ctx context.Context, code string) (Course, error) {
	for _, crs := range r.courses {
		if crs.ShareCode.Valid && crs.ShareCode.String == code {
			return *crs, nil
		}
	}
	return Course{}, ErrNotFound
}

func (r *fakeRepo) QueryCoursesByMember(ctx context.Context, userID string) ([]Course, error) {
	courses := make([]Course, 0)
	for _, crs := range r.courses {
		if crs.IsOwner(userID) || crs.HasCollaborator(userID) {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func (r *fakeRepo) QueryCoursesMissingShareCode(ctx context.Context) ([]Course, error) {
	courses := make([]Course, 0)
	for _, crs := range r.courses {
		if !crs.ShareCode.Valid || crs.ShareCode.String == "" {
			courses = append(courses, *crs)
		}
	}
	return courses, nil
}

func (r *fakeRepo) AddCollaborator(ctx context.Context, courseID, userID string) error {
	crs, ok := r.courses[courseID]
	if !ok {
		return ErrNotFound
	}
	if !crs.HasCollaborator(userID) {
		crs.CollaboratorIDs = append(crs.CollaboratorIDs, userID)
	}
	return nil
}

func (r *fakeRepo) SetShareCode(ctx context.Context, courseID, code string) error {
	crs, ok := r.courses[courseID]
	if !ok {
		return ErrNotFound
	}
	crs.ShareCode.SetValid(code)
	return nil
}

type fakeEnroller struct {
	calls []string // courseID per call
}

func (e *fakeEnroller) EnsureSelfStudent(ctx context.Context, courseID string, usr user.User) error {
	e.calls = append(e.calls, courseID)
	return nil
}

func setup(t *testing.T) (ServiceInterface, *fakeRepo) {
	t.Helper()
	os.Setenv("ENV", "TEST")
	conf := core.NewConfig()

	repo := newFakeRepo()
	svc := NewService(repo, emailsvc.NewConsoleService(conf), nopLogger{}, conf)
	return svc, repo
}

// stubCodes makes codeRandFunc return the given codes in order, then falls back
// to the real generator. The caller's cleanup restores the original.
func stubCodes(t *testing.T, codes ...string) {
	t.Helper()
	orig := codeRandFunc
	i := 0
	codeRandFunc = func(n int) (string, error) {
		if i < len(codes) {
			code := codes[i]
			i++
			return code, nil
		}
		return orig(n)
	}
	t.Cleanup(func() { codeRandFunc = orig })
}

var owner = user.User{ID: "u1", Name: "Ms. Price", Email: "price@test.cd", Role: user.RoleTeacher}

func Test_service_Create(t *testing.T) {
	svc, repo := setup(t)
	emailsvc.ClearSentMessages()

	ctx := context.Background()
	crs, err := svc.Create(ctx, owner, NewCourse{Title: "Algebra I", Classroom: "B12"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	if crs.ID == "" {
		t.Error("expected an id to be assigned")
	}
	if crs.OwnerID != owner.ID {
		t.Errorf("OwnerID = %q; want %q", crs.OwnerID, owner.ID)
	}
	code := crs.ShareCode.String
	if len(code) != shortCodeLen {
		t.Fatalf("ShareCode = %q; want length %d", code, shortCodeLen)
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Fatalf("ShareCode = %q; %q not in alphabet", code, c)
		}
	}

	// the code must resolve back to the course, case-insensitively
	got, err := svc.GetByShareCode(ctx, strings.ToLower(code))
	if err != nil {
		t.Fatalf("GetByShareCode() failed, %v", err)
	}
	if got.ID != crs.ID {
		t.Errorf("GetByShareCode() = %q; want %q", got.ID, crs.ID)
	}

	// the owner gets the code by email
	if n := len(emailsvc.SentMessages); n != 1 {
		t.Fatalf("want 1 sent message; got %d", n)
	}
	if msg := emailsvc.SentMessages[0]; !strings.Contains(msg.BodyStr, code) {
		t.Errorf("share code %q missing from email body %q", code, msg.BodyStr)
	}

	if _, err := repo.GetReservation(ctx, code); err != nil {
		t.Errorf("GetReservation() failed, %v", err)
	}
}

func Test_service_Create_retriesTakenCodes(t *testing.T) {
	svc, repo := setup(t)
	stubCodes(t, "AAAAAA", "BBBBBB")

	ctx := context.Background()
	if err := repo.ClaimCode(ctx, CodeReservation{Code: "AAAAAA", CourseID: "other"}); err != nil {
		t.Fatalf("ClaimCode() failed, %v", err)
	}

	crs, err := svc.Create(ctx, owner, NewCourse{Title: "Biology"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if crs.ShareCode.String != "BBBBBB" {
		t.Errorf("ShareCode = %q; want %q", crs.ShareCode.String, "BBBBBB")
	}
}

func Test_service_Create_longCodeFallback(t *testing.T) {
	svc, repo := setup(t)
	// all short draws collide; the final long draw succeeds
	stubCodes(t, "AAAAAA", "AAAAAA", "AAAAAA", "AAAAAA", "AAAAAA", "CCCCCCCC")

	ctx := context.Background()
	if err := repo.ClaimCode(ctx, CodeReservation{Code: "AAAAAA", CourseID: "other"}); err != nil {
		t.Fatalf("ClaimCode() failed, %v", err)
	}

	crs, err := svc.Create(ctx, owner, NewCourse{Title: "Chemistry"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if got := crs.ShareCode.String; got != "CCCCCCCC" {
		t.Errorf("ShareCode = %q; want %q", got, "CCCCCCCC")
	}
}

func Test_service_Create_exhaustion(t *testing.T) {
	svc, repo := setup(t)
	stubCodes(t, "AAAAAA", "AAAAAA", "AAAAAA", "AAAAAA", "AAAAAA", "AAAAAAAA")

	ctx := context.Background()
	for _, code := range []string{"AAAAAA", "AAAAAAAA"} {
		if err := repo.ClaimCode(ctx, CodeReservation{Code: code, CourseID: "other"}); err != nil {
			t.Fatalf("ClaimCode() failed, %v", err)
		}
	}

	if _, err := svc.Create(ctx, owner, NewCourse{Title: "Physics"}); err != ErrCodeGenerationExhausted {
		t.Errorf("Create() error = %v; want %v", err, ErrCodeGenerationExhausted)
	}
	// nothing half-created
	if n := len(repo.courses); n != 0 {
		t.Errorf("want no courses; got %d", n)
	}
}

func Test_service_GetByShareCode_legacyBackfill(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	// a record predating the reservation table: share code field set, no reservation
	legacy, err := repo.CreateCourse(ctx, Course{Title: "Legacy", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("CreateCourse() failed, %v", err)
	}
	if err := repo.SetShareCode(ctx, legacy.ID, "XYZ234"); err != nil {
		t.Fatalf("SetShareCode() failed, %v", err)
	}

	got, err := svc.GetByShareCode(ctx, "xyz234")
	if err != nil {
		t.Fatalf("GetByShareCode() failed, %v", err)
	}
	if got.ID != legacy.ID {
		t.Errorf("GetByShareCode() = %q; want %q", got.ID, legacy.ID)
	}

	// the reservation must have been backfilled
	res, err := repo.GetReservation(ctx, "XYZ234")
	if err != nil {
		t.Fatalf("GetReservation() failed, %v", err)
	}
	if res.CourseID != legacy.ID {
		t.Errorf("reservation points at %q; want %q", res.CourseID, legacy.ID)
	}
}

func Test_service_GetByShareCode_notFound(t *testing.T) {
	svc, _ := setup(t)
	if _, err := svc.GetByShareCode(context.Background(), "NOSUCH"); err != ErrNotFound {
		t.Errorf("GetByShareCode() error = %v; want %v", err, ErrNotFound)
	}
}

func Test_service_JoinByShareCode(t *testing.T) {
	svc, _ := setup(t)
	enroller := &fakeEnroller{}
	svc.SetEnroller(enroller)

	ctx := context.Background()
	crs, err := svc.Create(ctx, owner, NewCourse{Title: "History"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	joiner := user.User{ID: "u2", Name: "Sam", Role: user.RoleTeacher}

	if svc.IsAuthorized(ctx, crs.ID, joiner.ID) {
		t.Error("joiner must not be authorized before joining")
	}

	joined, err := svc.JoinByShareCode(ctx, crs.ShareCode.String, joiner)
	if err != nil {
		t.Fatalf("JoinByShareCode() failed, %v", err)
	}
	if !joined.HasCollaborator(joiner.ID) {
		t.Error("joiner missing from collaborators")
	}
	if len(enroller.calls) != 1 || enroller.calls[0] != crs.ID {
		t.Errorf("enroller calls = %v; want [%s]", enroller.calls, crs.ID)
	}

	// joining again changes nothing
	joined, err = svc.JoinByShareCode(ctx, crs.ShareCode.String, joiner)
	if err != nil {
		t.Fatalf("JoinByShareCode() failed on rejoin, %v", err)
	}
	var count int
	for _, id := range joined.CollaboratorIDs {
		if id == joiner.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("joiner appears %d times in collaborators; want 1", count)
	}

	if !svc.IsAuthorized(ctx, crs.ID, joiner.ID) {
		t.Error("joiner must be authorized after joining")
	}
	if !svc.IsAuthorized(ctx, crs.ID, owner.ID) {
		t.Error("owner must stay authorized")
	}
}

func Test_service_JoinByShareCode_ownerRejoin(t *testing.T) {
	svc, _ := setup(t)

	ctx := context.Background()
	crs, err := svc.Create(ctx, owner, NewCourse{Title: "Geography"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	// the owner joining their own course just adds them as collaborator too
	joined, err := svc.JoinByShareCode(ctx, crs.ShareCode.String, owner)
	if err != nil {
		t.Fatalf("JoinByShareCode() failed, %v", err)
	}
	if !joined.IsOwner(owner.ID) {
		t.Error("ownership must be preserved")
	}
}

func Test_service_EnsureShareCode(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	legacy, err := repo.CreateCourse(ctx, Course{Title: "Codeless", OwnerID: owner.ID, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateCourse() failed, %v", err)
	}

	code, err := svc.EnsureShareCode(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("EnsureShareCode() failed, %v", err)
	}
	if len(code) != shortCodeLen {
		t.Errorf("code = %q; want length %d", code, shortCodeLen)
	}

	refreshed, err := repo.GetCourseByID(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("GetCourseByID() failed, %v", err)
	}
	if refreshed.ShareCode.String != code {
		t.Errorf("persisted code = %q; want %q", refreshed.ShareCode.String, code)
	}

	// stable across calls
	again, err := svc.EnsureShareCode(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("EnsureShareCode() failed on second call, %v", err)
	}
	if again != code {
		t.Errorf("EnsureShareCode() = %q on second call; want %q", again, code)
	}
}

func Test_service_Query(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	mine, err := svc.Create(ctx, owner, NewCourse{Title: "Mine"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	other := user.User{ID: "u9", Role: user.RoleTeacher}
	theirs, err := svc.Create(ctx, other, NewCourse{Title: "Theirs"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	courses, err := svc.Query(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Query() failed, %v", err)
	}
	if len(courses) != 1 || courses[0].ID != mine.ID {
		t.Errorf("Query() = %v; want just %q", courses, mine.ID)
	}

	// joining the other course makes it visible
	if _, err = svc.JoinByShareCode(ctx, theirs.ShareCode.String, owner); err != nil {
		t.Fatalf("JoinByShareCode() failed, %v", err)
	}
	courses, err = svc.Query(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Query() failed, %v", err)
	}
	if len(courses) != 2 {
		t.Errorf("Query() returned %d courses; want 2", len(courses))
	}
}
