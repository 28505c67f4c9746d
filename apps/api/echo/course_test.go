package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/workill/worknote/core/activity"
	"github.com/workill/worknote/core/course"
	"github.com/workill/worknote/core/student"
	"github.com/workill/worknote/core/user"
)

func createCourse(t *testing.T, env *testEnv, owner user.User, title string) course.Course {
	t.Helper()
	crs, err := env.crsSvc.Create(context.Background(), owner, course.NewCourse{Title: title})
	if err != nil {
		t.Fatalf("createCourse() failed, %v", err)
	}
	return crs
}

func Test_courseApi_create(t *testing.T) {
	env := setupServer(t)

	teacher := createUser(t, env, "Ms. Price", "price", "price@test.cd", "", user.RoleTeacher)
	studentUsr := createUser(t, env, "Sam", "samtutu", "sam@test.cd", "", user.RoleStudent)

	tests := []httpTest{
		{
			name: "anon is rejected", method: http.MethodPost, path: "/v1/courses",
			body: marshallObj(t, course.NewCourse{Title: "Algebra I"}),
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "student is rejected", method: http.MethodPost, path: "/v1/courses",
			body: marshallObj(t, course.NewCourse{Title: "Algebra I"}), token: getToken(t, studentUsr),
			wantCode: http.StatusForbidden,
		},
		{
			name: "missing title is rejected", method: http.MethodPost, path: "/v1/courses",
			body: []byte(`{}`), token: getToken(t, teacher),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "teacher creates a course", method: http.MethodPost, path: "/v1/courses",
			body: marshallObj(t, course.NewCourse{Title: "Algebra I", Classroom: "B12"}), token: getToken(t, teacher),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Fatalf("unmarshalling response failed, %v", err)
				}
				if crs.OwnerID != teacher.ID {
					t.Errorf("OwnerID = %q; want %q", crs.OwnerID, teacher.ID)
				}
				if len(crs.ShareCode.String) != 6 {
					t.Errorf("ShareCode = %q; want a 6-char code", crs.ShareCode.String)
				}
			}
		})
	}
}

func Test_courseApi_join(t *testing.T) {
	env := setupServer(t)

	owner := createUser(t, env, "Ms. Price", "price", "price@test.cd", "", user.RoleTeacher)
	joiner := createUser(t, env, "Sam", "samtutu", "sam@test.cd", "", user.RoleStudent)
	crs := createCourse(t, env, owner, "Algebra I")
	code := crs.ShareCode.String

	// codes are case-insensitive
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/join", getToken(t, joiner),
		marshallObj(t, JoinCourseRequest{Code: strings.ToLower(code)}))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("join failed! code = %v, body = %s", rec.Code, rec.Body.Bytes())
	}

	var joined course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &joined); err != nil {
		t.Fatalf("unmarshalling response failed, %v", err)
	}
	if !joined.HasCollaborator(joiner.ID) {
		t.Error("joiner missing from collaborators")
	}

	// the joiner's own student record was created on join
	students, err := env.stdSvc.ListByCourse(context.Background(), crs.ID, joiner.ID)
	if err != nil {
		t.Fatalf("ListByCourse() failed, %v", err)
	}
	if len(students) != 1 || students[0].ClassLabel != student.DefaultClassLabel {
		t.Errorf("students = %v; want one self record in the %q class", students, student.DefaultClassLabel)
	}

	// unknown code is a 404
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/join", getToken(t, joiner),
		marshallObj(t, JoinCourseRequest{Code: "ZZZZ22"}))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("join with unknown code: code = %v; want %v", rec.Code, http.StatusNotFound)
	}

	// malformed code never hits the store
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/join", getToken(t, joiner),
		marshallObj(t, JoinCourseRequest{Code: "short"}))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("join with malformed code: code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
}

func Test_courseApi_lookup(t *testing.T) {
	env := setupServer(t)

	owner := createUser(t, env, "Ms. Price", "price", "price@test.cd", "", user.RoleTeacher)
	viewer := createUser(t, env, "Sam", "samtutu", "sam@test.cd", "", user.RoleStudent)
	crs := createCourse(t, env, owner, "Algebra I")

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/lookup?code="+strings.ToLower(crs.ShareCode.String), getToken(t, viewer))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup failed! code = %v, body = %s", rec.Code, rec.Body.Bytes())
	}
	var got course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshalling response failed, %v", err)
	}
	if got.ID != crs.ID {
		t.Errorf("lookup returned %q; want %q", got.ID, crs.ID)
	}

	// looking up does not join
	if env.crsSvc.IsAuthorized(context.Background(), crs.ID, viewer.ID) {
		t.Error("lookup must not grant membership")
	}
}

func Test_courseApi_query(t *testing.T) {
	env := setupServer(t)

	owner := createUser(t, env, "Ms. Price", "price", "price@test.cd", "", user.RoleTeacher)
	other := createUser(t, env, "Mr. Bell", "bell", "bell@test.cd", "", user.RoleTeacher)
	mine := createCourse(t, env, owner, "Algebra I")
	createCourse(t, env, other, "Biology")

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses", getToken(t, owner))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query failed! code = %v", rec.Code)
	}
	var courses []course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &courses); err != nil {
		t.Fatalf("unmarshalling response failed, %v", err)
	}
	if len(courses) != 1 || courses[0].ID != mine.ID {
		t.Errorf("query = %v; want just %q", courses, mine.ID)
	}
}

func Test_courseApi_ensureShareCode(t *testing.T) {
	env := setupServer(t)

	owner := createUser(t, env, "Ms. Price", "price", "price@test.cd", "", user.RoleTeacher)
	outsider := createUser(t, env, "Mr. Bell", "bell", "bell@test.cd", "", user.RoleTeacher)

	// a record predating code issuance
	legacy, err := env.crsRepo.CreateCourse(context.Background(), course.Course{Title: "Legacy", OwnerID: owner.ID})
	if err != nil {
		t.Fatalf("CreateCourse() failed, %v", err)
	}

	// only members may mint a code
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+legacy.ID+"/share-code", getToken(t, outsider))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("outsider: code = %v; want %v", rec.Code, http.StatusNotFound)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+legacy.ID+"/share-code", getToken(t, owner))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ensure failed! code = %v, body = %s", rec.Code, rec.Body.Bytes())
	}
	var resp ShareCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response failed, %v", err)
	}
	if len(resp.Code) != 6 {
		t.Errorf("code = %q; want a 6-char code", resp.Code)
	}

	// second call returns the same code
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/"+legacy.ID+"/share-code", getToken(t, owner))
	env.server.ServeHTTP(rec, req)
	var again ShareCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
		t.Fatalf("unmarshalling response failed, %v", err)
	}
	if again.Code != resp.Code {
		t.Errorf("second call returned %q; want %q", again.Code, resp.Code)
	}
}

func Test_courseApi_queryStudents_authzFallback(t *testing.T) {
	env := setupServer(t)

	owner := createUser(t, env, "Ms. Price", "price", "price@test.cd", "", user.RoleTeacher)
	outsider := createUser(t, env, "Mr. Bell", "bell", "bell@test.cd", "", user.RoleTeacher)
	crs := createCourse(t, env, owner, "Algebra I")

	ctx := context.Background()
	if _, err := env.stdSvc.Create(ctx, owner, student.NewStudent{FirstName: "Ada", ClassLabel: "General", CourseID: crs.ID}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if _, err := env.stdSvc.Create(ctx, outsider, student.NewStudent{FirstName: "Linus", ClassLabel: "General", CourseID: crs.ID}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	fetch := func(usr user.User) []student.Student {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/students", getToken(t, usr))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("queryStudents failed! code = %v", rec.Code)
		}
		var students []student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &students); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		return students
	}

	if students := fetch(owner); len(students) != 2 {
		t.Errorf("owner sees %d students; want 2", len(students))
	}
	// the outsider only sees the record they created themselves
	if students := fetch(outsider); len(students) != 1 || students[0].FirstName != "Linus" {
		t.Errorf("outsider students = %v; want just Linus", students)
	}
}

func Test_courseApi_queryActivities_authzFallback(t *testing.T) {
	env := setupServer(t)

	owner := createUser(t, env, "Ms. Price", "price", "price@test.cd", "", user.RoleTeacher)
	outsider := createUser(t, env, "Mr. Bell", "bell", "bell@test.cd", "", user.RoleTeacher)
	crs := createCourse(t, env, owner, "Algebra I")

	ctx := context.Background()
	if _, err := env.actSvc.Create(ctx, owner, activity.NewActivity{Title: "Homework 1", CourseID: crs.ID}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if _, err := env.actSvc.Create(ctx, owner, activity.NewActivity{Title: "Quiz", CourseIDs: []string{crs.ID}}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if _, err := env.actSvc.Create(ctx, outsider, activity.NewActivity{Title: "Field Notes", CourseID: crs.ID}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	fetch := func(usr user.User) []activity.Activity {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/activities", getToken(t, usr))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("queryActivities failed! code = %v", rec.Code)
		}
		var activities []activity.Activity
		if err := json.Unmarshal(rec.Body.Bytes(), &activities); err != nil {
			t.Fatalf("unmarshalling response failed, %v", err)
		}
		return activities
	}

	if activities := fetch(owner); len(activities) != 3 {
		t.Errorf("owner sees %d activities; want 3", len(activities))
	}
	// the outsider only sees the activity they authored themselves
	if activities := fetch(outsider); len(activities) != 1 || activities[0].Title != "Field Notes" {
		t.Errorf("outsider activities = %v; want just Field Notes", activities)
	}
}
