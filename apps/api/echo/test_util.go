package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/workill/worknote/core"
	"github.com/workill/worknote/core/activity"
	"github.com/workill/worknote/core/course"
	"github.com/workill/worknote/core/student"
	"github.com/workill/worknote/core/user"
	emailsvc "github.com/workill/worknote/services/email"
	dummydb "github.com/workill/worknote/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type testLogger struct{ t *testing.T }

func (l testLogger) Enable(bool)                           {}
func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Log(msg) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Log(msg) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Log(msg) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Log(msg) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatal(msg) }

type testEnv struct {
	server *Server
	conf   *core.Config

	usrRepo user.Repository
	crsRepo course.Repository
	stdRepo student.Repository
	actRepo activity.Repository

	usrSvc user.ServiceInterface
	crsSvc course.ServiceInterface
	stdSvc student.ServiceInterface
	actSvc activity.ServiceInterface
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	os.Setenv("ENV", "TEST")
	os.Setenv("TEST_DEBUG", "false")
	conf := core.NewConfig()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	env := &testEnv{
		conf:    conf,
		usrRepo: dummydb.NewUserRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
		stdRepo: dummydb.NewStudentRepository(db),
		actRepo: dummydb.NewActivityRepository(db),
	}

	mailSvc := emailsvc.NewConsoleService(conf)
	env.usrSvc = user.NewService(env.usrRepo, mailSvc, conf)
	env.crsSvc = course.NewService(env.crsRepo, mailSvc, testLogger{t}, conf)
	env.stdSvc = student.NewService(env.stdRepo, env.crsSvc)
	env.actSvc = activity.NewService(env.actRepo, env.crsSvc)
	env.crsSvc.SetEnroller(env.stdSvc)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	env.server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         testLogger{t},
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        env.usrSvc,
		CourseSvc:      env.crsSvc,
		StudentSvc:     env.stdSvc,
		ActivitySvc:    env.actSvc,
	})
	return env
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func createUser(t *testing.T, env *testEnv, name, uname, email, pwd, role string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	isActive := true
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  &isActive,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed, %v", err)
		}
	}
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed, %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed, %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed, %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %s; wantData %s", rec.Body.Bytes(), tt.wantData)
	}
}
