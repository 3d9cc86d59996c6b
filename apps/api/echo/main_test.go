package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/udereva/core"
	"github.com/trezcool/udereva/core/activity"
	"github.com/trezcool/udereva/core/content"
	"github.com/trezcool/udereva/core/forum"
	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
	emailsvc "github.com/trezcool/udereva/services/email"
	logsvc "github.com/trezcool/udereva/services/logger"
	dummydb "github.com/trezcool/udereva/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func ctxb() context.Context { return context.Background() }

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

// testEnv wires a full in-memory application for handler tests.
type testEnv struct {
	conf *core.Config
	app  Server

	db         *dummydb.DB
	usrRepo    user.Repository
	schoolRepo school.Repository

	usrSvc      *user.Service
	schoolSvc   *school.Service
	contentSvc  *content.Service
	activitySvc *activity.Service
	forumSvc    *forum.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	usrRepo := dummydb.NewUserRepository(db)
	schoolRepo := dummydb.NewSchoolRepository(db)
	contentRepo := dummydb.NewContentRepository(db)
	activityRepo := dummydb.NewActivityRepository(db)
	forumRepo := dummydb.NewForumRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	schoolSvc := school.NewService(schoolRepo, mailSvc, conf)
	activitySvc := activity.NewService(activityRepo, schoolSvc)
	contentSvc := content.NewService(contentRepo, activitySvc)
	forumSvc := forum.NewService(forumRepo, activitySvc)

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	env := &testEnv{
		conf:        conf,
		db:          db,
		usrRepo:     usrRepo,
		schoolRepo:  schoolRepo,
		usrSvc:      usrSvc,
		schoolSvc:   schoolSvc,
		contentSvc:  contentSvc,
		activitySvc: activitySvc,
		forumSvc:    forumSvc,
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	// the test binary runs from this package's directory, not the repo root
	conf.WorkDir = filepath.Join("..", "..", "..")
	core.ParseEmailTemplates(conf, logger)

	env.app = NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		UserSvc:     usrSvc,
		SchoolSvc:   schoolSvc,
		ContentSvc:  contentSvc,
		ActivitySvc: activitySvc,
		ForumSvc:    forumSvc,
	})
	return env
}

// Seed helpers; these go through the repos so tests control every field.

func (env *testEnv) createUser(t *testing.T, name, email, pwd string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
	}
	usr, err := env.usrRepo.CreateUser(ctxb(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func (env *testEnv) createSuperuser(t *testing.T, name, email string) user.User {
	t.Helper()
	usr := env.createUser(t, name, email, "", true)
	usr.IsSuperuser = true
	usr, err := env.usrRepo.UpdateOrCreateUser(ctxb(), usr)
	if err != nil {
		t.Fatalf("createSuperuser(): %v", err)
	}
	return usr
}

func (env *testEnv) createSchool(t *testing.T, name, slug string) school.School {
	t.Helper()
	now := time.Now().UTC()
	sch := school.School{
		Name:               name,
		Slug:               slug,
		ContactEmail:       slug + "@test.cd",
		SubscriptionStatus: school.SubscriptionTrialing,
		TrialEndsAt:        now.Add(14 * 24 * time.Hour),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	owner := user.User{
		Name:      name + " Owner",
		Email:     "owner@" + slug + ".test.cd",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sch, _, err := env.schoolRepo.CreateSchoolWithOwner(ctxb(), sch, owner)
	if err != nil {
		t.Fatalf("createSchool(): %v", err)
	}
	return sch
}

func (env *testEnv) addMember(t *testing.T, sch school.School, usr user.User, role string) school.Member {
	t.Helper()
	mbr, err := env.schoolRepo.CreateMember(ctxb(), school.Member{
		ID:       uuid.New().String(),
		SchoolID: sch.ID,
		UserID:   usr.ID,
		Role:     role,
		Status:   school.MemberActive,
		JoinedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("addMember(): %v", err)
	}
	return mbr
}

func (env *testEnv) createJoinCode(t *testing.T, sch school.School, code, role string, maxUses int) school.JoinCode {
	t.Helper()
	now := time.Now().UTC()
	jc, err := env.schoolRepo.CreateJoinCode(ctxb(), school.JoinCode{
		SchoolID:  sch.ID,
		Code:      code,
		Role:      role,
		Status:    school.CodeActive,
		MaxUses:   maxUses,
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("createJoinCode(): %v", err)
	}
	return jc
}

func (env *testEnv) createModule(t *testing.T, sch school.School, name string, published bool) content.Module {
	t.Helper()
	mod, err := env.contentSvc.CreateModule(ctxb(), sch.ID, content.NewModule{
		Name:        name,
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("createModule(): %v", err)
	}
	return mod
}

func (env *testEnv) createLesson(t *testing.T, mod content.Module, title string, published bool) content.Lesson {
	t.Helper()
	lsn, err := env.contentSvc.CreateLesson(ctxb(), mod.SchoolID, content.NewLesson{
		ModuleID:    mod.ID,
		Title:       title,
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("createLesson(): %v", err)
	}
	return lsn
}

func (env *testEnv) createPost(t *testing.T, sch school.School, author user.User, title, body string) forum.Post {
	t.Helper()
	pst, err := env.forumSvc.CreatePost(ctxb(), sch.ID, author.ID, forum.NewPost{Title: title, Body: body})
	if err != nil {
		t.Fatalf("createPost(): %v", err)
	}
	return pst
}

// Request helpers

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
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
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
