package echoapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/udereva/core/school"
	"github.com/trezcool/udereva/core/user"
	emailsvc "github.com/trezcool/udereva/services/email"
)

func TestSchoolApi_create(t *testing.T) {
	env := newTestEnv(t)
	env.createSchool(t, "Kin Drivers", "kin-drivers")

	tests := []httpTest{
		{
			name:     "empty payload",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "slug already taken",
			body: marchallObj(t, school.NewSchool{
				Name:                 "Kin Drivers 2",
				Slug:                 "kin-drivers",
				ContactEmail:         "contact@kin2.test.cd",
				OwnerName:            "Owner",
				OwnerEmail:           "owner@kin2.test.cd",
				OwnerPassword:        "LePassword#69",
				OwnerPasswordConfirm: "LePassword#69",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "valid signup",
			body: marchallObj(t, school.NewSchool{
				Name:                 "Lubum Auto School",
				ContactEmail:         "contact@lubum.test.cd",
				OwnerName:            "Mwepu",
				OwnerEmail:           "mwepu@lubum.test.cd",
				OwnerPassword:        "LePassword#69",
				OwnerPasswordConfirm: "LePassword#69",
			}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/schools", tt.body)
			env.app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusCreated {
				return
			}

			var sch school.School
			if err := json.Unmarshal(rec.Body.Bytes(), &sch); err != nil {
				t.Fatalf("json.Unmarshal(): %v", err)
			}
			if sch.Slug != "lubum-auto-school" {
				t.Errorf("slug = %v; want %v", sch.Slug, "lubum-auto-school")
			}
			if sch.SubscriptionStatus != school.SubscriptionTrialing {
				t.Errorf("subscription_status = %v; want %v", sch.SubscriptionStatus, school.SubscriptionTrialing)
			}

			// the owner can log in and is an active member
			owner, err := env.usrSvc.GetByEmail(ctxb(), "mwepu@lubum.test.cd")
			if err != nil {
				t.Fatalf("GetByEmail(): %v", err)
			}
			mbr, err := env.schoolSvc.ActiveMembership(ctxb(), owner.ID)
			if err != nil {
				t.Fatalf("ActiveMembership(): %v", err)
			}
			if mbr.Role != school.RoleOwner {
				t.Errorf("role = %v; want %v", mbr.Role, school.RoleOwner)
			}
		})
	}
}

func TestSchoolApi_retrieveMine(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	student := env.createUser(t, "Hero", "hero@test.cd", "", true)
	env.addMember(t, sch, student, school.RoleStudent)
	outsider := env.createUser(t, "Out", "out@test.cd", "", true)

	tests := []httpTest{
		{
			name:     "auth required",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "no membership",
			token:    getToken(t, outsider),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "no active school membership"}),
		},
		{
			name:     "member gets own school",
			token:    getToken(t, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, sch),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/schools/mine", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestSchoolApi_members(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	admin := env.createUser(t, "Admin", "admin@test.cd", "", true)
	env.addMember(t, sch, admin, school.RoleAdmin)
	student := env.createUser(t, "Hero", "hero@test.cd", "", true)
	studentMbr := env.addMember(t, sch, student, school.RoleStudent)

	t.Run("students may not list members", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schools/mine/members", getToken(t, student))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("staff lists members", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schools/mine/members?role=student", getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var members []school.Member
		if err := json.Unmarshal(rec.Body.Bytes(), &members); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(members) != 1 || members[0].ID != studentMbr.ID {
			t.Errorf("members = %+v; want just %v", members, studentMbr.ID)
		}
	})

	t.Run("staff suspends a student", func(t *testing.T) {
		body := marchallObj(t, school.UpdateMember{Status: school.MemberSuspended})
		req, rec := newAuthRequest(http.MethodPut, "/v1/schools/mine/members/"+studentMbr.ID, getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}

		// suspended members lose access
		req, rec = newAuthRequest(http.MethodGet, "/v1/schools/mine", getToken(t, student))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("the owner cannot be touched", func(t *testing.T) {
		ownerMbr, err := env.schoolSvc.QueryMembers(ctxb(), sch.ID, school.MemberFilter{Role: school.RoleOwner})
		if err != nil || len(ownerMbr) != 1 {
			t.Fatalf("QueryMembers(): %v (len %d)", err, len(ownerMbr))
		}
		body := marchallObj(t, school.UpdateMember{Status: school.MemberRemoved})
		req, rec := newAuthRequest(http.MethodPut, "/v1/schools/mine/members/"+ownerMbr[0].ID, getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})
}

func TestSchoolApi_joinCodes(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	admin := env.createUser(t, "Admin", "admin@test.cd", "", true)
	env.addMember(t, sch, admin, school.RoleAdmin)

	var issued school.JoinCode

	t.Run("issue", func(t *testing.T) {
		body := marchallObj(t, school.NewJoinCode{MaxUses: 2})
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools/mine/codes", getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(issued.Code) != 8 {
			t.Errorf("code = %q; want 8 chars", issued.Code)
		}
		if issued.Role != school.RoleStudent {
			t.Errorf("role = %v; want %v", issued.Role, school.RoleStudent)
		}
	})

	t.Run("join with code", func(t *testing.T) {
		body := marchallObj(t, map[string]string{
			"code":             issued.Code,
			"name":             "Hero",
			"email":            "hero@test.cd",
			"password":         "LePassword#69",
			"password_confirm": "LePassword#69",
		})
		req, rec := newRequest(http.MethodPost, "/v1/schools/join", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp JoinResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if resp.Token == "" {
			t.Error("failed! empty token")
		}
		if resp.Member.SchoolID != sch.ID || resp.Member.Role != school.RoleStudent {
			t.Errorf("member = %+v; want school %v role %v", resp.Member, sch.ID, school.RoleStudent)
		}
	})

	t.Run("exhausted code is rejected", func(t *testing.T) {
		for i, email := range []string{"second@test.cd", "third@test.cd"} {
			body := marchallObj(t, map[string]string{
				"code":             issued.Code,
				"name":             "Student",
				"email":            email,
				"password":         "LePassword#69",
				"password_confirm": "LePassword#69",
			})
			req, rec := newRequest(http.MethodPost, "/v1/schools/join", body)
			env.app.ServeHTTP(rec, req)
			if i == 0 && rec.Code != http.StatusCreated {
				t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
			}
			if i == 1 {
				tt := httpTest{
					wantCode: http.StatusBadRequest,
					wantData: marchallObj(t, map[string]string{"code": school.ErrCodeExhausted.Error()}),
				}
				checkCodeAndData(t, tt, rec)
			}
		}
	})

	t.Run("revoked code is rejected", func(t *testing.T) {
		jc := env.createJoinCode(t, sch, "REVOKED1", school.RoleStudent, 5)
		req, rec := newAuthRequest(http.MethodDelete, "/v1/schools/mine/codes/"+jc.ID, getToken(t, admin))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		body := marchallObj(t, map[string]string{
			"code":             jc.Code,
			"name":             "Late",
			"email":            "late@test.cd",
			"password":         "LePassword#69",
			"password_confirm": "LePassword#69",
		})
		req, rec = newRequest(http.MethodPost, "/v1/schools/join", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}

func TestSchoolApi_joinFailures(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	jc := env.createJoinCode(t, sch, "GOOD2345", school.RoleStudent, 1)

	joinBody := func(code string) []byte {
		return marchallObj(t, map[string]string{
			"code":             code,
			"name":             "Hero",
			"email":            "hero@test.cd",
			"password":         "LePassword#69",
			"password_confirm": "LePassword#69",
		})
	}

	t.Run("missing code", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/schools/join", joinBody(""))
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "this field is required"}),
		}, rec)
	})

	t.Run("unknown code leaves no account behind", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/schools/join", joinBody("ZZZZ9999"))
		env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": school.ErrCodeNotFound.Error()}),
		}, rec)

		if _, err := env.usrSvc.GetByEmail(ctxb(), "hero@test.cd"); errors.Cause(err) != user.ErrNotFound {
			t.Errorf("GetByEmail() error = %v, want %v", err, user.ErrNotFound)
		}
	})

	t.Run("retry with the right code succeeds", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/schools/join", joinBody(jc.Code))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})
}

func TestSchoolApi_invites(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	admin := env.createUser(t, "Admin", "admin@test.cd", "", true)
	env.addMember(t, sch, admin, school.RoleAdmin)

	t.Run("invite then join", func(t *testing.T) {
		emailsvc.SentMessages = nil // reset

		body := marchallObj(t, InviteRequest{Name: "Hero", Email: "hero@test.cd"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/schools/mine/invites", getToken(t, admin), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}

		// the token only travels by email; pull it off the sent message
		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if msg.To[0].Address != "hero@test.cd" {
			t.Errorf("failed! To = %v; want %v", msg.To[0].Address, "hero@test.cd")
		}
		token := reflect.ValueOf(msg.TemplateData).FieldByName("Token").String()

		body = marchallObj(t, JoinWithInviteRequest{
			Token:           token,
			Name:            "Hero",
			Password:        "LePassword#69",
			PasswordConfirm: "LePassword#69",
		})
		req, rec = newRequest(http.MethodPost, "/v1/schools/join-with-invite", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var resp JoinResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if resp.Member.SchoolID != sch.ID {
			t.Errorf("member school = %v; want %v", resp.Member.SchoolID, sch.ID)
		}
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		body := marchallObj(t, JoinWithInviteRequest{
			Token:           "bogus-token",
			Name:            "Evil",
			Password:        "LePassword#69",
			PasswordConfirm: "LePassword#69",
		})
		req, rec := newRequest(http.MethodPost, "/v1/schools/join-with-invite", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code == http.StatusCreated {
			t.Fatalf("failed! bogus token accepted")
		}
	})
}
