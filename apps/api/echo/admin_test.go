package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/udereva/core/school"
)

func TestAdminApi_schools(t *testing.T) {
	env := newTestEnv(t)
	sch := env.createSchool(t, "Kin Drivers", "kin-drivers")
	env.createSchool(t, "Lubum Auto", "lubum-auto")

	su := env.createSuperuser(t, "Root", "root@test.cd")
	pleb := env.createUser(t, "Pleb", "pleb@test.cd", "", true)
	env.addMember(t, sch, pleb, school.RoleAdmin)

	t.Run("superuser only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools", getToken(t, pleb))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("list all schools", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/schools", getToken(t, su))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var schools []school.SchoolInfo
		if err := json.Unmarshal(rec.Body.Bytes(), &schools); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(schools) != 2 {
			t.Errorf("len(schools) = %v; want 2", len(schools))
		}
	})

	t.Run("set subscription status", func(t *testing.T) {
		body := marchallObj(t, SubscriptionRequest{Status: school.SubscriptionActive})
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/schools/"+sch.ID+"/subscription", getToken(t, su), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got school.School
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if got.SubscriptionStatus != school.SubscriptionActive {
			t.Errorf("subscription_status = %v; want %v", got.SubscriptionStatus, school.SubscriptionActive)
		}
	})

	t.Run("bogus status is rejected", func(t *testing.T) {
		body := marchallObj(t, SubscriptionRequest{Status: "lifetime"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/schools/"+sch.ID+"/subscription", getToken(t, su), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("delete school", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/admin/schools/"+sch.ID, getToken(t, su))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/admin/schools/"+sch.ID, getToken(t, su))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}
