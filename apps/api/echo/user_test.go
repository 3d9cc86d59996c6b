package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestUserApi_login(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Awe", "awe@test.cd", "LePassword#69", true)
	env.createUser(t, "Naughty", "naughty@test.cd", "LePassword#69", false)

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name:     "empty payload",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name:     "unknown email",
			body:     marchallObj(t, LoginRequest{Email: "who@test.cd", Password: "LePassword#69"}),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Email: "awe@test.cd", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Email: "naughty@test.cd", Password: "LePassword#69"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "valid credentials",
			body:     marchallObj(t, LoginRequest{Email: "awe@test.cd", Password: "LePassword#69"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			env.app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal(): %v", err)
			}
			if resp.Token == "" {
				t.Error("failed! empty token")
			}
		})
	}
}

func TestUserApi_me(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Awe", "awe@test.cd", "LePassword#69", true)

	tests := []httpTest{
		{
			name:     "auth required",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "me",
			token:    getToken(t, usr),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, usr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserApi_updateMe(t *testing.T) {
	env := newTestEnv(t)
	usr := env.createUser(t, "Awe", "awe@test.cd", "LePassword#69", true)
	env.createUser(t, "King", "king@test.cd", "LePassword#69", true)

	t.Run("email already in use", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"email": "king@test.cd"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/me", getToken(t, usr), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("update name and phone", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"name": "Awe Prime", "phone": "+243810000000"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/me", getToken(t, usr), body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}

		got, err := env.usrSvc.GetByID(ctxb(), usr.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if got.Name != "Awe Prime" {
			t.Errorf("name = %v; want %v", got.Name, "Awe Prime")
		}
		if got.Phone != "+243810000000" {
			t.Errorf("phone = %v; want %v", got.Phone, "+243810000000")
		}
	})
}

func TestUserApi_passwordReset(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Awe", "awe@test.cd", "LePassword#69", true)

	success := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	tests := []httpTest{
		{
			name:     "known email",
			body:     marchallObj(t, PasswordResetRequest{Email: "awe@test.cd"}),
			wantCode: http.StatusOK,
			wantData: success,
		},
		{
			// same response; do not leak account existence
			name:     "unknown email",
			body:     marchallObj(t, PasswordResetRequest{Email: "who@test.cd"}),
			wantCode: http.StatusOK,
			wantData: success,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
