// Inventra | 2026
// handler_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inventra/auth-service/internal/core"
)

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupTestRouter(t *testing.T) (*chi.Mux, *mockUserProvider, *mockNotifier) {
	t.Helper()

	svc, provider, notifier := setupTestService(t)
	handler := NewHandler(svc)

	passthrough := func(next http.Handler) http.Handler { return next }

	router := chi.NewRouter()
	handler.RegisterRoutes(router, passthrough, nil)

	return router, provider, notifier
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

func TestLoginEndpointErrorCodes(t *testing.T) {
	tests := []struct {
		name       string
		lookup     func(t *testing.T) (*UserInfo, error)
		wantStatus int
		wantCode   string
	}{
		{
			name: "unknown email",
			lookup: func(t *testing.T) (*UserInfo, error) {
				return nil, core.ErrNotFound
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name: "wrong password",
			lookup: func(t *testing.T) (*UserInfo, error) {
				return testUser(t, "a-different-password"), nil
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name: "disabled account",
			lookup: func(t *testing.T) (*UserInfo, error) {
				u := testUser(t, "the-password-123")
				u.Active = false
				return u, nil
			},
			wantStatus: http.StatusForbidden,
			wantCode:   "ACCOUNT_DISABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, provider, _ := setupTestRouter(t)
			provider.getByEmailFunc = func(ctx context.Context, email string) (*UserInfo, error) {
				return tt.lookup(t)
			}

			rec := postJSON(
				router,
				"/auth/login",
				`{"email":"alice@example.com","password":"the-password-123"}`,
			)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if env := decodeError(t, rec); env.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestLoginEndpointValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email": `},
		{"missing email", `{"password":"the-password-123"}`},
		{"bad email", `{"email":"not-an-email","password":"the-password-123"}`},
		{"short password", `{"email":"a@b.com","password":"short"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _ := setupTestRouter(t)

			rec := postJSON(router, "/auth/login", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	router, provider, _ := setupTestRouter(t)
	provider.createFunc = func(ctx context.Context, email, passwordHash, name, phone string) (*UserInfo, error) {
		return nil, core.ErrDuplicateKey
	}

	rec := postJSON(
		router,
		"/auth/register",
		`{"email":"taken@example.com","password":"the-password-123","name":"Eve"}`,
	)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestRegisterEndpointIgnoresRoleField(t *testing.T) {
	router, provider, _ := setupTestRouter(t)

	provider.createFunc = func(ctx context.Context, email, passwordHash, name, phone string) (*UserInfo, error) {
		return &UserInfo{
			ID:     "user-9",
			Email:  email,
			Name:   name,
			Role:   "seller",
			Active: true,
		}, nil
	}

	// A role in the payload must not influence the created account.
	rec := postJSON(
		router,
		"/auth/register",
		`{"email":"mallory@example.com","password":"the-password-123","name":"Mallory","role":"admin"}`,
	)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var env struct {
		Data UserResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Role != "seller" {
		t.Errorf("response role = %q, want seller", env.Data.Role)
	}
}

func TestForgotPasswordEndpointNonEnumerable(t *testing.T) {
	router, provider, _ := setupTestRouter(t)

	provider.getByEmailFunc = func(ctx context.Context, email string) (*UserInfo, error) {
		if email == "known@example.com" {
			u := testUser(t, "the-password-123")
			u.Email = email
			return u, nil
		}
		return nil, core.ErrNotFound
	}
	provider.setResetGrantFunc = func(ctx context.Context, userID, digest string, expiresAt time.Time) error {
		return nil
	}

	known := postJSON(
		router,
		"/auth/forgot-password",
		`{"email":"known@example.com"}`,
	)
	unknown := postJSON(
		router,
		"/auth/forgot-password",
		`{"email":"unknown@example.com"}`,
	)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Errorf("statuses = %d/%d, both must be 200", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Error("known and unknown emails produce different responses")
	}
}

func TestResetPasswordEndpointErrorCodes(t *testing.T) {
	router, provider, _ := setupTestRouter(t)

	provider.getByResetDigestFunc = func(ctx context.Context, digest string) (*UserInfo, error) {
		return nil, core.ErrNotFound
	}

	rec := postJSON(
		router,
		"/auth/reset-password",
		`{"token":"sixteen-characters-min","password":"brand-new-password"}`,
	)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.Code != "RESET_TOKEN_INVALID" {
		t.Errorf("code = %q, want RESET_TOKEN_INVALID", env.Error.Code)
	}
}
