package e2e

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestRegister_InvalidBody(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/auth/register", `{"email":"not-an-email","password":"x"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ta := setupApp(t)

	email := fmt.Sprintf("dup-%s@example.com", uuid.NewString()[:8])
	body := fmt.Sprintf(`{"email":%q,"password":"super-secret-1","name":"Dup Tester"}`, email)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/auth/register", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	readBody(t, resp)

	resp, err = doRequest(ta.app, http.MethodPost, "/api/auth/register", body, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestLogin_RoundTrip(t *testing.T) {
	ta := setupApp(t)

	email := fmt.Sprintf("login-%s@example.com", uuid.NewString()[:8])
	register := fmt.Sprintf(`{"email":%q,"password":"super-secret-1","name":"Login Tester"}`, email)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/auth/register", register, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	readBody(t, resp)

	login := fmt.Sprintf(`{"email":%q,"password":"super-secret-1"}`, email)
	resp, err = doRequest(ta.app, http.MethodPost, "/api/auth/login", login, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["token"] == "" || body["token"] == nil {
		t.Error("expected token in login response")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	ta := setupApp(t)

	email := fmt.Sprintf("wrongpw-%s@example.com", uuid.NewString()[:8])
	register := fmt.Sprintf(`{"email":%q,"password":"super-secret-1","name":"WrongPW Tester"}`, email)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/auth/register", register, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	readBody(t, resp)

	login := fmt.Sprintf(`{"email":%q,"password":"not-the-password"}`, email)
	resp, err = doRequest(ta.app, http.MethodPost, "/api/auth/login", login, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAPI_RequiresAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/consultas/", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}
