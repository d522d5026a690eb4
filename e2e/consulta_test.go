package e2e

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

const consultaBody = `{"candidateName":"María Pérez","documentId":"1032456789","documentType":"cedula"}`

// submitConsulta queues a verification and returns the consulta id.
func submitConsulta(t *testing.T, ta *testApp, token string) string {
	t.Helper()

	resp, err := doAuthRequest(ta.app, http.MethodPost, "/api/consultas/", token, consultaBody)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	body := parseJSON(t, resp)
	consulta, ok := body["consulta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected consulta object in response, got %v", body)
	}
	id, _ := consulta["id"].(string)
	if id == "" {
		t.Fatal("expected consulta id in response")
	}
	return id
}

func TestConsulta_SubmitAcceptedAsPendiente(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)

	resp, err := doAuthRequest(ta.app, http.MethodPost, "/api/consultas/", token, consultaBody)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)

	body := parseJSON(t, resp)
	consulta, ok := body["consulta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected consulta object in response, got %v", body)
	}
	if consulta["status"] != "pendiente" {
		t.Errorf("expected status 'pendiente' right after submit, got %v", consulta["status"])
	}
	if _, ok := body["queuedAt"]; !ok {
		t.Error("expected 'queuedAt' field in response")
	}
}

func TestConsulta_InvalidBody(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)

	resp, err := doAuthRequest(ta.app, http.MethodPost, "/api/consultas/", token,
		`{"candidateName":"x","documentId":"1","documentType":"licencia"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestConsulta_ListContainsSubmitted(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)
	id := submitConsulta(t, ta, token)

	resp, err := doAuthRequest(ta.app, http.MethodGet, "/api/consultas/", token, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	consultas, ok := body["consultas"].([]interface{})
	if !ok {
		t.Fatalf("expected consultas array, got %v", body)
	}

	found := false
	for _, raw := range consultas {
		c, ok := raw.(map[string]interface{})
		if ok && c["id"] == id {
			found = true
		}
	}
	if !found {
		t.Errorf("submitted consulta %s not present in list", id)
	}
}

func TestConsulta_GetByID(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)
	id := submitConsulta(t, ta, token)

	resp, err := doAuthRequest(ta.app, http.MethodGet, "/api/consultas/"+id, token, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["id"] != id {
		t.Errorf("expected consulta %s, got %v", id, body["id"])
	}
}

func TestConsulta_OwnershipEnforced(t *testing.T) {
	ta := setupApp(t)
	owner := registerUser(t, ta.app)
	id := submitConsulta(t, ta, owner)

	// A different account must not see the consulta, not even as 403.
	other := registerUser(t, ta.app)
	resp, err := doAuthRequest(ta.app, http.MethodGet, "/api/consultas/"+id, other, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestConsulta_NotFound(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)

	resp, err := doAuthRequest(ta.app, http.MethodGet, "/api/consultas/"+uuid.NewString(), token, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestResultados_EmptyBeforeWorkerRuns(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)
	id := submitConsulta(t, ta, token)

	// No worker server runs in this suite, so the consulta stays pendiente
	// and has no resultados yet.
	resp, err := doAuthRequest(ta.app, http.MethodGet, fmt.Sprintf("/api/resultados/%s", id), token, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	resultados, ok := body["resultados"].([]interface{})
	if !ok {
		t.Fatalf("expected resultados array, got %v", body)
	}
	if len(resultados) != 0 {
		t.Errorf("expected no resultados before worker runs, got %d", len(resultados))
	}
}

func TestRelanzar_UnknownResultado(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)

	resp, err := doAuthRequest(ta.app, http.MethodPost,
		fmt.Sprintf("/api/relanzar_bot/%s", uuid.NewString()), token, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestRiesgo_EmptyConsulta(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)
	id := submitConsulta(t, ta, token)

	resp, err := doAuthRequest(ta.app, http.MethodGet, fmt.Sprintf("/api/calcular_riesgo/%s", id), token, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["level"] != "bajo" {
		t.Errorf("expected level 'bajo' with no resultados, got %v", body["level"])
	}
}

func TestExport_ReturnsWorkbook(t *testing.T) {
	ta := setupApp(t)
	token := registerUser(t, ta.app)
	id := submitConsulta(t, ta, token)

	resp, err := doAuthRequest(ta.app, http.MethodGet, fmt.Sprintf("/api/consultas/%s/export", id), token, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %q", ct)
	}
	if body := readBody(t, resp); len(body) == 0 {
		t.Error("expected non-empty workbook body")
	}
}
