package model

import "testing"

func TestStatusNormalizeClosedSet(t *testing.T) {
	for _, s := range ValidStatuses {
		if got := s.Normalize(); got != s {
			t.Errorf("Normalize(%q) = %q, want unchanged", s, got)
		}
	}

	for _, raw := range []Status{"", "running", "COMPLETADO", "offline "} {
		if got := raw.Normalize(); got != StatusDesconocido {
			t.Errorf("Normalize(%q) = %q, want %q", raw, got, StatusDesconocido)
		}
	}
}

func TestStatusLabelFallsBackForUnknown(t *testing.T) {
	if got := Status("whatever").Label(); got != "Desconocido" {
		t.Errorf("Label for unknown status = %q, want %q", got, "Desconocido")
	}
	if got := StatusOffline.Label(); got != "Fuente no disponible" {
		t.Errorf("Label(offline) = %q", got)
	}
}

func TestStatusRetryable(t *testing.T) {
	if !StatusOffline.Retryable() {
		t.Error("offline must be retryable")
	}
	for _, s := range []Status{StatusPendiente, StatusEnProceso, StatusCompletado, StatusValidado, StatusRevalidando, StatusError, StatusDesconocido} {
		if s.Retryable() {
			t.Errorf("%q must not be retryable", s)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompletado: true,
		StatusValidado:   true,
		StatusError:      true,
	}
	for _, s := range ValidStatuses {
		if got := s.Terminal(); got != terminal[s] {
			t.Errorf("Terminal(%q) = %v, want %v", s, got, terminal[s])
		}
	}
}
