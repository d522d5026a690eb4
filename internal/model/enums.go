package model

// Status is the shared vocabulary for consultas and their per-source
// resultados. The set is closed: values outside it must never be stored, and
// display code maps them to the neutral desconocido treatment instead of
// failing.
type Status string

const (
	// StatusPendiente: accepted, not yet started.
	StatusPendiente Status = "pendiente"
	// StatusEnProceso: accepted, work ongoing.
	StatusEnProceso Status = "en_proceso"
	// StatusCompletado: consulta finished, results available.
	StatusCompletado Status = "completado"
	// StatusValidado: resultado finished successfully.
	StatusValidado Status = "validado"
	// StatusOffline: the resultado's source was unreachable; retryable.
	StatusOffline Status = "offline"
	// StatusRevalidando: a retry is confirmed in progress by the server.
	StatusRevalidando Status = "revalidando"
	// StatusError: terminal failure.
	StatusError Status = "error"

	// StatusDesconocido is the fail-safe display fallback. Never persisted.
	StatusDesconocido Status = "desconocido"
)

var ValidStatuses = []Status{
	StatusPendiente, StatusEnProceso, StatusCompletado, StatusValidado,
	StatusOffline, StatusRevalidando, StatusError,
}

// Known reports whether s belongs to the closed status set.
func (s Status) Known() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Retryable reports whether a user may trigger a retry for this status.
func (s Status) Retryable() bool {
	return s == StatusOffline
}

// Terminal reports whether no further server-side transition is expected.
func (s Status) Terminal() bool {
	return s == StatusCompletado || s == StatusValidado || s == StatusError
}

// Normalize maps any unrecognized value to StatusDesconocido so renderers
// never have to handle an open set.
func (s Status) Normalize() Status {
	if s.Known() {
		return s
	}
	return StatusDesconocido
}

var statusLabels = map[Status]string{
	StatusPendiente:   "Pendiente",
	StatusEnProceso:   "En proceso",
	StatusCompletado:  "Completado",
	StatusValidado:    "Validado",
	StatusOffline:     "Fuente no disponible",
	StatusRevalidando: "Revalidando…",
	StatusError:       "Error",
	StatusDesconocido: "Desconocido",
}

// Label returns the display label for s, falling back to the neutral
// desconocido label for values outside the closed set.
func (s Status) Label() string {
	return statusLabels[s.Normalize()]
}

// Source categories queried during a verification.
type SourceType string

const (
	SourceTypeJudicial   SourceType = "judicial"
	SourceTypeFinanciera SourceType = "financiera"
	SourceTypeIdentidad  SourceType = "identidad"
	SourceTypeSanciones  SourceType = "sanciones"
	SourceTypeMedios     SourceType = "medios"
)

var ValidSourceTypes = []SourceType{
	SourceTypeJudicial, SourceTypeFinanciera, SourceTypeIdentidad,
	SourceTypeSanciones, SourceTypeMedios,
}

// Candidate document types.
type DocumentType string

const (
	DocumentTypeCedula      DocumentType = "cedula"
	DocumentTypePasaporte   DocumentType = "pasaporte"
	DocumentTypeNIT         DocumentType = "nit"
	DocumentTypeExtranjeria DocumentType = "cedula_extranjeria"
)

var ValidDocumentTypes = []DocumentType{
	DocumentTypeCedula, DocumentTypePasaporte, DocumentTypeNIT, DocumentTypeExtranjeria,
}

// Risk levels derived from the aggregated score.
type RiskLevel string

const (
	RiskLevelBajo  RiskLevel = "bajo"
	RiskLevelMedio RiskLevel = "medio"
	RiskLevelAlto  RiskLevel = "alto"
)
