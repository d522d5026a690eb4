package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Consulta is one verification request submitted by a user, tracked end to
// end. Candidate fields are display-only.
type Consulta struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID    `gorm:"type:uuid;index;not null" json:"userId"`
	CandidateName string       `gorm:"not null" json:"candidateName"`
	DocumentID    string       `gorm:"not null" json:"documentId"`
	DocumentType  DocumentType `gorm:"not null" json:"documentType"`
	Status        Status       `gorm:"index;not null" json:"status"`
	Error         *string      `json:"error,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	StartedAt     *time.Time   `json:"startedAt,omitempty"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`

	Resultados []Resultado `gorm:"foreignKey:ConsultaID" json:"resultados,omitempty"`
}

// Resultado is one per-source outcome belonging to a consulta.
type Resultado struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConsultaID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"consultaId"`
	Source      string     `gorm:"not null" json:"source"`
	SourceType  SourceType `gorm:"not null" json:"sourceType"`
	Status      Status     `gorm:"index;not null" json:"status"`
	Score       int        `json:"score"`
	Detail      string     `json:"detail,omitempty"`
	EvidenceKey string     `json:"-"` // opaque storage key, resolved via the evidencia endpoint
	HasEvidence bool       `gorm:"-" json:"hasEvidence"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CheckedAt   *time.Time `json:"checkedAt,omitempty"`
}

// Task types routed through Asynq.
const (
	TaskTypeVerify    = "consulta:verify"
	TaskTypeRevalidar = "resultado:revalidar"
)

// VerifyTaskPayload is the payload of a consulta:verify task.
type VerifyTaskPayload struct {
	ConsultaID uuid.UUID `json:"consultaId"`
}

// RevalidarTaskPayload is the payload of a resultado:revalidar task.
type RevalidarTaskPayload struct {
	ResultadoID uuid.UUID `json:"resultadoId"`
}

// ConsultaCreateRequest submits a new verification.
type ConsultaCreateRequest struct {
	CandidateName string       `json:"candidateName" validate:"required,min=3,max=160"`
	DocumentID    string       `json:"documentId" validate:"required,min=4,max=32"`
	DocumentType  DocumentType `json:"documentType" validate:"required,oneof=cedula pasaporte nit cedula_extranjeria"`
}

// ConsultaAcceptedResponse acknowledges a submitted consulta.
type ConsultaAcceptedResponse struct {
	Consulta *Consulta `json:"consulta"`
	QueuedAt time.Time `json:"queuedAt"`
}

// RelanzarResponse acknowledges a retry request. Acceptance does not imply
// an immediate status change; the revalidation worker reports progress
// through subsequent polls.
type RelanzarResponse struct {
	ResultadoID uuid.UUID `json:"resultadoId"`
	Accepted    bool      `json:"accepted"`
	Status      Status    `json:"status"`
}

// EvidenceResponse resolves an evidence reference to a downloadable URL.
type EvidenceResponse struct {
	ResultadoID uuid.UUID `json:"resultadoId"`
	URL         string    `json:"url"`
	ExpiresIn   int       `json:"expiresIn"` // seconds
}
