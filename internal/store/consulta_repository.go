package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/econfia/api/internal/model"
)

// ConsultaRepository persists consultas and their resultados.
type ConsultaRepository struct {
	db *gorm.DB
}

func NewConsultaRepository(db *gorm.DB) *ConsultaRepository {
	return &ConsultaRepository{db: db}
}

func (r *ConsultaRepository) Create(ctx context.Context, consulta *model.Consulta) error {
	return r.db.WithContext(ctx).Create(consulta).Error
}

// ListByUser returns the caller's consultas, newest first. This is the job
// list the dashboard polls.
func (r *ConsultaRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Consulta, error) {
	var consultas []model.Consulta
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&consultas).Error
	return consultas, err
}

func (r *ConsultaRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consulta, error) {
	var consulta model.Consulta
	err := r.db.WithContext(ctx).First(&consulta, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &consulta, nil
}

// MarkStarted transitions a consulta into en_proceso.
func (r *ConsultaRepository) MarkStarted(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.Consulta{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.StatusEnProceso,
			"started_at": &now,
		}).Error
}

// MarkCompleted finalizes a consulta. A non-empty errMsg records a terminal
// error status instead.
func (r *ConsultaRepository) MarkCompleted(ctx context.Context, id uuid.UUID, errMsg string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       model.StatusCompletado,
		"completed_at": &now,
	}
	if errMsg != "" {
		updates["status"] = model.StatusError
		updates["error"] = &errMsg
	}
	return r.db.WithContext(ctx).Model(&model.Consulta{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ConsultaRepository) CreateResultado(ctx context.Context, resultado *model.Resultado) error {
	return r.db.WithContext(ctx).Create(resultado).Error
}

// ListResultados returns the per-source outcomes for one consulta in stable
// source order. This is the detail view the dashboard polls.
func (r *ConsultaRepository) ListResultados(ctx context.Context, consultaID uuid.UUID) ([]model.Resultado, error) {
	var resultados []model.Resultado
	err := r.db.WithContext(ctx).
		Where("consulta_id = ?", consultaID).
		Order("source ASC").
		Find(&resultados).Error
	if err != nil {
		return nil, err
	}
	for i := range resultados {
		resultados[i].HasEvidence = resultados[i].EvidenceKey != ""
	}
	return resultados, nil
}

func (r *ConsultaRepository) GetResultado(ctx context.Context, id uuid.UUID) (*model.Resultado, error) {
	var resultado model.Resultado
	err := r.db.WithContext(ctx).First(&resultado, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	resultado.HasEvidence = resultado.EvidenceKey != ""
	return &resultado, nil
}

// SetResultadoStatus writes a bare status transition (e.g. revalidando when
// the retry worker picks a task up).
func (r *ConsultaRepository) SetResultadoStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	return r.db.WithContext(ctx).Model(&model.Resultado{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// RecordOutcome writes the final verdict of one source check.
func (r *ConsultaRepository) RecordOutcome(ctx context.Context, id uuid.UUID, status model.Status, score int, detail, evidenceKey string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"score":      score,
		"detail":     detail,
		"checked_at": &now,
	}
	if evidenceKey != "" {
		updates["evidence_key"] = evidenceKey
	}
	return r.db.WithContext(ctx).Model(&model.Resultado{}).
		Where("id = ?", id).
		Updates(updates).Error
}
