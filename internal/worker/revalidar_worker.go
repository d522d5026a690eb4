package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/client"
	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/internal/store"
)

// RevalidarWorker re-runs a single source check after a user asked to retry
// an offline resultado. The task carries no retry policy of its own: one
// user action maps to at most one re-check.
type RevalidarWorker struct {
	repo       *store.ConsultaRepository
	resultados *service.ResultadoService
	check      *sourceCheck
	log        *logrus.Logger
}

func NewRevalidarWorker(
	repo *store.ConsultaRepository,
	resultados *service.ResultadoService,
	fuentes client.SourceChecker,
	evidence client.StorageClient,
	log *logrus.Logger,
) *RevalidarWorker {
	return &RevalidarWorker{
		repo:       repo,
		resultados: resultados,
		check:      &sourceCheck{fuentes: fuentes, evidence: evidence, log: log},
		log:        log,
	}
}

func (w *RevalidarWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.RevalidarTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log := w.log.WithField("resultado_id", payload.ResultadoID)
	log.Info("revalidation started")

	resultado, err := w.repo.GetResultado(ctx, payload.ResultadoID)
	if err != nil {
		return fmt.Errorf("failed to load resultado %s: %w", payload.ResultadoID, err)
	}
	consulta, err := w.repo.Get(ctx, resultado.ConsultaID)
	if err != nil {
		return fmt.Errorf("failed to load consulta %s: %w", resultado.ConsultaID, err)
	}

	if err := w.resultados.MarkRevalidando(ctx, resultado.ID); err != nil {
		return fmt.Errorf("failed to mark resultado revalidando: %w", err)
	}

	source := RegistrySource{Name: resultado.Source, Type: resultado.SourceType}
	out := w.check.run(ctx, consulta, source, resultado.ID)
	if err := w.resultados.RecordOutcome(ctx, resultado.ID, out.status, out.score, out.detail, out.evidenceKey); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	log.WithField("status", out.status).Info("revalidation finished")
	return nil
}
