package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/client"
	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/internal/store"
)

// VerifyWorker processes queued verification requests: it fans a consulta
// out across every registry, records one resultado per source, and closes
// the consulta when all sources have reported.
type VerifyWorker struct {
	repo       *store.ConsultaRepository
	consultas  *service.ConsultaService
	resultados *service.ResultadoService
	check      *sourceCheck
	log        *logrus.Logger
}

func NewVerifyWorker(
	repo *store.ConsultaRepository,
	consultas *service.ConsultaService,
	resultados *service.ResultadoService,
	fuentes client.SourceChecker,
	evidence client.StorageClient,
	log *logrus.Logger,
) *VerifyWorker {
	return &VerifyWorker{
		repo:       repo,
		consultas:  consultas,
		resultados: resultados,
		check:      &sourceCheck{fuentes: fuentes, evidence: evidence, log: log},
		log:        log,
	}
}

// ProcessTask handles one verification task end to end. Returning an error
// lets asynq retry the whole consulta, so per-source failures are recorded
// as resultados instead of failing the task.
func (w *VerifyWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.VerifyTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log := w.log.WithField("consulta_id", payload.ConsultaID)
	log.Info("verification started")

	consulta, err := w.repo.Get(ctx, payload.ConsultaID)
	if err != nil {
		return fmt.Errorf("failed to load consulta %s: %w", payload.ConsultaID, err)
	}

	if err := w.consultas.MarkStarted(ctx, consulta.ID); err != nil {
		return fmt.Errorf("failed to mark consulta started: %w", err)
	}

	failures := 0
	for _, source := range Registries {
		if err := w.checkSource(ctx, consulta, source); err != nil {
			log.WithError(err).WithField("source", source.Name).Error("source check not recorded")
			failures++
		}
	}

	errMsg := ""
	if failures == len(Registries) {
		errMsg = "no source could be checked"
	}
	if err := w.consultas.MarkCompleted(ctx, consulta.ID, errMsg); err != nil {
		return fmt.Errorf("failed to mark consulta completed: %w", err)
	}

	log.WithField("sources", len(Registries)).Info("verification finished")
	return nil
}

func (w *VerifyWorker) checkSource(ctx context.Context, consulta *model.Consulta, source RegistrySource) error {
	resultado := &model.Resultado{
		ID:         uuid.New(),
		ConsultaID: consulta.ID,
		Source:     source.Name,
		SourceType: source.Type,
		Status:     model.StatusEnProceso,
	}
	if err := w.repo.CreateResultado(ctx, resultado); err != nil {
		return fmt.Errorf("failed to create resultado: %w", err)
	}

	out := w.check.run(ctx, consulta, source, resultado.ID)
	return w.resultados.RecordOutcome(ctx, resultado.ID, out.status, out.score, out.detail, out.evidenceKey)
}
