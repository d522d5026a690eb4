package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/client"
	"github.com/econfia/api/internal/events"
	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/store"
)

// ResultadoService manages per-source outcomes: listing, retry dispatch,
// evidence resolution, and the writes performed by workers.
type ResultadoService struct {
	repo        *store.ConsultaRepository
	asynqClient *asynq.Client
	evidence    client.StorageClient
	producer    *events.Producer
	log         *logrus.Logger
}

func NewResultadoService(repo *store.ConsultaRepository, asynqClient *asynq.Client, evidence client.StorageClient, producer *events.Producer, log *logrus.Logger) *ResultadoService {
	return &ResultadoService{
		repo:        repo,
		asynqClient: asynqClient,
		evidence:    evidence,
		producer:    producer,
		log:         log,
	}
}

// List returns the resultados of one consulta, enforcing ownership.
func (s *ResultadoService) List(ctx context.Context, userID, consultaID uuid.UUID) ([]model.Resultado, error) {
	if _, err := s.owned(ctx, userID, consultaID); err != nil {
		return nil, err
	}
	return s.repo.ListResultados(ctx, consultaID)
}

// Relanzar queues a retry for one offline resultado. The acknowledgement
// does not change the stored status: the revalidation worker flips it to
// revalidando when it picks the task up, which is exactly the latency window
// a client-side optimistic overlay bridges. The call is dispatched at most
// once per user action; the server never auto-retries the mutation.
func (s *ResultadoService) Relanzar(ctx context.Context, userID, resultadoID uuid.UUID) (*model.RelanzarResponse, error) {
	resultado, err := s.repo.GetResultado(ctx, resultadoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, resultado.ConsultaID); err != nil {
		return nil, err
	}
	if !resultado.Status.Retryable() {
		return nil, ErrNotRetryable
	}

	payload, err := json.Marshal(model.RevalidarTaskPayload{ResultadoID: resultadoID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(model.TaskTypeRevalidar, payload)
	if _, err := s.asynqClient.Enqueue(task,
		asynq.Queue("revalidar"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	); err != nil {
		return nil, fmt.Errorf("failed to enqueue revalidation: %w", err)
	}

	s.log.WithField("resultado_id", resultadoID).Info("revalidation queued")

	return &model.RelanzarResponse{
		ResultadoID: resultadoID,
		Accepted:    true,
		Status:      resultado.Status,
	}, nil
}

// ResolveEvidence turns a resultado's opaque evidence key into a short-lived
// download URL.
func (s *ResultadoService) ResolveEvidence(ctx context.Context, userID, resultadoID uuid.UUID) (*model.EvidenceResponse, error) {
	resultado, err := s.repo.GetResultado(ctx, resultadoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, userID, resultado.ConsultaID); err != nil {
		return nil, err
	}
	if resultado.EvidenceKey == "" || s.evidence == nil {
		return nil, ErrNoEvidence
	}

	const expiry = 15 * time.Minute
	url, err := s.evidence.GetSignedURL(ctx, resultado.EvidenceKey, expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign evidence URL: %w", err)
	}

	return &model.EvidenceResponse{
		ResultadoID: resultadoID,
		URL:         url,
		ExpiresIn:   int(expiry.Seconds()),
	}, nil
}

// MarkRevalidando flags a resultado as retry-in-progress (called by the
// revalidation worker when it starts).
func (s *ResultadoService) MarkRevalidando(ctx context.Context, resultadoID uuid.UUID) error {
	if err := s.repo.SetResultadoStatus(ctx, resultadoID, model.StatusRevalidando); err != nil {
		return err
	}
	s.producer.PublishStatusChange(ctx, "resultado", resultadoID, model.StatusRevalidando)
	return nil
}

// RecordOutcome writes a source check's verdict (called by workers).
func (s *ResultadoService) RecordOutcome(ctx context.Context, resultadoID uuid.UUID, status model.Status, score int, detail, evidenceKey string) error {
	if err := s.repo.RecordOutcome(ctx, resultadoID, status, score, detail, evidenceKey); err != nil {
		return err
	}
	s.producer.PublishStatusChange(ctx, "resultado", resultadoID, status)
	return nil
}

func (s *ResultadoService) owned(ctx context.Context, userID, consultaID uuid.UUID) (*model.Consulta, error) {
	consulta, err := s.repo.Get(ctx, consultaID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if consulta.UserID != userID {
		return nil, ErrNotFound
	}
	return consulta, nil
}
