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

	"github.com/econfia/api/internal/events"
	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/store"
)

// ConsultaService manages verification requests: submission, listing, and
// the status transitions written by the verification worker.
type ConsultaService struct {
	repo        *store.ConsultaRepository
	asynqClient *asynq.Client
	producer    *events.Producer
	log         *logrus.Logger
}

func NewConsultaService(repo *store.ConsultaRepository, asynqClient *asynq.Client, producer *events.Producer, log *logrus.Logger) *ConsultaService {
	return &ConsultaService{
		repo:        repo,
		asynqClient: asynqClient,
		producer:    producer,
		log:         log,
	}
}

// Submit accepts a verification request and queues it for processing.
// Acceptance is acknowledged immediately; progress is observed by polling.
func (s *ConsultaService) Submit(ctx context.Context, userID uuid.UUID, req *model.ConsultaCreateRequest) (*model.ConsultaAcceptedResponse, error) {
	consulta := &model.Consulta{
		ID:            uuid.New(),
		UserID:        userID,
		CandidateName: req.CandidateName,
		DocumentID:    req.DocumentID,
		DocumentType:  req.DocumentType,
		Status:        model.StatusPendiente,
	}

	if err := s.repo.Create(ctx, consulta); err != nil {
		return nil, fmt.Errorf("failed to save consulta: %w", err)
	}

	payload, err := json.Marshal(model.VerifyTaskPayload{ConsultaID: consulta.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(model.TaskTypeVerify, payload)
	if _, err := s.asynqClient.Enqueue(task,
		asynq.Queue("verify"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	); err != nil {
		return nil, fmt.Errorf("failed to enqueue verification: %w", err)
	}

	s.producer.PublishStatusChange(ctx, "consulta", consulta.ID, consulta.Status)
	s.log.WithFields(logrus.Fields{
		"consulta_id": consulta.ID,
		"user_id":     userID,
	}).Info("consulta queued")

	return &model.ConsultaAcceptedResponse{
		Consulta: consulta,
		QueuedAt: time.Now(),
	}, nil
}

// List returns the caller's consultas, newest first.
func (s *ConsultaService) List(ctx context.Context, userID uuid.UUID) ([]model.Consulta, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns one consulta, enforcing ownership.
func (s *ConsultaService) Get(ctx context.Context, userID, consultaID uuid.UUID) (*model.Consulta, error) {
	consulta, err := s.repo.Get(ctx, consultaID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if consulta.UserID != userID {
		return nil, ErrNotFound // do not reveal other users' consultas
	}
	return consulta, nil
}

// MarkStarted transitions a consulta into en_proceso (called by the worker).
func (s *ConsultaService) MarkStarted(ctx context.Context, consultaID uuid.UUID) error {
	if err := s.repo.MarkStarted(ctx, consultaID); err != nil {
		return err
	}
	s.producer.PublishStatusChange(ctx, "consulta", consultaID, model.StatusEnProceso)
	return nil
}

// MarkCompleted finalizes a consulta (called by the worker). A non-empty
// errMsg records a terminal error instead.
func (s *ConsultaService) MarkCompleted(ctx context.Context, consultaID uuid.UUID, errMsg string) error {
	if err := s.repo.MarkCompleted(ctx, consultaID, errMsg); err != nil {
		return err
	}
	status := model.StatusCompletado
	if errMsg != "" {
		status = model.StatusError
	}
	s.producer.PublishStatusChange(ctx, "consulta", consultaID, status)
	return nil
}
