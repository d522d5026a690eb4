package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/store"
)

// RiesgoService derives risk artifacts (aggregate score, per-category map,
// bubble dataset) from a consulta's resultados. All derivations are pure
// functions over the stored rows; nothing is cached.
type RiesgoService struct {
	repo      *store.ConsultaRepository
	consultas *ConsultaService
}

func NewRiesgoService(repo *store.ConsultaRepository, consultas *ConsultaService) *RiesgoService {
	return &RiesgoService{repo: repo, consultas: consultas}
}

// Source-category weights: a judicial hit matters more than a media mention.
var categoryWeights = map[model.SourceType]float64{
	model.SourceTypeJudicial:   1.5,
	model.SourceTypeSanciones:  1.4,
	model.SourceTypeFinanciera: 1.2,
	model.SourceTypeIdentidad:  1.0,
	model.SourceTypeMedios:     0.8,
}

// Uncertainty penalties for sources that produced no verdict.
const (
	penaltyOffline = 50
	penaltyError   = 75
)

// CalcularRiesgo returns the aggregated risk score for one consulta.
func (s *RiesgoService) CalcularRiesgo(ctx context.Context, userID, consultaID uuid.UUID) (*model.RiskScore, error) {
	resultados, err := s.load(ctx, userID, consultaID)
	if err != nil {
		return nil, err
	}
	score := aggregateScore(resultados)
	score.ConsultaID = consultaID
	score.ComputedAt = time.Now()
	return score, nil
}

// MapaRiesgo returns the per-category risk map for one consulta.
func (s *RiesgoService) MapaRiesgo(ctx context.Context, userID, consultaID uuid.UUID) ([]model.RiskMapEntry, error) {
	resultados, err := s.load(ctx, userID, consultaID)
	if err != nil {
		return nil, err
	}
	return riskMap(resultados), nil
}

// BurbujaRiesgo returns the bubble-chart dataset for one consulta.
func (s *RiesgoService) BurbujaRiesgo(ctx context.Context, userID, consultaID uuid.UUID) ([]model.RiskBubble, error) {
	resultados, err := s.load(ctx, userID, consultaID)
	if err != nil {
		return nil, err
	}
	return riskBubbles(resultados), nil
}

func (s *RiesgoService) load(ctx context.Context, userID, consultaID uuid.UUID) ([]model.Resultado, error) {
	if _, err := s.consultas.Get(ctx, userID, consultaID); err != nil {
		return nil, err
	}
	return s.repo.ListResultados(ctx, consultaID)
}

// itemRisk maps one resultado to its risk contribution, or false when the
// item carries no signal yet (still pending or in progress).
func itemRisk(r model.Resultado) (float64, bool) {
	switch r.Status.Normalize() {
	case model.StatusValidado:
		return float64(r.Score), true
	case model.StatusOffline, model.StatusRevalidando:
		return penaltyOffline, true
	case model.StatusError:
		return penaltyError, true
	default:
		return 0, false
	}
}

// aggregateScore computes the weighted mean risk over all resultados that
// carry a signal. No signal at all yields a zero score at level bajo.
func aggregateScore(resultados []model.Resultado) *model.RiskScore {
	var weightedSum, totalWeight float64
	score := &model.RiskScore{Sources: len(resultados)}

	for _, r := range resultados {
		switch r.Status.Normalize() {
		case model.StatusValidado:
			score.Validated++
		case model.StatusOffline, model.StatusRevalidando:
			score.Offline++
		}

		risk, ok := itemRisk(r)
		if !ok {
			continue
		}
		weight := categoryWeights[r.SourceType]
		if weight == 0 {
			weight = 1.0
		}
		weightedSum += risk * weight
		totalWeight += weight
	}

	if totalWeight > 0 {
		score.Score = weightedSum / totalWeight
	}
	score.Level = levelFor(score.Score)
	return score
}

// levelFor buckets a 0..100 risk score.
func levelFor(score float64) model.RiskLevel {
	switch {
	case score < 34:
		return model.RiskLevelBajo
	case score < 67:
		return model.RiskLevelMedio
	default:
		return model.RiskLevelAlto
	}
}

func riskMap(resultados []model.Resultado) []model.RiskMapEntry {
	type bucket struct {
		sum     float64
		count   int
		sources int
	}
	buckets := make(map[model.SourceType]*bucket)
	order := make([]model.SourceType, 0, len(model.ValidSourceTypes))

	for _, r := range resultados {
		b, ok := buckets[r.SourceType]
		if !ok {
			b = &bucket{}
			buckets[r.SourceType] = b
			order = append(order, r.SourceType)
		}
		b.sources++
		if risk, ok := itemRisk(r); ok {
			b.sum += risk
			b.count++
		}
	}

	entries := make([]model.RiskMapEntry, 0, len(order))
	for _, category := range order {
		b := buckets[category]
		avg := 0.0
		if b.count > 0 {
			avg = b.sum / float64(b.count)
		}
		entries = append(entries, model.RiskMapEntry{
			Category: category,
			Score:    avg,
			Level:    levelFor(avg),
			Sources:  b.sources,
		})
	}
	return entries
}

func riskBubbles(resultados []model.Resultado) []model.RiskBubble {
	bubbles := make([]model.RiskBubble, 0, len(resultados))
	for _, r := range resultados {
		risk, ok := itemRisk(r)
		if !ok {
			continue
		}
		weight := categoryWeights[r.SourceType]
		if weight == 0 {
			weight = 1.0
		}
		bubbles = append(bubbles, model.RiskBubble{
			Source:   r.Source,
			Category: r.SourceType,
			Score:    risk,
			Weight:   weight,
			Status:   r.Status.Normalize(),
		})
	}
	return bubbles
}
