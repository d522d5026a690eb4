package service

import (
	"testing"

	"github.com/econfia/api/internal/model"
)

func resultado(source string, sourceType model.SourceType, status model.Status, score int) model.Resultado {
	return model.Resultado{
		Source:     source,
		SourceType: sourceType,
		Status:     status,
		Score:      score,
	}
}

func TestItemRisk(t *testing.T) {
	cases := []struct {
		status model.Status
		score  int
		want   float64
		signal bool
	}{
		{model.StatusValidado, 40, 40, true},
		{model.StatusOffline, 0, penaltyOffline, true},
		{model.StatusRevalidando, 0, penaltyOffline, true},
		{model.StatusError, 0, penaltyError, true},
		{model.StatusPendiente, 0, 0, false},
		{model.StatusEnProceso, 0, 0, false},
		{"garbage", 90, 0, false},
	}

	for _, tc := range cases {
		got, ok := itemRisk(resultado("x", model.SourceTypeJudicial, tc.status, tc.score))
		if ok != tc.signal {
			t.Errorf("itemRisk(%q): signal = %v, want %v", tc.status, ok, tc.signal)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("itemRisk(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestAggregateScoreEmpty(t *testing.T) {
	score := aggregateScore(nil)
	if score.Score != 0 {
		t.Errorf("empty score = %v, want 0", score.Score)
	}
	if score.Level != model.RiskLevelBajo {
		t.Errorf("empty level = %v, want bajo", score.Level)
	}
}

func TestAggregateScoreWeightedMean(t *testing.T) {
	resultados := []model.Resultado{
		resultado("rama", model.SourceTypeJudicial, model.StatusValidado, 60),  // weight 1.5
		resultado("medios", model.SourceTypeMedios, model.StatusValidado, 10), // weight 0.8
	}

	score := aggregateScore(resultados)
	want := (60*1.5 + 10*0.8) / (1.5 + 0.8)
	if diff := score.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("weighted score = %v, want %v", score.Score, want)
	}
	if score.Sources != 2 || score.Validated != 2 || score.Offline != 0 {
		t.Errorf("counters = %+v", score)
	}
}

func TestAggregateScoreSkipsInFlight(t *testing.T) {
	resultados := []model.Resultado{
		resultado("rama", model.SourceTypeJudicial, model.StatusValidado, 20),
		resultado("contraloria", model.SourceTypeFinanciera, model.StatusEnProceso, 0),
		resultado("ofac", model.SourceTypeSanciones, model.StatusOffline, 0),
	}

	score := aggregateScore(resultados)
	want := (20*1.5 + penaltyOffline*1.4) / (1.5 + 1.4)
	if diff := score.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v", score.Score, want)
	}
	if score.Offline != 1 {
		t.Errorf("offline counter = %d, want 1", score.Offline)
	}
}

func TestLevelForBuckets(t *testing.T) {
	cases := []struct {
		score float64
		want  model.RiskLevel
	}{
		{0, model.RiskLevelBajo},
		{33.9, model.RiskLevelBajo},
		{34, model.RiskLevelMedio},
		{66.9, model.RiskLevelMedio},
		{67, model.RiskLevelAlto},
		{100, model.RiskLevelAlto},
	}
	for _, tc := range cases {
		if got := levelFor(tc.score); got != tc.want {
			t.Errorf("levelFor(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestRiskMapGroupsByCategory(t *testing.T) {
	resultados := []model.Resultado{
		resultado("rama", model.SourceTypeJudicial, model.StatusValidado, 20),
		resultado("policia", model.SourceTypeJudicial, model.StatusValidado, 40),
		resultado("medios", model.SourceTypeMedios, model.StatusEnProceso, 0),
	}

	entries := riskMap(resultados)
	if len(entries) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(entries))
	}

	judicial := entries[0]
	if judicial.Category != model.SourceTypeJudicial {
		t.Fatalf("expected judicial first (insertion order), got %v", judicial.Category)
	}
	if judicial.Score != 30 {
		t.Errorf("judicial avg = %v, want 30", judicial.Score)
	}
	if judicial.Sources != 2 {
		t.Errorf("judicial sources = %d, want 2", judicial.Sources)
	}

	medios := entries[1]
	if medios.Score != 0 || medios.Sources != 1 {
		t.Errorf("medios entry = %+v", medios)
	}
}

func TestRiskBubblesSkipInFlight(t *testing.T) {
	resultados := []model.Resultado{
		resultado("rama", model.SourceTypeJudicial, model.StatusValidado, 20),
		resultado("contraloria", model.SourceTypeFinanciera, model.StatusPendiente, 0),
		resultado("ofac", model.SourceTypeSanciones, model.StatusError, 0),
	}

	bubbles := riskBubbles(resultados)
	if len(bubbles) != 2 {
		t.Fatalf("expected 2 bubbles, got %d", len(bubbles))
	}
	if bubbles[0].Source != "rama" || bubbles[0].Score != 20 || bubbles[0].Weight != 1.5 {
		t.Errorf("first bubble = %+v", bubbles[0])
	}
	if bubbles[1].Score != penaltyError {
		t.Errorf("error bubble score = %v, want %v", bubbles[1].Score, float64(penaltyError))
	}
}
