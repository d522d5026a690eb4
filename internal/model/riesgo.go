package model

import (
	"time"

	"github.com/google/uuid"
)

// RiskScore is the aggregated risk for one consulta.
type RiskScore struct {
	ConsultaID uuid.UUID `json:"consultaId"`
	Score      float64   `json:"score"` // 0 (clean) .. 100 (maximum risk)
	Level      RiskLevel `json:"level"`
	Sources    int       `json:"sources"`
	Validated  int       `json:"validated"`
	Offline    int       `json:"offline"`
	ComputedAt time.Time `json:"computedAt"`
}

// RiskMapEntry is one cell of the per-category risk map.
type RiskMapEntry struct {
	Category SourceType `json:"category"`
	Score    float64    `json:"score"`
	Level    RiskLevel  `json:"level"`
	Sources  int        `json:"sources"`
}

// RiskBubble is one datapoint of the bubble-chart dataset: position by
// score, size by weight, colored by status treatment.
type RiskBubble struct {
	Source   string     `json:"source"`
	Category SourceType `json:"category"`
	Score    float64    `json:"score"`
	Weight   float64    `json:"weight"`
	Status   Status     `json:"status"`
}
