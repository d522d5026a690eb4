package worker

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/model"
)

func TestRunMockIsDeterministic(t *testing.T) {
	c := &sourceCheck{log: logrus.New()}
	consulta := &model.Consulta{DocumentID: "1032456789"}

	for _, source := range Registries {
		first := c.runMock(consulta, source)
		second := c.runMock(consulta, source)
		if first != second {
			t.Errorf("runMock(%q) not deterministic: %+v vs %+v", source.Name, first, second)
		}
	}
}

func TestRunMockProducesOnlyValidStatuses(t *testing.T) {
	c := &sourceCheck{log: logrus.New()}

	documents := []string{"1032456789", "900123456", "AB123456", "52987654"}
	for _, doc := range documents {
		consulta := &model.Consulta{DocumentID: doc}
		for _, source := range Registries {
			out := c.runMock(consulta, source)
			switch out.status {
			case model.StatusValidado, model.StatusOffline, model.StatusError:
			default:
				t.Errorf("runMock(%s, %s) produced status %q", doc, source.Name, out.status)
			}
			if out.status == model.StatusValidado && (out.score < 0 || out.score > 99) {
				t.Errorf("runMock score out of range: %d", out.score)
			}
		}
	}
}
