package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/client"
	"github.com/econfia/api/internal/model"
)

// RegistrySource is one external registry queried during a verification.
type RegistrySource struct {
	Name string
	Type model.SourceType
}

// Registries is the fixed set of sources every consulta is checked against.
var Registries = []RegistrySource{
	{Name: "Rama Judicial - Consulta de Procesos", Type: model.SourceTypeJudicial},
	{Name: "Policía Nacional - Antecedentes", Type: model.SourceTypeJudicial},
	{Name: "Procuraduría General", Type: model.SourceTypeSanciones},
	{Name: "Listas restrictivas OFAC/ONU", Type: model.SourceTypeSanciones},
	{Name: "Contraloría General", Type: model.SourceTypeFinanciera},
	{Name: "Centrales de riesgo", Type: model.SourceTypeFinanciera},
	{Name: "Registraduría Nacional", Type: model.SourceTypeIdentidad},
	{Name: "Medios y prensa", Type: model.SourceTypeMedios},
}

// outcome is the verdict of one source check.
type outcome struct {
	status      model.Status
	score       int
	detail      string
	evidenceKey string
}

// sourceCheck runs one registry check end to end: start, poll to a terminal
// gateway state, archive evidence. Shared by the verification and
// revalidation workers.
type sourceCheck struct {
	fuentes  client.SourceChecker
	evidence client.StorageClient
	log      *logrus.Logger
}

func (c *sourceCheck) run(ctx context.Context, consulta *model.Consulta, source RegistrySource, resultadoID uuid.UUID) outcome {
	if c.fuentes == nil || !c.fuentes.IsConfigured() {
		return c.runMock(consulta, source)
	}

	started, err := c.fuentes.StartCheck(ctx, &client.StartCheckRequest{
		Source:        source.Name,
		SourceType:    string(source.Type),
		CandidateName: consulta.CandidateName,
		DocumentID:    consulta.DocumentID,
		DocumentType:  string(consulta.DocumentType),
	})
	if err != nil {
		c.log.WithError(err).WithField("source", source.Name).Warn("registry check did not start")
		return outcome{status: model.StatusOffline, score: 0, detail: "fuente no disponible"}
	}

	result, err := c.fuentes.PollCheckStatus(ctx, started.CheckID, 5*time.Second, 10*time.Minute)
	if err != nil {
		c.log.WithError(err).WithField("source", source.Name).Warn("registry check did not finish")
		return outcome{status: model.StatusOffline, score: 0, detail: "fuente no disponible"}
	}

	switch result.Status {
	case client.CheckStatusCompleted:
		key := c.archiveEvidence(ctx, consulta.ID, resultadoID, result.EvidenceURL)
		return outcome{
			status:      model.StatusValidado,
			score:       result.Score,
			detail:      result.Detail,
			evidenceKey: key,
		}
	case client.CheckStatusUnreachable:
		return outcome{status: model.StatusOffline, score: 0, detail: result.Detail}
	default:
		return outcome{status: model.StatusError, score: 0, detail: result.Detail}
	}
}

// archiveEvidence copies the gateway's evidence artifact into our own
// bucket so it outlives the gateway's retention window. Returns the stored
// key, or "" when there is nothing to archive.
func (c *sourceCheck) archiveEvidence(ctx context.Context, consultaID, resultadoID uuid.UUID, evidenceURL string) string {
	if evidenceURL == "" || c.evidence == nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, evidenceURL, nil)
	if err != nil {
		c.log.WithError(err).Warn("evidence download request failed")
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("evidence download failed")
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.WithField("status", resp.StatusCode).Warn("evidence download failed")
		return ""
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("evidencia/%s/%s", consultaID, resultadoID)
	if _, err := c.evidence.Upload(ctx, key, resp.Body, contentType); err != nil {
		c.log.WithError(err).Warn("evidence upload failed")
		return ""
	}
	return key
}

// runMock produces a deterministic verdict when no gateway is configured,
// so the stack runs end to end locally. The verdict is a stable function of
// document and source, including the occasional offline source to exercise
// the retry path.
func (c *sourceCheck) runMock(consulta *model.Consulta, source RegistrySource) outcome {
	h := 0
	for _, b := range []byte(consulta.DocumentID + source.Name) {
		h = h*31 + int(b)
	}
	if h < 0 {
		h = -h
	}

	switch {
	case h%7 == 0:
		return outcome{status: model.StatusOffline, score: 0, detail: "fuente no disponible (simulado)"}
	case h%23 == 0:
		return outcome{status: model.StatusError, score: 0, detail: "error de la fuente (simulado)"}
	default:
		return outcome{
			status: model.StatusValidado,
			score:  h % 100,
			detail: fmt.Sprintf("sin hallazgos relevantes en %s (simulado)", source.Name),
		}
	}
}
