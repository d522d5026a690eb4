// Command econfia-watch is a terminal dashboard over the eConfia API. It
// polls either the consulta list or one consulta's resultados, overlays
// optimistic retry state, and renders an estimated progress column for
// in-flight items.
//
// While watching resultados, typing "r <row>" retries an offline source: the
// row flips to revalidando immediately and rolls back if the dispatch fails.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/pkg/econfia"
	"github.com/econfia/api/pkg/tracker"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8000", "base URL of the eConfia API")
	token := flag.String("token", "", "bearer token (skips login)")
	email := flag.String("email", "", "account email (used when no token is given)")
	password := flag.String("password", "", "account password")
	consultaID := flag.String("consulta", "", "watch one consulta's resultados instead of the consulta list")
	interval := flag.Duration("interval", tracker.DefaultInterval, "poll interval")
	flag.Parse()

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		cancel()
	}()

	bearer := *token
	if bearer == "" {
		if *email == "" || *password == "" {
			fmt.Fprintln(os.Stderr, "either -token or -email/-password is required")
			os.Exit(2)
		}
		var err error
		bearer, err = econfia.Login(ctx, *apiURL, *email, *password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
	}

	api := econfia.NewClient(*apiURL, econfia.StaticToken(bearer))

	var err error
	if *consultaID != "" {
		err = watchResultados(ctx, api, log, *consultaID, *interval)
	} else {
		err = watchConsultas(ctx, api, log, *interval)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// watchConsultas tracks the caller's consulta list. Consultas have no retry
// action, so the overlay stays empty; the tracker still guards against
// out-of-order poll responses.
func watchConsultas(ctx context.Context, api *econfia.Client, log *logrus.Logger, interval time.Duration) error {
	tr, err := tracker.New(tracker.Config[econfia.Consulta]{
		Fetch: func(ctx context.Context) ([]econfia.Consulta, error) {
			return api.ListConsultas(ctx)
		},
		Interval: interval,
		IDOf:     func(c econfia.Consulta) string { return c.ID },
		StatusOf: func(c econfia.Consulta) string { return c.Status },
		Logger:   log,
	})
	if err != nil {
		return err
	}
	tr.Start()
	defer tr.Stop()

	est := tracker.NewEstimator(tracker.DefaultHorizon)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			entries := tr.Snapshot()
			clearScreen()
			fmt.Printf("consultas  (polled every %s, progress is an estimate)\n\n", interval)
			fmt.Printf("%-3s %-24s %-16s %-14s %s\n", "#", "CANDIDATO", "DOCUMENTO", "ESTADO", "PROGRESO")
			for i, e := range entries {
				progress := progressCell(est, e.Item.ID, e.Status, e.Item.StartedAt)
				fmt.Printf("%-3d %-24s %-16s %-14s %s\n",
					i+1,
					truncate(e.Item.CandidateName, 24),
					e.Item.DocumentID,
					statusLabel(e.Status),
					progress,
				)
			}
		}
	}
}

// watchResultados tracks one consulta's per-source outcomes and accepts
// retry commands from stdin.
func watchResultados(ctx context.Context, api *econfia.Client, log *logrus.Logger, consultaID string, interval time.Duration) error {
	tr, err := tracker.New(tracker.Config[econfia.Resultado]{
		Fetch: func(ctx context.Context) ([]econfia.Resultado, error) {
			return api.GetResultados(ctx, consultaID)
		},
		Interval:  interval,
		IDOf:      func(r econfia.Resultado) string { return r.ID },
		StatusOf:  func(r econfia.Resultado) string { return r.Status },
		Retryable: string(model.StatusOffline),
		Logger:    log,
	})
	if err != nil {
		return err
	}
	tr.Start()
	defer tr.Stop()

	est := tracker.NewEstimator(tracker.DefaultHorizon)
	commands := readCommands(ctx)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case row := <-commands:
			retry(ctx, api, tr, row)
		case <-ticker.C:
			entries := tr.Snapshot()
			clearScreen()
			fmt.Printf("resultados de %s  (\"r <#>\" reintenta una fuente offline)\n\n", consultaID)
			fmt.Printf("%-3s %-36s %-12s %-14s %s\n", "#", "FUENTE", "CATEGORIA", "ESTADO", "PROGRESO")
			for i, e := range entries {
				progress := progressCell(est, e.Item.ID, e.Status, nil)
				fmt.Printf("%-3d %-36s %-12s %-14s %s\n",
					i+1,
					truncate(e.Item.Source, 36),
					e.Item.SourceType,
					statusLabel(e.Status),
					progress,
				)
			}
		}
	}
}

// retry pins the row to revalidando and dispatches the mutation. The pin is
// applied before the request so the next render already shows the retry; a
// failed dispatch rolls it back to the server truth.
func retry(ctx context.Context, api *econfia.Client, tr *tracker.Tracker[econfia.Resultado], row int) {
	entries := tr.Snapshot()
	if row < 1 || row > len(entries) {
		return
	}
	entry := entries[row-1]
	if entry.Status != string(model.StatusOffline) {
		return
	}

	id := entry.Item.ID
	tr.MarkRetry(id, string(model.StatusRevalidando))
	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := api.Relanzar(reqCtx, id); err != nil {
			tr.RollbackRetry(id)
		}
	}()
}

// readCommands parses "r <row>" lines from stdin.
func readCommands(ctx context.Context) <-chan int {
	commands := make(chan int)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) != 2 || fields[0] != "r" {
				continue
			}
			row, err := strconv.Atoi(fields[1])
			if err != nil {
				continue
			}
			select {
			case commands <- row:
			case <-ctx.Done():
				return
			}
		}
	}()
	return commands
}

func progressCell(est *tracker.Estimator, id, status string, startedAt *time.Time) string {
	switch model.Status(status) {
	case model.StatusEnProceso, model.StatusRevalidando, model.StatusPendiente:
		var start time.Time
		if startedAt != nil {
			start = *startedAt
		}
		est.Observe(id, start)
		return fmt.Sprintf("~%d%%", est.Percent(id))
	default:
		est.Forget(id)
		return ""
	}
}

func clearScreen() {
	fmt.Print("\033[2J\033[H")
}

func statusLabel(status string) string {
	return model.Status(status).Normalize().Label()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
