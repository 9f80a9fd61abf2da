package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/riskibarqy/prediction-pool/internal/domain/syncrun"
	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

// qstashMessageHeader is set by QStash on every delivery; it marks a call
// that belongs to the self-scheduling chain.
const qstashMessageHeader = "Upstash-Message-Id"

// Sync is the external trigger. It always answers 200 so the caller's own
// health checks never see sync failures.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Sync")
	defer span.End()

	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusOK, syncResponse{Diagnostics: []string{}, Error: err.Error()})
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeJSON(w, http.StatusOK, syncResponse{Diagnostics: []string{}, Error: err.Error()})
		return
	}
	championshipID := strings.TrimSpace(req.ChampionshipID)

	trigger := syncrun.TriggerExternal
	queued := strings.TrimSpace(r.Header.Get(qstashMessageHeader)) != ""
	if queued {
		trigger = syncrun.TriggerQueue
	}

	result, err := h.syncService.Run(ctx, usecase.SyncInput{
		Trigger:        trigger,
		ChampionshipID: championshipID,
	})

	if queued && h.jobOrchestrator != nil {
		if _, chainErr := h.jobOrchestrator.ScheduleNext(ctx, usecase.JobChainInput{ChampionshipID: championshipID}); chainErr != nil {
			h.logger.WarnContext(ctx, "schedule next queued sync failed", "championship_id", championshipID, "error", chainErr)
		}
	}

	resp := syncResponse{
		Success:     err == nil,
		Updates:     result.Updates,
		RunID:       result.RunID,
		Diagnostics: diagnosticsToStrings(result.Diagnostics),
	}
	if err != nil {
		resp.Error = err.Error()
		if !errors.Is(err, usecase.ErrSyncInProgress) {
			h.logger.WarnContext(ctx, "external sync failed", "trigger", trigger, "championship_id", championshipID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ForceSync runs a cycle and streams its log to the operator as it happens.
func (h *Handler) ForceSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ForceSync")
	defer span.End()

	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	stream := newFlushWriter(w)
	result, err := h.syncService.Run(ctx, usecase.SyncInput{
		Trigger:        syncrun.TriggerManual,
		ChampionshipID: strings.TrimSpace(req.ChampionshipID),
		Log:            stream,
	})
	if err != nil {
		_, _ = io.WriteString(stream, "sync failed: "+err.Error()+"\n")
		return
	}
	_, _ = io.WriteString(stream, "done: run="+result.RunID+" status="+string(result.Status)+"\n")
}

func (h *Handler) GetLatestSyncRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLatestSyncRun")
	defer span.End()

	run, err := h.syncService.LatestRun(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, syncRunToDTO(run))
}

func (h *Handler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSchedulerStatus")
	defer span.End()

	if err := requireDependency(h.scheduler != nil, "interval scheduler"); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, h.scheduler.Status())
}

type flushWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	flusher, _ := w.(http.Flusher)
	return &flushWriter{w: w, flusher: flusher}
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if f.flusher != nil {
		f.flusher.Flush()
	}
	return n, err
}
