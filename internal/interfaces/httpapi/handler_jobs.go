package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/prediction-pool/internal/usecase"
)

func (h *Handler) RunBootstrapJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunBootstrapJob")
	defer span.End()

	if err := requireDependency(h.jobOrchestrator != nil, "job orchestrator"); err != nil {
		writeError(ctx, w, err)
		return
	}

	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.jobOrchestrator.Bootstrap(ctx, usecase.JobChainInput{
		ChampionshipID: strings.TrimSpace(req.ChampionshipID),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run bootstrap job failed", "championship_id", req.ChampionshipID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}
