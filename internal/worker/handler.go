package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

// Handler runs one request against the local pipelines and packs the raw
// output into a response envelope. Normalization is left to the receiving
// Correlator.
type Handler struct {
	router *nlp.Router
}

func NewHandler(router *nlp.Router) *Handler {
	return &Handler{router: router}
}

func (h *Handler) Handle(ctx context.Context, req models.Request) (resp models.Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Worker] Pipeline panicked",
				slog.String("id", req.ID),
				slog.String("task", req.Task.String()),
				slog.Any("panic", r))
			resp = errorResponse(req.ID, fmt.Errorf("pipeline panicked: %v", r))
		}
	}()

	raw, err := h.router.Dispatch(ctx, req.Task, req.Text)
	if err != nil {
		slog.Warn("[Worker] Request failed",
			slog.String("id", req.ID),
			slog.String("task", req.Task.String()),
			slog.String("error", err.Error()))
		return errorResponse(req.ID, err)
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return errorResponse(req.ID, fmt.Errorf("failed to encode result: %w", err))
	}
	return models.Response{ID: req.ID, Status: models.StatusComplete, Result: payload}
}

func errorResponse(id string, err error) models.Response {
	return models.Response{ID: id, Status: models.StatusError, Error: err.Error()}
}
