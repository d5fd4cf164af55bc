package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/dispatch"
)

const maxRequestBody = 1 << 20

type runRequest struct {
	Params string `json:"params"`
	Code   string `json:"code"`
	Miri   bool   `json:"miri"`
}

func (r *router) handleRun(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.deps.Commands == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "command service is unavailable"})
		return
	}
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	var payload runRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBody)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	var result commands.EvalResult
	err := r.dispatch(req.Context(), requestID, func(ctx context.Context) error {
		var evalErr error
		result, evalErr = r.deps.Commands.Evaluate(ctx, commands.EvalInput{
			Params: payload.Params,
			Code:   payload.Code,
			Miri:   payload.Miri,
		})
		return evalErr
	})
	if err != nil {
		r.writeError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// dispatch runs work on the shared worker pool and waits for it.
func (r *router) dispatch(ctx context.Context, requestID string, work func(context.Context) error) error {
	if r.deps.Engine == nil {
		return work(ctx)
	}
	done := make(chan error, 1)
	_, err := r.deps.Engine.Enqueue(dispatch.Job{
		Kind:      dispatch.JobKindAPI,
		Source:    "http:" + requestID,
		CreatedAt: time.Now().UTC(),
		Run: func(jobCtx context.Context) error {
			done <- work(ctx)
			return nil
		},
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *router) writeError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, dispatch.ErrQueueFull):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": boterr.UserFacing(err)})
	case boterr.IsUserError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": boterr.UserFacing(err)})
	default:
		if r.deps.Logger != nil {
			r.deps.Logger.Error("api request failed", "error", err, "request_id", requestID)
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": boterr.UserFacing(err)})
	}
}
