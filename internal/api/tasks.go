package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

// queueProvenanceHeader marks requests originating from the task-queue runner.
// Public clients never reach this endpoint.
const queueProvenanceHeader = "X-Hermod-Queue"

func (a *api) wakeTaskHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Header.Get(queueProvenanceHeader) == "" {
		a.errorResponse(w, r, http.StatusForbidden, "missing queue provenance")
		return
	}

	owner := r.FormValue("owner")
	deviceParam := r.FormValue("device")
	if owner == "" || deviceParam == "" {
		a.errorResponse(w, r, http.StatusBadRequest, "owner and device are required")
		return
	}

	device, err := domain.ParseDeviceID(deviceParam)
	if err != nil {
		a.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	authToken, err := a.configRepo.PushAuthToken(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.errorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	newToken, err := a.waker.Wake(ctx, authToken, domain.UserID(owner), device)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.errorResponse(w, r, http.StatusGone, "unknown device")
		return
	case errors.Is(err, domain.ErrInvalidPushAuthToken):
		// Tell the task runner to retry; the credential refresh happens out
		// of band.
		a.errorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	case err != nil:
		a.errorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	if newToken != "" {
		if err := a.configRepo.SetPushAuthToken(ctx, newToken); err != nil {
			a.logger.Error("failed to persist rotated push auth token", zap.Error(err))
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Done."))
}
