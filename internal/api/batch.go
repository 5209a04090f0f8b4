package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize/english"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/domain"
	"github.com/hermodapp/hermod-backend/internal/wire"
)

const (
	// identityHeader is set by the fronting identity-aware proxy after it
	// authenticated the caller.
	identityHeader = "X-Gateway-User"

	// maxBatchBytes caps how much of a request body we are willing to read.
	maxBatchBytes = 1024
)

func (a *api) batchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := r.Header.Get(identityHeader)
	if user == "" {
		a.errorResponse(w, r, http.StatusForbidden, "authentication required")
		return
	}
	owner := domain.UserID(user)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err != nil {
		a.errorResponse(w, r, http.StatusBadRequest, "request body too large")
		return
	}
	if len(body) == 0 {
		a.errorResponse(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	req, err := wire.DecodeBatchRequest(body)
	if err != nil {
		a.errorResponse(w, r, http.StatusBadRequest, "unparsable request body")
		return
	}

	// All-or-nothing: every entry is validated before any entry executes.
	if faults := req.Faults(); len(faults) > 0 {
		a.errorResponse(w, r, http.StatusBadRequest, english.OxfordWordSeries(faults, "and"))
		return
	}

	for _, entry := range req.Queue {
		device, err := domain.ParseDeviceID(entry.Device)
		if err != nil {
			a.errorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}

		if err := a.directiveRepo.Store(ctx, owner, device, entry.Directive); err != nil {
			a.dispatchError(w, r, err)
			return
		}

		// A wake that could not be scheduled is reported but must not undo
		// the store: the directive is durable either way.
		if err := a.scheduler.Schedule(ctx, owner, device); err != nil {
			a.logger.Error("failed to schedule wake",
				zap.Error(err),
				zap.String("device#id", string(device)),
			)
			_ = a.statsd.Incr("hermod.wake.schedule_failures", nil, 1)
		}
	}

	for _, entry := range req.Register {
		device, err := domain.ParseDeviceID(entry.Device)
		if err != nil {
			a.errorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}

		dev := &domain.Device{
			Owner:     owner,
			ID:        device,
			PushToken: entry.PushToken,
			Name:      entry.Name,
		}
		if err := a.deviceRepo.CreateOrUpdate(ctx, dev); err != nil {
			a.dispatchError(w, r, err)
			return
		}
	}

	resp := &wire.BatchResponse{}
	for _, entry := range req.Fetch {
		device, err := domain.ParseDeviceID(entry.Device)
		if err != nil {
			a.errorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}

		directives, err := a.directiveRepo.FetchAndDelete(ctx, owner, device)
		if err != nil {
			a.dispatchError(w, r, err)
			return
		}
		resp.Directives = append(resp.Directives, directives...)
	}

	out, err := resp.Encode()
	if err != nil {
		a.errorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/cbor")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (a *api) dispatchError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrTooManyConcurrentAccesses):
		a.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrInvalidDeviceID):
		a.errorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		a.errorResponse(w, r, http.StatusInternalServerError, err.Error())
	}
}
