package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

func postWakeTask(a *testAPI, owner, device string, provenance bool) *httptest.ResponseRecorder {
	form := url.Values{}
	if owner != "" {
		form.Set("owner", owner)
	}
	if device != "" {
		form.Set("device", device)
	}

	req := httptest.NewRequest("POST", "/v1/tasks/wake", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if provenance {
		req.Header.Set(queueProvenanceHeader, "wake")
	}

	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, req)
	return rr
}

func TestWakeTaskHandler_RequiresProvenance(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	rr := postWakeTask(a, "user-1", testDeviceID, false)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestWakeTaskHandler_RequiresParams(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, postWakeTask(a, "", testDeviceID, true).Code)
	assert.Equal(t, http.StatusBadRequest, postWakeTask(a, "user-1", "", true).Code)
}

func TestWakeTaskHandler_UnknownDevice(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	a.waker.err = domain.ErrNotFound

	rr := postWakeTask(a, "user-1", testDeviceID, true)
	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestWakeTaskHandler_InvalidPushAuthToken(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	a.waker.err = domain.ErrInvalidPushAuthToken

	rr := postWakeTask(a, "user-1", testDeviceID, true)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestWakeTaskHandler_Done(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	rr := postWakeTask(a, "user-1", testDeviceID, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Done.", rr.Body.String())
}

func TestWakeTaskHandler_PersistsRotatedToken(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	a.waker.newToken = "fresh-token"

	rr := postWakeTask(a, "user-1", testDeviceID, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fresh-token", a.config.token)
}
