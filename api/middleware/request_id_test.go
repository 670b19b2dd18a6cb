package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

func TestRequestIDSources(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "explicit header", headers: map[string]string{"X-Request-Id": "req-1"}, want: "req-1"},
		{name: "cloud trace", headers: map[string]string{"X-Cloud-Trace-Context": "105445aa7843bc8bf206b12000100000/1;o=1"}, want: "105445aa7843bc8bf206b12000100000"},
		{name: "explicit wins", headers: map[string]string{"X-Request-Id": "req-2", "X-Cloud-Trace-Context": "abc/1"}, want: "req-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp := httptest.NewRecorder()
			RequestID(logger.Nop())(okHandler()).ServeHTTP(resp, req)
			assert.Equal(t, tc.want, resp.Header().Get("X-Request-Id"))
		})
	}
}

func TestRequestIDReplacesUnsafeValues(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("x", 200)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", bad)
		resp := httptest.NewRecorder()
		RequestID(nil)(okHandler()).ServeHTTP(resp, req)

		_, err := uuid.Parse(resp.Header().Get("X-Request-Id"))
		require.NoError(t, err)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	resp := httptest.NewRecorder()
	Recoverer(logger.Nop())(panicking).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, resp.Body.String(), "INTERNAL_ERROR")
}

func TestRecovererRethrowsAbort(t *testing.T) {
	aborting := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) })
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		Recoverer(nil)(aborting).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
