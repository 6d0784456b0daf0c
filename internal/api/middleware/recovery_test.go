package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		path       string
		handler    echo.HandlerFunc
		wantStatus int
		wantLog    []string
	}{
		{
			name:   "no panic",
			method: http.MethodGet,
			path:   "/api/listings/cars/",
			handler: func(c echo.Context) error {
				return c.JSON(http.StatusOK, map[string]int{"count": 0})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "string panic",
			method: http.MethodGet,
			path:   "/api/listings/cars/4/similar_listings/",
			handler: func(echo.Context) error {
				panic("nil reference listing")
			},
			wantStatus: http.StatusInternalServerError,
			wantLog:    []string{"panic recovered", "nil reference listing", "path=/api/listings/cars/4/similar_listings/"},
		},
		{
			name:   "error panic",
			method: http.MethodPost,
			path:   "/api/listings/cars/",
			handler: func(echo.Context) error {
				panic(errors.New("multipart reader closed"))
			},
			wantStatus: http.StatusInternalServerError,
			wantLog:    []string{"multipart reader closed", "method=POST", "stack="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			require.NoError(t, Recovery(log)(tt.handler)(c))
			assert.Equal(t, tt.wantStatus, rec.Code)

			if len(tt.wantLog) == 0 {
				assert.Empty(t, buf.String())
				return
			}
			assert.JSONEq(t, `{"detail":"internal server error"}`, rec.Body.String())
			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRecovery_LogsRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodDelete, "/api/listings/cars/9/", http.NoBody)
	req.Header.Set(requestIDHeader, "amc-req-42")
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	chain := RequestLog(log)(Recovery(log)(func(echo.Context) error {
		panic("store unavailable")
	}))
	require.NoError(t, chain(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "request_id=amc-req-42")
	assert.Contains(t, buf.String(), "store unavailable")
}
