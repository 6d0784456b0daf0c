package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/donaldgifford/auto-marketplace/api/openapi"
	"github.com/donaldgifford/auto-marketplace/internal/api/middleware"
	"github.com/donaldgifford/auto-marketplace/internal/auth"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
)

const testSecret = "handler-test-secret"

type fixture struct {
	e      *echo.Echo
	store  *store.MemoryStore
	issuer *auth.Issuer
}

type fixtureOptions struct {
	shape         string
	rawMyListings bool
}

func newFixture(t *testing.T, fo fixtureOptions) *fixture {
	t.Helper()

	s := store.NewMemoryStore(store.WithHashCost(bcrypt.MinCost))
	require.NoError(t, store.Seed(context.Background(), s))
	issuer := auth.NewIssuer(testSecret)

	e := echo.New()
	e.GET("/healthz", Healthz)
	api := humaecho.New(e, openapi.Config("test"))
	api.UseMiddleware(middleware.Authenticate(issuer))
	RegisterRoutes(api, Set{
		Listings:        NewListingsHandler(s, WithRawMyListings(fo.rawMyListings)),
		Favorites:       NewFavoritesHandler(s, fo.shape),
		Users:           NewUsersHandler(s, issuer, logger.Discard()),
		Recommendations: NewRecommendationsHandler(s),
	})

	return &fixture{e: e, store: s, issuer: issuer}
}

func (f *fixture) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := f.issuer.Issue(userID, auth.TypeAccess)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request. A []byte body is sent as is.
func (f *fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		r = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return f.send(req)
}

func (f *fixture) send(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
