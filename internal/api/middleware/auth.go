package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/auto-marketplace/internal/api/apierror"
	"github.com/donaldgifford/auto-marketplace/internal/auth"
)

// Error codes sent with 401 responses.
const (
	CodeTokenExpired  = "token_expired"
	CodeTokenNotValid = "token_not_valid"
	CodeBadHeader     = "bad_authorization_header"
)

const notProvided = "Authentication credentials were not provided."

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token, wantType string) (*auth.Claims, error)
}

// Identity is the outcome of bearer authentication for one request.
type Identity struct {
	UserID int64
	// Code and Detail are set when a token was sent and rejected.
	Code   string
	Detail string
}

// Authenticated reports whether a valid access token was sent.
func (i Identity) Authenticated() bool {
	return i.Code == "" && i.UserID > 0
}

type identityKey struct{}

// IdentityFrom returns the identity Authenticate stored on ctx.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (int64, bool) {
	id := IdentityFrom(ctx)
	return id.UserID, id.Authenticated()
}

// Authenticate resolves the bearer token of every request into an Identity.
// It rejects nothing; RequireAuth and OptionalAuth decide per operation.
func Authenticate(v TokenValidator) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		id := identify(v, ctx.Header("Authorization"))
		if id.Authenticated() {
			recordCaller(ctx.Context(), id.UserID)
		}
		next(huma.WithValue(ctx, identityKey{}, id))
	}
}

// RequireAuth rejects requests without a valid access token.
func RequireAuth(api huma.API) func(huma.Context, func(huma.Context)) {
	return guard(api, true)
}

// OptionalAuth lets anonymous requests through. A bad token is still
// rejected.
func OptionalAuth(api huma.API) func(huma.Context, func(huma.Context)) {
	return guard(api, false)
}

func guard(api huma.API, required bool) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		id := IdentityFrom(ctx.Context())
		switch {
		case id.Code != "":
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, id.Detail,
				apierror.Coded(http.StatusUnauthorized, id.Detail, id.Code))
		case required && !id.Authenticated():
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, notProvided,
				apierror.Detail(http.StatusUnauthorized, notProvided))
		default:
			next(ctx)
		}
	}
}

func identify(v TokenValidator, header string) Identity {
	if header == "" {
		return Identity{}
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return Identity{
			Code:   CodeBadHeader,
			Detail: "Authorization header must contain two space-delimited values",
		}
	}

	claims, err := v.Validate(token, auth.TypeAccess)
	switch {
	case errors.Is(err, auth.ErrExpired):
		return Identity{Code: CodeTokenExpired, Detail: "Token is expired"}
	case err != nil:
		return Identity{Code: CodeTokenNotValid, Detail: "Given token not valid for any token type"}
	}
	return Identity{UserID: claims.UserID}
}

type callerKey struct{}

// withCallerSlot gives ctx a slot Authenticate fills with the user id, for
// the access log.
func withCallerSlot(ctx context.Context) (context.Context, *int64) {
	slot := new(int64)
	return context.WithValue(ctx, callerKey{}, slot), slot
}

func recordCaller(ctx context.Context, id int64) {
	if slot, ok := ctx.Value(callerKey{}).(*int64); ok {
		*slot = id
	}
}
