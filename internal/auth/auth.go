// Package auth verifies request tokens and the scopes they carry. The
// aggregation core only consumes the verdict; the token-issuing
// protocol lives elsewhere.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/samber/lo"
)

// ContextKey is where the transport middleware stores the verdict for
// the handler.
const ContextKey = "auth.verdict"

// Scopes required by the protocol actions.
const (
	ScopeRead     = "read"
	ScopeChannels = "channels"
	ScopeFollow   = "follow"
	ScopeMute     = "mute"
	ScopeBlock    = "block"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientScope = errors.New("insufficient scope")
)

// Verdict is what an authorizer learned about a bearer token.
type Verdict struct {
	UserID string
	Scopes []string
}

// HasScope reports whether the verdict grants the scope.
func (v Verdict) HasScope(scope string) bool {
	return lo.Contains(v.Scopes, scope)
}

// Authorizer validates a bearer token and reports the user and scope
// set it grants.
type Authorizer interface {
	Verify(ctx context.Context, token string) (Verdict, error)
}

// StaticAuthorizer accepts a single configured token and grants it the
// full scope set. Suitable for single-user deployments; richer token
// endpoints plug in behind the Authorizer interface.
type StaticAuthorizer struct {
	token  string
	userID string
}

// NewStaticAuthorizer builds an authorizer around one token.
func NewStaticAuthorizer(token, userID string) *StaticAuthorizer {
	return &StaticAuthorizer{token: token, userID: userID}
}

func (s *StaticAuthorizer) Verify(ctx context.Context, token string) (Verdict, error) {
	if s.token == "" || token == "" {
		return Verdict{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.token), []byte(token)) != 1 {
		return Verdict{}, ErrUnauthorized
	}
	return Verdict{
		UserID: s.userID,
		Scopes: []string{ScopeRead, ScopeChannels, ScopeFollow, ScopeMute, ScopeBlock},
	}, nil
}
