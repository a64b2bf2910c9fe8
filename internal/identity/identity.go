// Package identity derives the caller's identity and roles from the
// bearer token the HTTP layer attaches to backend calls.  The booking
// controller receives this as an injected capability instead of
// reaching into a global token cache.  The token is decoded without
// signature verification: the client never holds the signing secret,
// and nothing security-relevant hangs off the result — the backend
// re-checks every claim server-side.
package identity

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Anonymous is the owner sentinel used when no token is present or
// the token cannot be decoded.
const Anonymous = "anonymous"

// Role names as they appear in token claims, after normalization.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// Identity answers the questions the booking controller asks before a
// submission: who is holding, are they logged in, may they book.
type Identity interface {
	Owner() string
	IsAuthenticated() bool
	IsCustomer() bool
	IsAdmin() bool
}

// TokenIdentity reads the current token from a source function on
// every query, so a login or logout mid-session is picked up without
// rebuilding the controller.
type TokenIdentity struct {
	source func() string
}

// FromToken builds an Identity over a token source.  The source may
// return "" for an unauthenticated session.
func FromToken(source func() string) *TokenIdentity {
	return &TokenIdentity{source: source}
}

// Owner returns the token's subject claim, or Anonymous when there is
// no usable token.
func (t *TokenIdentity) Owner() string {
	claims := t.claims()
	if claims == nil {
		return Anonymous
	}
	switch sub := claims["sub"].(type) {
	case string:
		if sub != "" {
			return sub
		}
	case float64:
		return strconv.FormatInt(int64(sub), 10)
	}
	return Anonymous
}

// IsAuthenticated reports whether a token is present at all.
func (t *TokenIdentity) IsAuthenticated() bool {
	return t.source() != ""
}

// IsCustomer reports whether the token carries the CUSTOMER role.
func (t *TokenIdentity) IsCustomer() bool { return t.hasRole(RoleCustomer) }

// IsAdmin reports whether the token carries the ADMIN role.
func (t *TokenIdentity) IsAdmin() bool { return t.hasRole(RoleAdmin) }

func (t *TokenIdentity) hasRole(role string) bool {
	for _, r := range t.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Roles extracts the normalized role list from the token.  Backends
// encode roles in several shapes: a "roles" array, a Spring-style
// "authorities" array (strings or {authority} objects), a space- or
// comma-separated "scope"/"scopes" string, or a single "role" string.
// Values are upper-cased with any "ROLE_" prefix stripped.
func (t *TokenIdentity) Roles() []string {
	claims := t.claims()
	if claims == nil {
		return nil
	}
	var raw []string
	switch {
	case claims["roles"] != nil:
		raw = stringList(claims["roles"])
	case claims["authorities"] != nil:
		raw = authorityList(claims["authorities"])
	case claims["scope"] != nil:
		raw = splitScopes(claims["scope"])
	case claims["scopes"] != nil:
		raw = splitScopes(claims["scopes"])
	case claims["role"] != nil:
		raw = stringList(claims["role"])
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.ToUpper(strings.TrimPrefix(r, "ROLE_"))
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// claims decodes the current token without verifying its signature.
// Any decode failure yields nil, which callers treat as anonymous.
func (t *TokenIdentity) claims() jwt.MapClaims {
	raw := t.source()
	if raw == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}

func stringList(v any) []string {
	switch vv := v.(type) {
	case string:
		return []string{vv}
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func authorityList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		switch a := e.(type) {
		case string:
			out = append(out, a)
		case map[string]any:
			if s, ok := a["authority"].(string); ok {
				out = append(out, s)
			} else if s, ok := a["role"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func splitScopes(v any) []string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
}

// Static is a fixed identity, handy in tests and for service accounts.
type Static struct {
	ID    string
	Roles []string
}

func (s Static) Owner() string {
	if s.ID == "" {
		return Anonymous
	}
	return s.ID
}

func (s Static) IsAuthenticated() bool { return s.ID != "" }

func (s Static) IsCustomer() bool { return s.has(RoleCustomer) }

func (s Static) IsAdmin() bool { return s.has(RoleAdmin) }

func (s Static) has(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}
