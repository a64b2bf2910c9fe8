package identity

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func fixed(token string) func() string {
	return func() string { return token }
}

func TestOwnerFromSubject(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"string subject", "", "alice"},
		{"numeric subject", "", "42"},
		{"no token", "", Anonymous},
		{"garbage token", "not.a.jwt", Anonymous},
	}
	tests[0].token = mintOwner(t, "alice")
	tests[1].token = mintNumeric(t, 42)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id := FromToken(fixed(tc.token))
			if got := id.Owner(); got != tc.want {
				t.Fatalf("Owner() = %q, want %q", got, tc.want)
			}
		})
	}
}

func mintOwner(t *testing.T, sub string) string {
	return mint(t, jwt.MapClaims{"sub": sub})
}

func mintNumeric(t *testing.T, sub int) string {
	return mint(t, jwt.MapClaims{"sub": sub})
}

func TestIsAuthenticated(t *testing.T) {
	if FromToken(fixed("")).IsAuthenticated() {
		t.Fatal("empty token source must not be authenticated")
	}
	// Presence is what counts; validity is the backend's business.
	if !FromToken(fixed("whatever")).IsAuthenticated() {
		t.Fatal("any present token counts as authenticated")
	}
}

func TestRoleShapes(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   []string
	}{
		{"roles array", jwt.MapClaims{"roles": []any{"CUSTOMER", "ADMIN"}}, []string{"CUSTOMER", "ADMIN"}},
		{"roles with prefix", jwt.MapClaims{"roles": []any{"ROLE_customer"}}, []string{"CUSTOMER"}},
		{"authorities strings", jwt.MapClaims{"authorities": []any{"ROLE_ADMIN"}}, []string{"ADMIN"}},
		{"authorities objects", jwt.MapClaims{"authorities": []any{map[string]any{"authority": "ROLE_CUSTOMER"}}}, []string{"CUSTOMER"}},
		{"scope string", jwt.MapClaims{"scope": "customer admin"}, []string{"CUSTOMER", "ADMIN"}},
		{"scopes comma string", jwt.MapClaims{"scopes": "customer,admin"}, []string{"CUSTOMER", "ADMIN"}},
		{"single role", jwt.MapClaims{"role": "CUSTOMER"}, []string{"CUSTOMER"}},
		{"duplicates collapsed", jwt.MapClaims{"roles": []any{"CUSTOMER", "ROLE_CUSTOMER"}}, []string{"CUSTOMER"}},
		{"no role claims", jwt.MapClaims{"sub": "x"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id := FromToken(fixed(mint(t, tc.claims)))
			got := id.Roles()
			if len(got) != len(tc.want) {
				t.Fatalf("Roles() = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("Roles() = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestRoleChecks(t *testing.T) {
	customer := FromToken(fixed(mint(t, jwt.MapClaims{"sub": "c", "roles": []any{"CUSTOMER"}})))
	if !customer.IsCustomer() || customer.IsAdmin() {
		t.Fatal("customer token misclassified")
	}
	admin := FromToken(fixed(mint(t, jwt.MapClaims{"sub": "a", "roles": []any{"ADMIN"}})))
	if !admin.IsAdmin() || admin.IsCustomer() {
		t.Fatal("admin token misclassified")
	}
}

func TestStaticIdentity(t *testing.T) {
	anon := Static{}
	if anon.IsAuthenticated() || anon.Owner() != Anonymous {
		t.Fatal("zero Static must be anonymous")
	}
	u := Static{ID: "u1", Roles: []string{RoleCustomer}}
	if !u.IsAuthenticated() || !u.IsCustomer() || u.IsAdmin() || u.Owner() != "u1" {
		t.Fatal("static identity misbehaves")
	}
}
