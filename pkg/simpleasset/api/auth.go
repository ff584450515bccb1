package api

import (
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Authenticate verifies the bearer token and rejects requests without a
// valid one. The token's "sub" claim becomes the principal subject.
func Authenticate(ta *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	verify := jwtauth.Verifier(ta)
	return func(next http.Handler) http.Handler {
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil {
				writeError(w, r, &simpleasset.AuthenticationError{Reason: err.Error()})
				return
			}
			if token == nil {
				writeError(w, r, &simpleasset.AuthenticationError{Reason: "missing token"})
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// principalFrom reads the principal from verified claims. A request without
// claims yields the zero principal, which the service rejects.
func principalFrom(r *http.Request) simpleasset.Principal {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return simpleasset.Principal{}
	}
	var p simpleasset.Principal
	if sub, ok := claims["sub"].(string); ok {
		p.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	return p
}
