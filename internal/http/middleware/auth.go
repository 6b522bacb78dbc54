package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lifecarehq/clinicflow/internal/tenancy"
)

type clinicClaims struct {
	ClinicID string `json:"clinic_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ClinicJWT enforces an HMAC-signed JWT and installs the caller's principal
// into the request context. Every token must carry a clinic_id claim; all
// downstream reads and writes are scoped to it.
func ClinicJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := clinicClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if claims.ClinicID == "" {
				http.Error(w, "token missing clinic_id", http.StatusForbidden)
				return
			}

			principal := tenancy.Principal{
				UserID:   claims.Subject,
				Role:     claims.Role,
				ClinicID: claims.ClinicID,
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithPrincipal(r.Context(), principal)))
		})
	}
}
