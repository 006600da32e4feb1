package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the JWT claim set an identity provider may attach to a
// connection: an opaque user id plus display fields.
type IdentityClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewIdentityMiddleware extracts the acting user's identity from an
// optional session token (cookie or bearer header). Unlike a gatekeeper,
// it never rejects: anonymous and invalid-token connections proceed
// without an identity, since any client knowing a room name may join.
func NewIdentityMiddleware(logger *slog.Logger, jwtSecret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tokenString := tokenFromRequest(r)
			if tokenString == "" || jwtSecret == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("Ignoring invalid identity token", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			if claims, ok := token.Claims.(*IdentityClaims); ok && claims.Subject != "" {
				reqMeta.Identity = &Identity{
					ID:    claims.Subject,
					Name:  claims.Name,
					Email: claims.Email,
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("session-token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
