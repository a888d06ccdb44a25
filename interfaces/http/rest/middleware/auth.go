package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"catalogo-backend/infrastructure/config"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContext carries the authenticated caller through the request.
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

// Claims is the JWT payload accepted on admin routes.
type Claims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// GetUser returns the authenticated user from the context, or nil when
// the request did not pass authentication.
func GetUser(ctx context.Context) *UserContext {
	user, _ := ctx.Value(userContextKey).(*UserContext)
	return user
}

// Authenticate guards admin routes. In Lambda the API Gateway
// authorizer has already validated the token and the entrypoint copies
// its claims into headers; locally the bearer token is verified here.
func Authenticate(cfg *config.Config, logger *zap.Logger) func(next http.Handler) http.Handler {
	if cfg.IsLambda {
		return authenticateFromGateway(logger)
	}
	return authenticateJWT(cfg, logger)
}

func authenticateFromGateway(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Gateway-Authorized") != "true" {
				respondUnauthorized(w, "request not authorized by API Gateway")
				return
			}
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				respondUnauthorized(w, "missing user context from API Gateway")
				return
			}

			roles := []string{"authenticated"}
			if h := r.Header.Get("X-User-Roles"); h != "" {
				roles = strings.Split(h, ",")
			}
			user := &UserContext{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
				Roles:  roles,
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticateJWT(cfg *config.Config, logger *zap.Logger) func(next http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondUnauthorized(w, "missing authorization header")
				return
			}

			claims := &Claims{}
			parsed, err := jwt.ParseWithClaims(token, claims, keyFunc,
				jwt.WithIssuer(cfg.JWTIssuer),
				jwt.WithValidMethods([]string{"HS256"}),
			)
			if err != nil || !parsed.Valid {
				logger.Warn("token rejected",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					respondUnauthorized(w, "token has expired")
				default:
					respondUnauthorized(w, "invalid token")
				}
				return
			}

			user := &UserContext{
				UserID: claims.Subject,
				Email:  claims.Email,
				Roles:  claims.Roles,
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers lacking all listed roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				respondUnauthorized(w, "unauthorized")
				return
			}

			for _, required := range roles {
				for _, role := range user.Roles {
					if role == required {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   true,
				"message": "insufficient permissions",
				"code":    http.StatusForbidden,
			})
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return authHeader
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    http.StatusUnauthorized,
	})
}
