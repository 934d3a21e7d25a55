package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ruralpay/ledger/internal/services"
)

type contextKey string

const businessIDKey contextKey = "businessID"

var errMissingBusinessID = errors.New("token carries no business_id claim")

// Authenticator verifies HS256 bearer tokens and puts the business_id claim on the request context
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			services.SendErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
			return
		}

		businessID, err := a.validateToken(parts[1])
		if err != nil {
			log.Printf("[AUTH] Rejected token: %v", err)
			services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithBusinessID(r.Context(), businessID)))
	})
}

func (a *Authenticator) validateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("unexpected claims type")
	}

	raw, ok := claims["business_id"].(string)
	if !ok || raw == "" {
		return uuid.Nil, errMissingBusinessID
	}
	businessID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("business_id claim: %w", err)
	}
	return businessID, nil
}

// WithBusinessID returns ctx carrying the authenticated business
func WithBusinessID(ctx context.Context, businessID uuid.UUID) context.Context {
	return context.WithValue(ctx, businessIDKey, businessID)
}

// BusinessIDFromContext returns the business set by the auth middleware
func BusinessIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(businessIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
