/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"piron-pools-go/internal/api"
	"piron-pools-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// sessionClaims are the identity provider's session token claims. The subject
// is the provider's user id.
type sessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer session tokens and attaches the principal to the
// request context.
type Authenticator struct {
	key     any
	methods []string
	issuer  string
}

// NewAuthenticator prefers the RS256 public key and falls back to the HS256 secret.
func NewAuthenticator(cfg models.AuthConfig) (*Authenticator, error) {
	a := &Authenticator{issuer: cfg.Issuer}

	switch {
	case cfg.JWTPublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTPublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("invalid AUTH_JWT_PUBLIC_KEY: %w", err)
		}
		a.key = key
		a.methods = []string{jwt.SigningMethodRS256.Alg()}
	case cfg.JWTSecret != "":
		a.key = []byte(cfg.JWTSecret)
		a.methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, errors.New("AUTH_JWT_PUBLIC_KEY or AUTH_JWT_SECRET is required")
	}
	return a, nil
}

func (a *Authenticator) parse(tokenString string) (*models.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(a.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &models.Principal{
		ClerkId: claims.Subject,
		Email:   strings.ToLower(strings.TrimSpace(claims.Email)),
	}, nil
}

// Handler authenticates requests that carry a bearer token. Requests without one
// continue anonymously; the service layer decides whether that is enough.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid Authorization header format")
			return
		}

		principal, err := a.parse(strings.TrimSpace(parts[1]))
		if err != nil {
			zap.L().Debug("Token validation failed", zap.String("path", r.URL.Path), zap.Error(err))
			writeErrorMessage(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		next.ServeHTTP(w, r.WithContext(models.WithPrincipal(r.Context(), principal)))
	})
}

// requireAdmin guards the admin area with the same classification the UI uses.
func requireAdmin(svc *api.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, err := svc.AccessState(r.Context(), models.GetPrincipal(r.Context()))
			if err != nil {
				writeError(w, r, err)
				return
			}

			switch access.State {
			case api.AccessGranted:
				next.ServeHTTP(w, r)
			case api.AccessUnauthenticated:
				writeErrorMessage(w, http.StatusUnauthorized, api.ErrUnauthorized.Error())
			default:
				writeErrorMessage(w, http.StatusForbidden, api.ErrForbidden.Error())
			}
		})
	}
}
