package httpapi

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fastpay-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// UserStore is the login lookup surface.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.DashUser, error)
}

// Claims is what a dashboard token carries.
type Claims struct {
	UserID    string `json:"uid"`
	Username  string `json:"username"`
	CompanyID string `json:"company_id,omitempty"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFrom returns the authenticated claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// AuthHandler issues and validates dashboard tokens.
type AuthHandler struct {
	users    UserStore
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

func NewAuthHandler(users UserStore, secret string, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, secret: []byte(secret), tokenTTL: tokenTTL, logger: logger}
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Login exchanges username/password for a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusOK, Fail("username and password are required"))
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil || user == nil || !user.IsActive {
		writeJSON(w, http.StatusUnauthorized, Fail("invalid credentials"))
		return
	}
	hashed := hashPassword(req.Password)
	if subtle.ConstantTimeCompare([]byte(hashed), []byte(user.PasswordHash)) != 1 {
		h.logger.Warn("login rejected", zap.String("username", req.Username))
		writeJSON(w, http.StatusUnauthorized, Fail("invalid credentials"))
		return
	}

	now := time.Now().UTC()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
			Subject:   user.ID,
		},
	}
	if user.CompanyID.Valid {
		claims.CompanyID = user.CompanyID.String
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		h.logger.Error("token signing failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to issue token"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
		"user":       user.ToJSON(),
	}))
}

// RequireAuth validates the bearer token and stores claims on the context.
func (h *AuthHandler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return h.secret, nil
		})
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, FailExpired("token invalid or expired"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

// RequireRole additionally restricts the route to the given roles.
func (h *AuthHandler) RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFrom(r.Context())
		for _, role := range roles {
			if claims != nil && claims.Role == role {
				next(w, r)
				return
			}
		}
		writeJSON(w, http.StatusForbidden, Fail("insufficient permissions"))
	})
}

// companyScope returns the company filter for the authenticated user.
// Admins see everything; other roles only their company.
func companyScope(claims *Claims) string {
	if claims == nil || claims.Role == domain.RoleAdmin {
		return ""
	}
	return claims.CompanyID
}
