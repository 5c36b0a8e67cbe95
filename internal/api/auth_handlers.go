package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amo-platform/amo-server/internal/auth"
	"github.com/amo-platform/amo-server/internal/models"
	"github.com/amo-platform/amo-server/internal/storage"
	"github.com/amo-platform/amo-server/internal/verification"
	"github.com/amo-platform/amo-server/pkg/crypto"
)

// LoginRequest is the request to login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginRequest carries a Google ID token
type GoogleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// RefreshRequest is the request to refresh tokens
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SignupRequest is the request to create an account
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=ADMIN USER"`
	TenantID string `json:"tenantId,omitempty"`
}

// VerifyRequest redeems a verification code
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// ResendVerificationRequest asks for a fresh verification code
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// handleLogin authenticates an email/password pair
func (s *RESTServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, account, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":   pair,
		"account": account,
	})
}

// handleGoogleLogin signs in with a verified Google ID token,
// provisioning a federated account on first login
func (s *RESTServer) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, account, err := s.auth.AuthenticateFederated(r.Context(), req.Token)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":   pair,
		"account": account,
	})
}

// handleRefresh exchanges a refresh token for a new token pair
func (s *RESTServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, pair)
}

// handleSignup creates an unverified account and mails it a
// verification code. USER accounts must reference an existing tenant.
func (s *RESTServer) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	role := models.Role(req.Role)

	account := &models.Account{
		Email:    auth.NormalizeEmail(req.Email),
		Username: req.Username,
		Role:     role,
	}

	if role == models.RoleUser {
		if req.TenantID == "" {
			s.respondError(w, http.StatusBadRequest, "tenantId is required for USER accounts")
			return
		}
		tenantID, err := uuid.Parse(req.TenantID)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid tenantId")
			return
		}
		if _, err := s.store.GetTenant(r.Context(), tenantID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.respondError(w, http.StatusBadRequest, "referenced resource does not exist")
				return
			}
			s.respondAppError(w, err)
			return
		}
		account.TenantID = &tenantID
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	account.PasswordHash = hash

	// A duplicate email or username surfaces as a single neutral conflict,
	// and no verification mail goes out.
	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		s.respondAppError(w, err)
		return
	}

	if _, err := s.verification.Issue(r.Context(), account.ID); err != nil {
		log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("Failed to send verification code")
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Account created. Check your email for a verification code.",
		"accountId": account.ID,
	})
}

// handleVerify redeems a verification code
func (s *RESTServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.verification.Redeem(r.Context(), req.Email, req.Code); err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully"})
}

// handleResendVerification issues a fresh code for an unverified
// account. The response is the same for unknown emails, verified
// accounts and throttled requests, so the endpoint cannot be used to
// probe which emails exist or what state they are in.
func (s *RESTServer) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := s.store.GetAccountByEmail(r.Context(), auth.NormalizeEmail(req.Email))
	if err == nil {
		if _, err := s.verification.Issue(r.Context(), account.ID); err != nil {
			if errors.Is(err, verification.ErrRateLimited) {
				log.Debug().Str("email", account.Email).Msg("Verification resend throttled")
			} else {
				log.Warn().Err(err).Msg("Failed to resend verification code")
			}
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists and is unverified, a new code has been sent.",
	})
}

// handleGetCurrentAccount returns the account behind the session token
func (s *RESTServer) handleGetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	account, err := s.store.GetAccount(r.Context(), claims.AccountID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, account)
}
