package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
	"github.com/iliyamo/loyalty-rewards/internal/validate"
)

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
	Signup(ctx context.Context, in repository.NewIdentity) (string, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	ResetPassword(ctx context.Context, userID, password string, cost int) error
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// CodeStore is implemented by *repository.VerificationRepo.
type CodeStore interface {
	Issue(ctx context.Context, email, purpose, code string, ttl time.Duration, maxAttempts int, resendAfter time.Duration) error
	Check(ctx context.Context, email, purpose, code string) error
}

// OTPEvents hands issued codes to the delivery queue.
type OTPEvents interface {
	OTPRequested(ctx context.Context, ev queue.OTPRequestedEvent) error
}

// AuthHandler serves /auth/v1.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Codes  CodeStore
	Events OTPEvents
	Log    logger.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, codes CodeStore, ev OTPEvents, log logger.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Codes: codes, Events: ev, Log: log}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type verifyReq struct {
	Email string `json:"email"`
	Token string `json:"token"`
	Type  string `json:"type"`
}

type resetReq struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// SignUp creates the identity and sends a signup code.  No session is
// issued until the code is verified.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req gateway.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if errs := validate.CheckSignup(validate.Signup{
		FullName: req.FullName, Email: req.Email, Password: req.Password,
		Phone: req.Phone, IDNumber: req.IDNumber,
	}); !errs.OK() {
		return invalid(c, errs)
	}

	phone := strings.TrimSpace(req.Phone)
	idHash := validate.HashIDNumber(req.IDNumber)
	in := repository.NewIdentity{
		Email:        req.Email,
		Password:     req.Password,
		FullName:     req.FullName,
		Phone:        &phone,
		IDNumberHash: &idHash,
		BcryptCost:   h.Cfg.BcryptCost,
	}
	if sc := strings.TrimSpace(req.StaffCode); sc != "" {
		in.StaffCode = &sc
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	uid, err := h.Users.Signup(ctx, in)
	if err != nil {
		return storeErr(c, err, "create user failed")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.sendCode(ctx, email, gateway.OTPSignup); err != nil {
		h.Log.Error().Err(err).Str("user_id", uid).Msg("signup code not issued")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"user":                  gateway.User{ID: uid, Email: email},
		"verification_required": true,
	})
}

// Token issues a session for grant_type=password or rotates one for
// grant_type=refresh_token.
func (h *AuthHandler) Token(c echo.Context) error {
	switch c.QueryParam("grant_type") {
	case "password":
		return h.passwordGrant(c)
	case "refresh_token":
		return h.refreshGrant(c)
	}
	return errJSON(c, http.StatusBadRequest, "unsupported grant_type")
}

func (h *AuthHandler) passwordGrant(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if errs := validate.CheckLogin(req.Email, req.Password); !errs.OK() {
		return invalid(c, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !utils.VerifyPassword(u.PasswordHash, req.Password)) {
		return errJSON(c, http.StatusBadRequest, "invalid login credentials")
	}
	if err != nil {
		return storeErr(c, err, "query failed")
	}
	if !u.EmailVerified {
		return errJSON(c, http.StatusForbidden, "email not confirmed")
	}
	return h.respondSession(ctx, c, u)
}

func (h *AuthHandler) refreshGrant(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return errJSON(c, http.StatusBadRequest, "refresh_token required")
	}
	hash := utils.HashToken(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := dbCtx(c)
	defer cancel()
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return storeErr(c, err, "revoke failed")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return storeErr(c, err, "load user failed")
	}
	return h.respondSession(ctx, c, u)
}

// Verify checks a one-time code.  A signup code confirms the email and
// activates the loyalty account; either purpose signs the user in.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if msg := validate.OTP(req.Token); msg != "" {
		return invalid(c, validate.Errors{"token": msg})
	}
	if req.Type == "" {
		req.Type = gateway.OTPSignup
	}
	if req.Type != gateway.OTPSignup && req.Type != gateway.OTPEmail {
		return errJSON(c, http.StatusBadRequest, "unknown type")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Codes.Check(ctx, req.Email, model.CodeConfirm, req.Token); err != nil {
		return codeErr(c, err, "verify failed")
	}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return storeErr(c, err, "load user failed")
	}
	if err := h.confirmEmail(ctx, &u); err != nil {
		return storeErr(c, err, "confirm email failed")
	}
	return h.respondSession(ctx, c, u)
}

// Recover sends a password reset code.  Unknown addresses get the same
// answer as known ones.
func (h *AuthHandler) Recover(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if msg := validate.Email(req.Email); msg != "" {
		return invalid(c, validate.Errors{"email": msg})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return storeErr(c, err, "query failed")
	}
	if err := h.sendCode(ctx, u.Email, gateway.OTPRecovery); err != nil {
		return h.issueErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword sets a new password with a reset code.  Every refresh token
// of the user is revoked and a new session is issued.  The code proves
// ownership of the address, so an unconfirmed email is confirmed as well.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if errs := validate.CheckPasswordReset(req.Email, req.Token, req.Password); !errs.OK() {
		return invalid(c, errs)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Codes.Check(ctx, req.Email, model.CodeRecovery, req.Token); err != nil {
		return codeErr(c, err, "reset failed")
	}
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusBadRequest, "invalid code")
	}
	if err != nil {
		return storeErr(c, err, "load user failed")
	}
	if err := h.Users.ResetPassword(ctx, u.ID, req.Password, h.Cfg.BcryptCost); err != nil {
		return storeErr(c, err, "reset failed")
	}
	if err := h.confirmEmail(ctx, &u); err != nil {
		return storeErr(c, err, "confirm email failed")
	}
	return h.respondSession(ctx, c, u)
}

func (h *AuthHandler) confirmEmail(ctx context.Context, u *model.User) error {
	if u.EmailVerified {
		return nil
	}
	if err := h.Users.MarkEmailVerified(ctx, u.ID); err != nil {
		return err
	}
	u.EmailVerified = true
	return nil
}

// codeErr maps a failed code check to its response.
func codeErr(c echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrCodeExpired):
		return errJSON(c, http.StatusBadRequest, "code expired")
	case errors.Is(err, repository.ErrTooManyAttempts):
		return errJSON(c, http.StatusTooManyRequests, "too many attempts, request a new code")
	case errors.Is(err, repository.ErrCodeMismatch), errors.Is(err, repository.ErrNotFound):
		return errJSON(c, http.StatusBadRequest, "invalid code")
	}
	return storeErr(c, err, msg)
}

func (h *AuthHandler) issueErr(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrResendTooSoon) {
		c.Response().Header().Set("Retry-After", seconds(h.Cfg.OTP.ResendAfter))
		return errJSON(c, http.StatusTooManyRequests, "wait before requesting another code")
	}
	return storeErr(c, err, "issue code failed")
}

// ResendOTP issues a fresh code.  Unknown addresses get the same answer as
// known ones.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if msg := validate.Email(req.Email); msg != "" {
		return invalid(c, validate.Errors{"email": msg})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return storeErr(c, err, "query failed")
	}
	purpose := gateway.OTPEmail
	if !u.EmailVerified {
		purpose = gateway.OTPSignup
	}
	if err := h.sendCode(ctx, u.Email, purpose); err != nil {
		return h.issueErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Logout revokes the given refresh token, or every token of the caller when
// none is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := dbCtx(c)
	defer cancel()

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashToken(raw)); err != nil {
			return storeErr(c, err, "logout failed")
		}
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, middleware.UserID(c)); err != nil {
		return storeErr(c, err, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// User returns the caller's identity.
func (h *AuthHandler) User(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusUnauthorized, "user no longer exists")
	}
	if err != nil {
		return storeErr(c, err, "load user failed")
	}
	return c.JSON(http.StatusOK, gateway.User{ID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified})
}

func (h *AuthHandler) respondSession(ctx context.Context, c echo.Context, u model.User) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, h.Cfg.AccessTTLMin)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue refresh failed")
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return storeErr(c, err, "save refresh failed")
	}
	return c.JSON(http.StatusOK, gateway.Session{
		AccessToken:  access.Token,
		TokenType:    "bearer",
		ExpiresIn:    int64(time.Until(access.Exp).Seconds()),
		ExpiresAt:    access.Exp.Unix(),
		RefreshToken: refresh.Raw,
		User:         gateway.User{ID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified},
	})
}

// sendCode stores a new code and queues it for delivery.  A publish failure
// is logged only; the user can ask for a resend.
func (h *AuthHandler) sendCode(ctx context.Context, email, purpose string) error {
	code, err := utils.NewOTPCode()
	if err != nil {
		return err
	}
	otp := h.Cfg.OTP
	if err := h.Codes.Issue(ctx, email, codePurpose(purpose), code, otp.TTL, otp.MaxAttempts, otp.ResendAfter); err != nil {
		return err
	}
	if h.Events == nil {
		return nil
	}
	now := time.Now().UTC()
	ev := queue.OTPRequestedEvent{
		Email:       email,
		Code:        code,
		Purpose:     purpose,
		ExpiresAt:   now.Add(otp.TTL).Format(time.RFC3339),
		RequestedAt: now.Format(time.RFC3339),
	}
	if err := h.Events.OTPRequested(ctx, ev); err != nil {
		h.Log.Warn().Err(err).Str("email", email).Msg("otp event not published")
	}
	return nil
}

// codePurpose maps an OTP purpose to the stored code purpose.  Signup and
// email codes are interchangeable; reset codes are not.
func codePurpose(otp string) string {
	if otp == gateway.OTPRecovery {
		return model.CodeRecovery
	}
	return model.CodeConfirm
}
