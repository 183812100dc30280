package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/storefront/internal/account"
	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/security"
	"github.com/gin-gonic/gin"
)

type AccountService interface {
	Register(ctx context.Context, in account.RegisterInput) (account.Issued, error)
	ResendRegisterOTP(ctx context.Context, email string) (account.Issued, error)
	VerifyRegisterOTP(ctx context.Context, email, code string) (account.VerifyResult, error)
	Login(ctx context.Context, email, password string) (account.Session, error)
	ForgotPassword(ctx context.Context, email string) (account.Issued, error)
	ResetPasswordWithOTP(ctx context.Context, email, code, newPassword string) (account.Session, error)
}

type AuthHandler struct {
	svc AccountService
}

func NewAuthHandler(svc AccountService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,trimmin=2,max=100"`
	Password string `json:"password" binding:"required,min=6,maxbytes=72"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6"`
	NewPassword string `json:"newPassword" binding:"required,min=6,maxbytes=72"`
}

// bcrypt plus a mail round trip
const authTimeout = 10 * time.Second

func withDevOTP(body gin.H, issued account.Issued) gin.H {
	if issued.DevOTP != "" {
		body["devOtp"] = issued.DevOTP
	}
	return body
}

func sessionBody(message string, s account.Session) gin.H {
	body := gin.H{"token": s.Token, "user": s.User}
	if message != "" {
		body["message"] = message
	}
	return body
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), authTimeout)
	defer cancel()

	issued, err := h.svc.Register(cctx, account.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondAccountError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, withDevOTP(gin.H{
		"message": "Registered. Check your email for the verification code.",
	}, issued))
}

func (h *AuthHandler) ResendRegisterOTP(ctx *gin.Context) {
	var req EmailRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), authTimeout)
	defer cancel()

	issued, err := h.svc.ResendRegisterOTP(cctx, req.Email)
	if err != nil {
		respondAccountError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, withDevOTP(gin.H{
		"message": "If email exists, OTP has been sent.",
	}, issued))
}

func (h *AuthHandler) VerifyRegisterOTP(ctx *gin.Context) {
	var req VerifyOTPRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.svc.VerifyRegisterOTP(cctx, req.Email, req.OTP)
	if err != nil {
		respondAccountError(ctx, err)
		return
	}

	if res.AlreadyVerified {
		ctx.JSON(http.StatusOK, gin.H{"message": "Already verified"})
		return
	}

	ctx.JSON(http.StatusOK, sessionBody("Verified", res.Session))
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), authTimeout)
	defer cancel()

	sess, err := h.svc.Login(cctx, req.Email, req.Password)
	if err != nil {
		respondAccountError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, sessionBody("", sess))
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req EmailRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), authTimeout)
	defer cancel()

	issued, err := h.svc.ForgotPassword(cctx, req.Email)
	if err != nil {
		respondAccountError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, withDevOTP(gin.H{
		"message": "If that email exists, an OTP has been sent.",
	}, issued))
}

func (h *AuthHandler) ResetPasswordWithOTP(ctx *gin.Context) {
	var req ResetPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), authTimeout)
	defer cancel()

	sess, err := h.svc.ResetPasswordWithOTP(cctx, req.Email, req.OTP, req.NewPassword)
	if errors.Is(err, account.ErrPasswordTooLong) {
		respondFieldError(ctx, "newPassword", "maxbytes", strconv.Itoa(security.MaxPasswordBytes))
		return
	}
	if err != nil {
		respondAccountError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, sessionBody("Password reset", sess))
}

func respondAccountError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already registered.")
	case errors.Is(err, account.ErrInvalidOTP):
		RespondError(ctx, http.StatusBadRequest, "invalid_otp", "Invalid email or OTP.", nil)
	case errors.Is(err, account.ErrOTPExpired):
		RespondError(ctx, http.StatusBadRequest, "otp_expired", "OTP expired or not requested. Request a new one.", nil)
	case errors.Is(err, account.ErrOTPIncorrect):
		RespondError(ctx, http.StatusBadRequest, "otp_incorrect", "OTP is incorrect.", nil)
	case errors.Is(err, account.ErrTooManyAttempts):
		RespondTooManyRequests(ctx, "too_many_attempts", "Too many attempts. Request a new OTP.")
	case errors.Is(err, account.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
	case errors.Is(err, account.ErrNotVerified):
		RespondForbidden(ctx, "not_verified", "Account is not verified.")
	case errors.Is(err, account.ErrPasswordTooLong):
		respondFieldError(ctx, "password", "maxbytes", strconv.Itoa(security.MaxPasswordBytes))
	case errors.Is(err, account.ErrInvalidName):
		respondFieldError(ctx, "name", "trimmin", "2")
	case errors.Is(err, account.ErrMailDelivery):
		_ = ctx.Error(err)
		RespondBadGateway(ctx, "mail_failed", "Could not send the verification email. Try resending the OTP.")
	default:
		_ = ctx.Error(err)
		RespondInternal(ctx, "Something went wrong")
	}
}

// respondFieldError answers with the same shape BindJSON uses for a single
// failed rule.
func respondFieldError(ctx *gin.Context, field, rule, param string) {
	RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
		Field:   field,
		Rule:    rule,
		Param:   param,
		Message: validationMessage(rule, param),
	}}})
}
