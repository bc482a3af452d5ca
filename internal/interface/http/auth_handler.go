package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/servicehooks/userbase/internal/application"
	"github.com/servicehooks/userbase/internal/domain/entity"
	"github.com/servicehooks/userbase/pkg/apperrors"
	"github.com/servicehooks/userbase/pkg/response"
	"github.com/servicehooks/userbase/pkg/validation"
)

type AuthHandler struct {
	Auth   *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(auth *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

type signUpRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,pwd"`
	DisplayName string `json:"display_name" binding:"omitempty,min=2,max=50"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type updatePasswordRequest struct {
	Password string `json:"password" binding:"required,pwd"`
}

// respondError maps typed application failures onto the envelope.
func respondError(c *gin.Context, err error) {
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		response.Error[any](c, ae.Status, ae.Message, gin.H{"code": ae.Code})
		return
	}
	response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
}

func userPayload(u *entity.User) gin.H {
	if u == nil {
		return nil
	}
	return gin.H{
		"id":             u.ID,
		"email":          u.Email,
		"display_name":   u.DisplayName,
		"photo_url":      u.PhotoURL,
		"email_verified": u.EmailVerified,
		"created_at":     u.CreatedAt,
		"updated_at":     u.UpdatedAt,
		"metadata":       u.Metadata,
	}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	user, err := h.Auth.SignUp(req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	token, _ := h.Auth.RefreshToken()
	response.Success(c, http.StatusCreated, userPayload(user), "signed up", gin.H{"token": token})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	user, err := h.Auth.SignIn(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	token, _ := h.Auth.RefreshToken()
	response.Success(c, http.StatusOK, userPayload(user), "signed in", gin.H{"token": token})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.Auth.SignOut(); err != nil {
		respondError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"signed_out": true}, "signed out", nil)
}

// ResetPassword always answers 200 so callers cannot probe which emails
// are registered. The generated password surfaces in the server log.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if err := h.Auth.ResetPassword(req.Email); err != nil {
		respondError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true},
		"if the account exists, a new password was issued", nil)
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if err := h.Auth.UpdatePassword(req.Password); err != nil {
		respondError(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"updated": true}, "password updated", nil)
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	user, err := h.Auth.VerifyEmail()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user), "email verified", nil)
}

func (h *AuthHandler) Token(c *gin.Context) {
	token, err := h.Auth.RefreshToken()
	if err != nil {
		respondError(c, err)
		return
	}
	if token == "" {
		response.Error[any](c, http.StatusUnauthorized, "no active session", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"token": token}, "token refreshed", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user := h.Auth.CurrentUser()
	if user == nil {
		response.Success[any](c, http.StatusOK, nil, "signed out", nil)
		return
	}
	response.Success[any](c, http.StatusOK, userPayload(user), "current user", nil)
}
