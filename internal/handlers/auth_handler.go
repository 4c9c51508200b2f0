package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/farellandr/sahmticket/internal/helpers"
	"github.com/farellandr/sahmticket/internal/models"
	"github.com/farellandr/sahmticket/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	PhoneNumber string `json:"phone_number"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// Register creates an organizer account. Admin accounts are never self-served.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, err := h.createUser(c.Request.Context(), req, models.RoleOrganizer)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			helpers.RespondWithError(c, http.StatusConflict, "User already exists.")
			return
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"user":    user,
	})
}

func (h *Handler) createUser(ctx context.Context, req RegisterRequest, role string) (models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    string(hashedPassword),
		PhoneNumber: req.PhoneNumber,
	}
	if err := h.accounts.CreateUser(ctx, &user, role); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	user, err := h.accounts.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			h.logger.Error("login lookup failed", "error", err)
		}
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role.Name,
		"exp":     h.clock.Now().Add(h.cfg.TokenTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
		"user": gin.H{
			"id":       user.ID,
			"name":     user.Name,
			"email":    user.Email,
			"role":     user.Role.Name,
			"verified": user.Verified,
		},
	})
}

// SendOTP mails a six digit verification code. Only a bcrypt hash is stored.
func (h *Handler) SendOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A valid email is required.")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	code, err := helpers.GenerateOTP()
	if err != nil {
		h.respondError(c, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(c, err)
		return
	}

	otp := models.OTPCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: h.clock.Now().Add(h.cfg.OTPExpiry),
	}
	if err := h.accounts.SaveOTP(c.Request.Context(), &otp); err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.MailTimeout)
	defer cancel()
	minutes := int(h.cfg.OTPExpiry.Minutes())
	err = h.notifier.Send(ctx, notify.KindOTP, email, notify.OTPPayload{
		Name:      req.Name,
		OTP:       code,
		ExpiresIn: minutes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Verification code sent.",
		"expires_in": minutes,
	})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "A valid email and six digit code are required.")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	otp, err := h.accounts.ActiveOTP(c.Request.Context(), email, h.clock.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(req.OTP)); err != nil {
		h.respondError(c, models.ErrOTPNotFound)
		return
	}

	if err := h.accounts.DeleteOTPs(c.Request.Context(), email); err != nil {
		h.logger.Warn("failed to clear verification codes", "email", email, "error", err)
	}
	if err := h.accounts.MarkUserVerified(c.Request.Context(), email); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Email verified.",
		"verified": true,
	})
}
