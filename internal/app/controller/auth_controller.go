package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/internal/app/service"
	apperrors "github.com/threadline/configurator-backend/internal/errors"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/response"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type SigninRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func userPayload(user *model.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	}
}

// Signup registers a merchant account
// POST /api/v1/auth/signup
func (ctrl *AuthController) Signup(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid signup request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			log.Warn("Signup failed: email already exists", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "Email is already registered")
			return
		}
		log.Error("Signup failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "register user")
		return
	}

	log.Info("Merchant registered successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	response.Success(c, http.StatusCreated, "Merchant registered successfully", gin.H{
		"user":   userPayload(user),
		"tokens": tokens,
	})
}

// Signin exchanges credentials for a token pair
// POST /api/v1/auth/signin
func (ctrl *AuthController) Signin(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid signin request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Warn("Signin failed: invalid credentials", map[string]interface{}{
				"email": req.Email,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid email or password")
			return
		}
		log.Error("Signin failed", err, map[string]interface{}{
			"email": req.Email,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "login")
		return
	}

	log.Info("Signin successful", map[string]interface{}{
		"user_id": user.ID,
	})
	response.Success(c, http.StatusOK, "Signin successful", gin.H{
		"user":   userPayload(user),
		"tokens": tokens,
	})
}

// Logout revokes the presented access token until it expires
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	tokenID, expiresAt := middleware.GetToken(c)
	if err := ctrl.authService.Logout(c.Request.Context(), tokenID, expiresAt); err != nil {
		log.Error("Logout failed", err, nil)
		apperrors.InternalError(c, "")
		return
	}
	response.Success(c, http.StatusOK, "Logged out successfully", nil)
}

// GetMe returns the authenticated merchant
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	userID, ok := requireMerchant(c)
	if !ok {
		return
	}

	user, err := ctrl.authService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "user")
		return
	}
	response.Success(c, http.StatusOK, "User fetched successfully", gin.H{
		"user": userPayload(user),
	})
}
