package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"Tempo/internal/auth"
	dom "Tempo/internal/domain"
	"Tempo/internal/dto"
	"Tempo/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles login, register, logout and credential checks.
type AuthHandler struct {
	sessions  auth.Registry
	userSvc   *service.UserService
	cookieAge int
}

// NewAuthHandler returns a new AuthHandler. ttl is the session cookie lifetime.
func NewAuthHandler(sessions auth.Registry, userSvc *service.UserService, ttl time.Duration) *AuthHandler {
	return &AuthHandler{sessions: sessions, userSvc: userSvc, cookieAge: int(ttl / time.Second)}
}

// Login godoc
// @Summary      Login
// @Description  Returns a bearer token and sets the same token as the session cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "Credentials"
// @Success      200   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.userSvc.ValidateCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.startSession(c, http.StatusOK, user)
}

// Register godoc
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "Account"
// @Success      201   {object}  dto.LoginResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.userSvc.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
			return
		}
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	h.startSession(c, http.StatusCreated, user)
}

func (h *AuthHandler) startSession(c *gin.Context, code int, user dom.User) {
	token, err := h.sessions.Create(c.Request.Context(), auth.Session{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.SetCookie(auth.SessionCookieName, token, h.cookieAge, "/", "", false, true) // httpOnly
	c.JSON(code, dto.LoginResponse{
		OK:    true,
		Token: token,
		User:  dto.UserResponse{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName},
	})
}

// Logout godoc
// @Summary      Logout
// @Description  Ends the session named by the bearer token or the session cookie.
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		token, _ = c.Cookie(auth.SessionCookieName)
	}
	if token = strings.TrimSpace(token); token != "" {
		_ = h.sessions.Delete(c.Request.Context(), token)
	}
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary      Current user
// @Description  Confirms that the bearer token is still valid.
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.UserResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	s, ok := auth.SessionFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return
	}
	c.JSON(http.StatusOK, dto.UserResponse{ID: s.UserID, Email: s.Email, DisplayName: s.DisplayName})
}
