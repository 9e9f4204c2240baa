package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"todo-app/backend/internal/middleware"
	"todo-app/backend/internal/services"
	"todo-app/backend/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db           *gorm.DB
	authService  services.AuthService
	sessions     *session.Manager
	sessionAuth  *middleware.SessionAuth
	secureCookie bool
}

type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

func NewAuthHandler(db *gorm.DB, authService services.AuthService, sessions *session.Manager, sessionAuth *middleware.SessionAuth, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		db:           db,
		authService:  authService,
		sessions:     sessions,
		sessionAuth:  sessionAuth,
		secureCookie: secureCookie,
	}
}

func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if _, err := h.sessionAuth.Resolve(c); err == nil {
		c.Redirect(http.StatusFound, "/app")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{"Username": ""})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			h.loginFailed(c, http.StatusUnauthorized, strings.TrimSpace(req.Username), "invalid_credentials", "Invalid username or password")
			return
		}
		h.loginFailed(c, http.StatusBadRequest, "", "invalid_request", "Invalid request format")
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	user, err := h.authService.Login(c.Request.Context(), h.db, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.loginFailed(c, http.StatusUnauthorized, req.Username, "invalid_credentials", "Invalid username or password")
			return
		}
		log.Printf("❌ Login failed: %v", err)
		h.loginFailed(c, http.StatusInternalServerError, req.Username, "login_failed", "Login is temporarily unavailable")
		return
	}

	// Never reuse a session that existed before authentication.
	if previous, err := c.Cookie(h.sessionAuth.CookieName()); err == nil {
		if err := h.sessions.Destroy(c.Request.Context(), previous); err != nil {
			log.Printf("⚠️ Failed to drop previous session: %v", err)
		}
	}

	token, _, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("❌ Failed to create session for %s: %v", user.Username, err)
		h.loginFailed(c, http.StatusServiceUnavailable, req.Username, "session_unavailable", "Login is temporarily unavailable")
		return
	}

	h.setSessionCookie(c, token, int(h.sessions.TTL().Seconds()))

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
		return
	}
	c.Redirect(http.StatusSeeOther, "/app")
}

func (h *AuthHandler) loginFailed(c *gin.Context, status int, username, code, message string) {
	if wantsJSON(c) {
		c.JSON(status, gin.H{"error": code, "message": message})
		return
	}
	c.HTML(status, "login.html", gin.H{
		"Error":    message,
		"Username": username,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.sessionAuth.CookieName()); err == nil {
		if err := h.sessions.Destroy(c.Request.Context(), token); err != nil {
			log.Printf("⚠️ Failed to destroy session: %v", err)
		}
	}

	h.setSessionCookie(c, "", -1)

	status := http.StatusFound
	if c.Request.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	c.Redirect(status, "/login")
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionAuth.CookieName(), value, maxAge, "/", "", h.secureCookie, true)
}
