package middleware

import (
	"errors"
	"log"
	"net/http"

	"todo-app/backend/internal/models"
	"todo-app/backend/internal/services"
	"todo-app/backend/internal/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const userContextKey = "user"

// SessionAuth turns the session cookie into the caller's User.
type SessionAuth struct {
	db          *gorm.DB
	sessions    *session.Manager
	authService services.AuthService
	cookieName  string
	loginPath   string
}

func NewSessionAuth(db *gorm.DB, sessions *session.Manager, authService services.AuthService, cookieName string) *SessionAuth {
	return &SessionAuth{
		db:          db,
		sessions:    sessions,
		authService: authService,
		cookieName:  cookieName,
		loginPath:   "/login",
	}
}

func (a *SessionAuth) CookieName() string {
	return a.cookieName
}

// Resolve returns the authenticated caller. It returns
// services.ErrUnauthenticated when there is no live session or the user no
// longer exists; any other error means the session store or database failed.
func (a *SessionAuth) Resolve(c *gin.Context) (*models.User, error) {
	token, err := c.Cookie(a.cookieName)
	if err != nil || token == "" {
		return nil, services.ErrUnauthenticated
	}

	userID, err := a.sessions.Resolve(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			return nil, services.ErrUnauthenticated
		}
		return nil, err
	}

	user, err := a.authService.GetUser(c.Request.Context(), a.db, userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, services.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// RequireAPI rejects anonymous callers with 401.
func (a *SessionAuth) RequireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.Resolve(c)
		if err != nil {
			if errors.Is(err, services.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "unauthenticated",
					"message": "Please log in to access this resource",
				})
				return
			}
			log.Printf("❌ Session lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session_unavailable"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequirePage redirects anonymous callers to the login page.
func (a *SessionAuth) RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.Resolve(c)
		if err != nil {
			if errors.Is(err, services.ErrUnauthenticated) {
				c.Redirect(http.StatusFound, a.loginPath)
				c.Abort()
				return
			}
			log.Printf("❌ Session lookup failed: %v", err)
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the caller stored by RequireAPI or RequirePage.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}
