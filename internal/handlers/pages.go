package handlers

import (
	"net/http"

	"todo-app/backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

type PageHandler struct {
	sessionAuth *middleware.SessionAuth
}

func NewPageHandler(sessionAuth *middleware.SessionAuth) *PageHandler {
	return &PageHandler{sessionAuth: sessionAuth}
}

func (h *PageHandler) Index(c *gin.Context) {
	if _, err := h.sessionAuth.Resolve(c); err == nil {
		c.Redirect(http.StatusFound, "/app")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// App renders the main page. It must run behind SessionAuth.RequirePage.
func (h *PageHandler) App(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.HTML(http.StatusOK, "app.html", gin.H{"Username": user.Username})
}
