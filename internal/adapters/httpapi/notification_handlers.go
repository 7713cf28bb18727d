package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listNotifications(c *gin.Context) {
	items, err := s.orch.Notifs.List(c.Request.Context(), currentUser(c), pageOf(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) notificationCount(c *gin.Context) {
	count, err := s.orch.Notifs.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	if err := s.orch.Notifs.MarkRead(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
