package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatcore/chatcore/internal/app"
	"github.com/chatcore/chatcore/internal/domain"
)

func (s *Server) sendPrivateMessage(c *gin.Context) {
	var in app.SendMessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWith(c, domain.Validation("invalid body"))
		return
	}
	msg, err := s.orch.SendPrivate(c.Request.Context(), currentUser(c), in)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) sendRoomMessage(c *gin.Context) {
	var in app.SendRoomMessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWith(c, domain.Validation("invalid body"))
		return
	}
	msg, err := s.orch.SendRoom(c.Request.Context(), currentUser(c), in)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// contacts doubles as the deferred-sent sweep trigger: fetching the list is
// the receiver's first action after connecting.
func (s *Server) contacts(c *gin.Context) {
	out, err := s.orch.Contacts(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// conversation pages a private thread. Page one marks the counterpart's
// messages seen as a side effect of reading them.
func (s *Server) conversation(c *gin.Context) {
	counterpart := domain.UserID(c.Param("id"))
	msgs, err := s.orch.Conversation(c.Request.Context(), currentUser(c), counterpart, pageOf(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (s *Server) setSeen(c *gin.Context) {
	counterpart := domain.UserID(c.Param("id"))
	s.orch.MarkSeen(c.Request.Context(), currentUser(c), counterpart)
	c.Status(http.StatusNoContent)
}

type reactionInput struct {
	MessageID domain.MessageID     `json:"messageId"`
	Kind      *domain.ReactionKind `json:"type"`
}

func (s *Server) react(c *gin.Context) {
	var in reactionInput
	if err := c.ShouldBindJSON(&in); err != nil || in.MessageID == "" {
		abortWith(c, domain.Validation("invalid body"))
		return
	}
	msg, err := s.orch.React(c.Request.Context(), currentUser(c), in.MessageID, in.Kind)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (s *Server) deleteMessage(c *gin.Context) {
	id := domain.MessageID(c.Param("id"))
	if err := s.orch.Chat.HideMessage(c.Request.Context(), currentUser(c), id); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
