package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatcore/chatcore/internal/domain"
)

type userInput struct {
	UserID domain.UserID `json:"userId"`
}

func bindUser(c *gin.Context) (domain.UserID, bool) {
	var in userInput
	if err := c.ShouldBindJSON(&in); err != nil || in.UserID == "" {
		abortWith(c, domain.Validation("invalid body"))
		return "", false
	}
	return in.UserID, true
}

type fcmTokenInput struct {
	Token string `json:"token"`
}

// registerFCMToken stores a device token for the push fallback path.
func (s *Server) registerFCMToken(c *gin.Context) {
	var in fcmTokenInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Token == "" {
		abortWith(c, domain.Validation("invalid body"))
		return
	}
	if err := s.orch.Users.AddFCMToken(c.Request.Context(), currentUser(c), in.Token); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listFriends(c *gin.Context) {
	friends, err := s.orch.Friends.Friends(c.Request.Context(), currentUser(c), pageOf(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

func (s *Server) listFriendRequests(c *gin.Context) {
	requests, err := s.orch.Friends.Requests(c.Request.Context(), currentUser(c), pageOf(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (s *Server) sendFriendRequest(c *gin.Context) {
	target, ok := bindUser(c)
	if !ok {
		return
	}
	if err := s.orch.SendFriendRequest(c.Request.Context(), currentUser(c), target); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) acceptFriendRequest(c *gin.Context) {
	requester, ok := bindUser(c)
	if !ok {
		return
	}
	if err := s.orch.AcceptFriendRequest(c.Request.Context(), currentUser(c), requester); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) cancelFriendRequest(c *gin.Context) {
	target := domain.UserID(c.Param("id"))
	if err := s.orch.CancelFriendRequest(c.Request.Context(), currentUser(c), target); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteFriend(c *gin.Context) {
	friend := domain.UserID(c.Param("id"))
	if err := s.orch.DeleteFriend(c.Request.Context(), currentUser(c), friend); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listBlocks(c *gin.Context) {
	users, err := s.orch.Blocks.List(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) blockUser(c *gin.Context) {
	target, ok := bindUser(c)
	if !ok {
		return
	}
	if err := s.orch.BlockUser(c.Request.Context(), currentUser(c), target); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) unblockUser(c *gin.Context) {
	target := domain.UserID(c.Param("id"))
	if err := s.orch.UnblockUser(c.Request.Context(), currentUser(c), target); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
