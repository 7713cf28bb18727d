package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatcore/chatcore/internal/domain"
)

type createRoomInput struct {
	Name domain.RoomName `json:"name"`
}

func (s *Server) createRoom(c *gin.Context) {
	var in createRoomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWith(c, domain.Validation("invalid body"))
		return
	}
	room, err := s.orch.CreateRoom(c.Request.Context(), currentUser(c), in.Name)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *Server) roomByID(c *gin.Context) {
	room, err := s.orch.Rooms.ByID(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) updateRoom(c *gin.Context) {
	var patch domain.RoomPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWith(c, domain.Validation("invalid body"))
		return
	}
	room, err := s.orch.UpdateRoom(c.Request.Context(), currentUser(c), domain.RoomID(c.Param("id")), patch)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) leaveRoom(c *gin.Context) {
	room, err := s.orch.LeaveRoom(c.Request.Context(), currentUser(c), domain.RoomID(c.Param("id")))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) searchRooms(c *gin.Context) {
	rooms, err := s.orch.Rooms.Search(c.Request.Context(), currentUser(c), c.Query("q"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) publicRooms(c *gin.Context) {
	rooms, err := s.orch.Rooms.Public(c.Request.Context(), currentUser(c), pageOf(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) activeRooms(c *gin.Context) {
	rooms, err := s.orch.Rooms.Active(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) favoriteRooms(c *gin.Context) {
	rooms, err := s.orch.Rooms.Favorites(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) addFavorite(c *gin.Context) {
	if err := s.orch.Rooms.AddFavorite(c.Request.Context(), currentUser(c), domain.RoomID(c.Param("id"))); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeFavorite(c *gin.Context) {
	if err := s.orch.Rooms.RemoveFavorite(c.Request.Context(), currentUser(c), domain.RoomID(c.Param("id"))); err != nil {
		abortWith(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type roleInput struct {
	UserID domain.UserID `json:"userId"`
}

// roleHandler adapts the nine role-transition endpoints to one shape: the
// room rides the path, the target rides the body.
func (s *Server) roleHandler(do func(ctx context.Context, actor, target domain.UserID, roomID domain.RoomID) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in roleInput
		if err := c.ShouldBindJSON(&in); err != nil || in.UserID == "" {
			abortWith(c, domain.Validation("invalid body"))
			return
		}
		err := do(c.Request.Context(), currentUser(c), in.UserID, domain.RoomID(c.Param("id")))
		if err != nil {
			abortWith(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
