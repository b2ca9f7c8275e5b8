package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/app/orch"
	"github.com/dkeye/Chatter/internal/domain"
)

type handlers struct {
	orch *orch.Orchestrator
}

type kickRequest struct {
	UsernameToKick string `json:"usernameToKick" binding:"required"`
}

type createRoomRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	CategoryID string `json:"categoryId"`
}

type membersResponse struct {
	RoomID domain.RoomID     `json:"roomId"`
	Users  []domain.MemberID `json:"users"`
	Count  int               `json:"userCount"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidOperation),
		errors.Is(err, domain.ErrRoomNameEmpty),
		errors.Is(err, domain.ErrRoomNameTooLong):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// kick: the caller must own the room; the target must be a current member.
func (h *handlers) kick(c *gin.Context) {
	var req kickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "usernameToKick is required"})
		return
	}
	target, err := domain.ParseMemberID(req.UsernameToKick)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "usernameToKick is required"})
		return
	}
	room := domain.RoomID(c.Param("roomId"))
	actor := memberFrom(c)

	if err := h.orch.AdminKick(c.Request.Context(), room, actor, target); err != nil {
		log.Info().Err(err).Str("module", "adapters.http").Str("room", string(room)).
			Str("actor", string(actor)).Str("target", string(target)).Msg("kick rejected")
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User " + string(target) + " kicked from room"})
}

func (h *handlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	room, err := h.orch.CreateRoom(c.Request.Context(), req.Name, memberFrom(c), domain.CategoryID(req.CategoryID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms, err := h.orch.Rooms.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *handlers) getRoom(c *gin.Context) {
	info, err := h.orch.RoomInfo(c.Request.Context(), domain.RoomID(c.Param("roomId")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) members(c *gin.Context) {
	id := domain.RoomID(c.Param("roomId"))
	if _, err := h.orch.Rooms.Room(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	users := h.orch.Presence.Members(id)
	c.JSON(http.StatusOK, membersResponse{RoomID: id, Users: users, Count: len(users)})
}
