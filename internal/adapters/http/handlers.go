package http

import (
	"net/http"

	"github.com/dkeye/voicesignal/internal/adapters/rtc"
	"github.com/dkeye/voicesignal/internal/app"
	"github.com/dkeye/voicesignal/internal/config"
	"github.com/dkeye/voicesignal/internal/domain"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	registry *app.Registry
	ice      rtc.ICEResponse
}

type RoomsResponse struct {
	Rooms []domain.RoomInfo `json:"rooms"`
}

type MembersResponse struct {
	Room    domain.RoomID   `json:"room"`
	Members []domain.Member `json:"members"`
}

func iceResponse(cfg *config.Config) rtc.ICEResponse {
	return rtc.NewICEResponse(rtc.WebRTCConfig(cfg.ICEServers))
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, RoomsResponse{Rooms: h.registry.List()})
}

func (h *handlers) roomMembers(c *gin.Context) {
	id := domain.NormalizeRoomID(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room id"})
		return
	}
	c.JSON(http.StatusOK, MembersResponse{
		Room:    id,
		Members: h.registry.Snapshot(id),
	})
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, h.ice)
}
