package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/tempvoice/internal/config"
	"github.com/dkeye/tempvoice/internal/domain"
)

// RoomLister is the read side of the registry.
type RoomLister interface {
	Rooms(gid domain.GuildID) []domain.Room
}

type roomView struct {
	ChannelID string   `json:"channel_id"`
	GuildID   string   `json:"guild_id"`
	OwnerID   string   `json:"owner_id"`
	CoOwners  []string `json:"co_owners"`
	CreatedAt string   `json:"created_at,omitempty"`
}

func viewOf(r domain.Room) roomView {
	v := roomView{
		ChannelID: string(r.ChannelID),
		GuildID:   string(r.GuildID),
		OwnerID:   string(r.OwnerID),
		CoOwners:  make([]string, 0, len(r.CoOwnerIDs)),
	}
	for _, co := range r.CoOwnerIDs {
		v.CoOwners = append(v.CoOwners, string(co))
	}
	if !r.CreatedAt.IsZero() {
		v.CreatedAt = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func listRooms(rooms RoomLister, gid domain.GuildID) []roomView {
	all := rooms.Rooms(gid)
	out := make([]roomView, 0, len(all))
	for _, r := range all {
		out = append(out, viewOf(r))
	}
	return out
}

// SetupRouter serves health and a read-only room listing.
func SetupRouter(cfg *config.Config, rooms RoomLister) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": listRooms(rooms, "")})
	})

	api.GET("/guilds/:guild/rooms", func(c *gin.Context) {
		gid := domain.GuildID(c.Param("guild"))
		c.JSON(http.StatusOK, gin.H{"guild_id": gid, "rooms": listRooms(rooms, gid)})
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
