package server

import (
	"encoding/json"
	"expvar"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wfunc/tysiac/services"
)

const playerHeader = "X-Player-ID"

func (s *GameServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })
	r.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	r.GET("/ws", s.handleWebSocket)

	api := r.Group("/api")
	api.POST("/action", s.handleHTTPAction)
	api.GET("/rooms", func(ctx *gin.Context) {
		s.respond(ctx, services.Request{Action: services.ActionListRooms})
	})
	api.GET("/rooms/:id", func(ctx *gin.Context) {
		data, _ := json.Marshal(map[string]string{"roomId": ctx.Param("id")})
		s.respond(ctx, services.Request{Action: services.ActionGetRoom, PlayerID: requestPlayer(ctx), Data: data})
	})
	api.GET("/last-winner", func(ctx *gin.Context) {
		s.respond(ctx, services.Request{Action: services.ActionLastWinner})
	})
	return r
}

func (s *GameServer) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			playerHeader,
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(s.opts.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = s.opts.AllowedOrigins
	cfg.AllowCredentials = true
	return cfg
}

func requestPlayer(ctx *gin.Context) string {
	if id := ctx.GetHeader(playerHeader); id != "" {
		return id
	}
	return ctx.Query("playerId")
}

func (s *GameServer) handleHTTPAction(ctx *gin.Context) {
	var req services.Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, services.Response{Error: "malformed request body", Code: services.CodeValidation})
		return
	}
	if id := ctx.GetHeader(playerHeader); id != "" {
		req.PlayerID = id
	}
	s.respond(ctx, req)
}

func (s *GameServer) respond(ctx *gin.Context, req services.Request) {
	resp := s.service.Dispatch(ctx.Request.Context(), req)
	ctx.JSON(StatusFor(resp), resp)
}

// StatusFor maps a dispatch response to its HTTP status.
func StatusFor(resp services.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Code {
	case services.CodeValidation, services.CodeRoomFull, services.CodeTurn, services.CodeIllegalMove:
		return http.StatusBadRequest
	case services.CodeAuthorization:
		return http.StatusForbidden
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
