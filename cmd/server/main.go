package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mitch8020/guess-who-backend/internal/auth"
	"github.com/mitch8020/guess-who-backend/internal/config"
	"github.com/mitch8020/guess-who-backend/internal/database"
	"github.com/mitch8020/guess-who-backend/internal/handler"
	"github.com/mitch8020/guess-who-backend/internal/images"
	"github.com/mitch8020/guess-who-backend/internal/invites"
	"github.com/mitch8020/guess-who-backend/internal/matches"
	"github.com/mitch8020/guess-who-backend/internal/realtime"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
	"github.com/mitch8020/guess-who-backend/pkg/token"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "github.com/mitch8020/guess-who-backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const cleanupInterval = 10 * time.Minute

func init() {
	config.LoadConfig()
}

// @title           Guess Who API
// @version         1.0
// @description     Room and match backend for the image guessing game.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	db := database.Connect(config.AppConfig.DatabaseURL)

	tokens := token.NewManager(config.AppConfig.JWTSecret)
	hub := realtime.NewHub()

	temporaryTTL := time.Duration(config.AppConfig.TempRoomTTLHours) * time.Hour
	roomService := rooms.NewService(db, temporaryTTL)
	imageService := images.NewService(db, roomService, hub, config.AppConfig.JWTSecret)
	inviteService := invites.NewService(db, roomService, tokens, hub)
	matchService := matches.NewService(db, roomService, imageService, hub)

	api := &handler.API{
		DB:      db,
		Tokens:  tokens,
		Rooms:   roomService,
		Images:  imageService,
		Invites: inviteService,
		Matches: matchService,
		Hub:     hub,
	}
	gateway := realtime.NewGateway(hub, roomService, tokens)

	// Periodic sweep that archives expired temporary rooms.
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if archived, err := roomService.CleanupTemporaryRooms(ctx); err != nil {
				log.Printf("Temporary room cleanup failed: %v", err)
			} else if archived > 0 {
				log.Printf("Archived %d expired temporary rooms", archived)
			}
			cancel()
		}
	}()

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// WebSocket gateway
	router.GET("/ws", gateway.Handle)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", api.RegisterUser)
			authRoutes.POST("/login", api.LoginUser)
		}

		// User routes (registered users only)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.RequireUser(tokens))
		{
			userRoutes.GET("/me", api.GetMe)
		}

		// Invite redemption is open to guests; join detects registered
		// callers through an optional token.
		inviteRoutes := apiV1.Group("/invites")
		inviteRoutes.Use(auth.OptionalPlayer(tokens))
		{
			inviteRoutes.GET("/:code", api.ResolveInvite)
			inviteRoutes.POST("/:code/join", api.JoinInvite)
		}

		// Room creation and listing need a registered user.
		roomRoutes := apiV1.Group("/rooms")
		roomRoutes.Use(auth.RequireUser(tokens))
		{
			roomRoutes.POST("", api.CreateRoom)
			roomRoutes.GET("", api.ListMyRooms)
			roomRoutes.PATCH("/:roomId", api.UpdateRoom)
			roomRoutes.DELETE("/:roomId", api.ArchiveRoom)
			roomRoutes.DELETE("/:roomId/members/:memberId", api.RemoveMember)
			roomRoutes.POST("/:roomId/members/:memberId/mute", api.MuteMember)
			roomRoutes.POST("/:roomId/members/:memberId/unmute", api.UnmuteMember)
		}

		// Everything inside a room accepts any player token, user or
		// guest; the services decide per room membership.
		playerRoutes := apiV1.Group("/rooms")
		playerRoutes.Use(auth.RequirePlayer(tokens))
		{
			playerRoutes.GET("/:roomId", api.GetRoom)
			playerRoutes.POST("/:roomId/leave", api.LeaveRoom)

			playerRoutes.POST("/:roomId/invites", api.CreateInvite)
			playerRoutes.GET("/:roomId/invites", api.ListInvites)
			playerRoutes.DELETE("/:roomId/invites/:inviteId", api.RevokeInvite)

			playerRoutes.POST("/:roomId/images", api.RegisterImage)
			playerRoutes.GET("/:roomId/images", api.ListImages)
			playerRoutes.DELETE("/:roomId/images/:imageId", api.DeleteImage)
			playerRoutes.GET("/:roomId/images/:imageId/url", api.GetImageURL)
			playerRoutes.POST("/:roomId/images/bulk-remove", api.BulkRemoveImages)

			playerRoutes.POST("/:roomId/matches", api.StartMatch)
			playerRoutes.GET("/:roomId/matches", api.ListMatchHistory)
			playerRoutes.GET("/:roomId/matches/:matchId", api.GetMatch)
			playerRoutes.POST("/:roomId/matches/:matchId/actions", api.SubmitAction)
			playerRoutes.POST("/:roomId/matches/:matchId/forfeit", api.ForfeitMatch)
			playerRoutes.POST("/:roomId/matches/:matchId/rematch", api.Rematch)
			playerRoutes.GET("/:roomId/matches/:matchId/replay", api.GetReplay)
		}
	}

	fmt.Printf("Server is running on %s\n", config.AppConfig.HTTPAddr)
	fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
	log.Fatal(router.Run(config.AppConfig.HTTPAddr))
}
