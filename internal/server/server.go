package server

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/gatherly/api/config"
	"github.com/gatherly/api/internal/handlers"
	"github.com/gatherly/api/internal/middleware"
	"github.com/gatherly/api/internal/notifications"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	// The dispatcher and sweeper run beside the request tier but share
	// nothing with it except the job table.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifCfg := config.LoadNotificationConfig()
	dispatcher := notifications.NewDispatcher(db, config.InitSender(), log.Logger, notifCfg.Dispatcher)
	go dispatcher.Run(ctx)

	sweeper := notifications.NewSweeper(db, log.Logger, notifCfg.SweepInterval)
	go sweeper.Run(ctx)

	r := gin.Default()

	SetupRoutes(r, db)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Msg("starting http server")
	return r.Run(":" + port)
}

func SetupRoutes(r *gin.Engine, db *gorm.DB) {
	r.Use(middleware.DatabaseMiddleware(db))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)
	}

	// Public event reads resolve the caller when a token is present; the
	// visibility rules need the identity, but anonymous is still allowed.
	optional := r.Group("/v1")
	optional.Use(middleware.OptionalJWTAuthMiddleware())
	{
		optional.GET("/events", handlers.ListEvents)
		optional.GET("/events/:id", handlers.GetEvent)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		eventProtected := protected.Group("/events")
		{
			eventProtected.POST("", handlers.CreateEvent)
			eventProtected.PUT("/:id", handlers.UpdateEvent)
			eventProtected.PATCH("/:id", handlers.UpdateEvent)
			eventProtected.DELETE("/:id", handlers.DeleteEvent)
			eventProtected.POST("/:id/rsvp", handlers.RSVPEvent)
			eventProtected.GET("/:id/rsvps", handlers.ListEventRSVPs)
			eventProtected.POST("/:id/review", handlers.ReviewEvent)
			eventProtected.GET("/:id/reviews", handlers.ListEventReviews)
		}

		rsvpProtected := protected.Group("/rsvps")
		{
			rsvpProtected.GET("", handlers.ListRSVPs)
			rsvpProtected.PUT("/:id", handlers.UpdateRSVP)
			rsvpProtected.PATCH("/:id", handlers.UpdateRSVP)
			rsvpProtected.DELETE("/:id", handlers.DeleteRSVP)
		}

		reviewProtected := protected.Group("/reviews")
		{
			reviewProtected.GET("", handlers.ListReviews)
			reviewProtected.PUT("/:id", handlers.UpdateReview)
			reviewProtected.PATCH("/:id", handlers.UpdateReview)
			reviewProtected.DELETE("/:id", handlers.DeleteReview)
		}

		profileProtected := protected.Group("/profile")
		{
			profileProtected.GET("/me", handlers.GetMyProfile)
			profileProtected.PUT("/me", handlers.UpdateMyProfile)
			profileProtected.PATCH("/me", handlers.UpdateMyProfile)
		}
	}
}
