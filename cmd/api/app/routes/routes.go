package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/cmd/api/app/internal/handler"
	"github.com/kacamatagratis/kacamatagratis/pkg/automation"
	"github.com/kacamatagratis/kacamatagratis/pkg/config"
	"github.com/kacamatagratis/kacamatagratis/pkg/gateway"
)

// Public registers the unauthenticated surface the landing page calls.
func Public(r *gin.RouterGroup, db *gorm.DB) {
	registerHandler := handler.NewRegisterHandler(db)
	eventHandler := handler.NewEventHandler(db)
	settingsHandler := handler.NewSettingsHandler(db)

	r.POST("/register", registerHandler.Register)
	r.GET("/events/latest", eventHandler.LatestUpcoming)
	r.GET("/landing", settingsHandler.GetLanding)
}

func Auth(r *gin.RouterGroup, rdb *redis.Client) {
	authHandler := handler.NewAuthHandler(rdb)
	r.POST("/login", authHandler.Login)
	r.POST("/logout", authHandler.Logout)
}

func Participants(r *gin.RouterGroup, db *gorm.DB) {
	participantHandler := handler.NewParticipantHandler(db)

	r.GET("/", participantHandler.List)
	r.GET("/export", participantHandler.ExportCSV)
	r.GET("/:id", participantHandler.Get)
	r.PUT("/:id", participantHandler.Update)
	r.DELETE("/:id", participantHandler.Delete)
	r.POST("/:id/toggle-status", participantHandler.ToggleStatus)
	r.POST("/:id/unsubscribe", participantHandler.SetUnsubscribed)
}

func Events(r *gin.RouterGroup, db *gorm.DB) {
	eventHandler := handler.NewEventHandler(db)

	r.POST("/", eventHandler.Create)
	r.GET("/", eventHandler.List)
	r.PUT("/:id", eventHandler.Update)
	r.DELETE("/:id", eventHandler.Delete)
}

func Templates(r *gin.RouterGroup, db *gorm.DB) {
	templateHandler := handler.NewTemplateHandler(db)

	r.POST("/", templateHandler.Create)
	r.GET("/", templateHandler.List)
	r.GET("/:id", templateHandler.Get)
	r.PUT("/:id", templateHandler.Update)
	r.DELETE("/:id", templateHandler.Delete)
}

func DripSenderKeys(r *gin.RouterGroup, db *gorm.DB, client gateway.Sender) {
	keyHandler := handler.NewDripSenderHandler(db, client)

	r.POST("/", keyHandler.Create)
	r.GET("/", keyHandler.List)
	r.PUT("/:id", keyHandler.Update)
	r.DELETE("/:id", keyHandler.Delete)
	r.POST("/:id/health-test", keyHandler.HealthTest)
}

func Settings(r *gin.RouterGroup, db *gorm.DB) {
	settingsHandler := handler.NewSettingsHandler(db)

	r.GET("/automation", settingsHandler.GetAutomation)
	r.PUT("/automation", settingsHandler.UpdateAutomation)
	r.POST("/landing", settingsHandler.UpsertLanding)
}

func Notifications(r *gin.RouterGroup, db *gorm.DB, engine *automation.Engine) {
	notificationHandler := handler.NewNotificationHandler(db, engine)

	r.GET("/", notificationHandler.List)
	r.POST("/retry", notificationHandler.Retry)
}

func Broadcast(r *gin.RouterGroup, gw *gateway.Gateway, cfg config.BroadcastConfig) {
	broadcastHandler := handler.NewBroadcastHandler(gw, cfg.MessagesPerSecond, cfg.Burst)

	r.POST("/send", broadcastHandler.Send)
}

// Automation wires both trigger paths: the cron endpoint authenticates
// itself with CRON_SECRET, the manual trigger and status live behind the
// admin session like the rest of the back office.
func Automation(public, admin *gin.RouterGroup, db *gorm.DB, runner *automation.Runner, engine *automation.Engine) {
	automationHandler := handler.NewAutomationHandler(runner)
	notificationHandler := handler.NewNotificationHandler(db, engine)

	public.GET("/cron/automation", automationHandler.Cron)
	public.POST("/cron/automation", automationHandler.Cron)

	admin.POST("/automation/trigger", automationHandler.Trigger)
	admin.GET("/automation/status", notificationHandler.AutomationStatus)
}
