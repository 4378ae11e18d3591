package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/mpf/internal/api/handlers"
	"github.com/your-org/mpf/internal/api/ws"
	"github.com/your-org/mpf/internal/auth"
	"github.com/your-org/mpf/internal/notify"
	"github.com/your-org/mpf/internal/queue"
	"github.com/your-org/mpf/internal/scan"
	"github.com/your-org/mpf/internal/storage"
)

type RouterConfig struct {
	APIKey     string
	DB         *storage.PostgresStore
	MinIO      *storage.MinIOStore
	Producer   *queue.Producer
	Dispatcher *notify.Dispatcher
	Hub        *ws.Hub
	Pipeline   *scan.Pipeline
	// ExtractFn extracts face embeddings from image bytes (from vision pipeline).
	ExtractFn func(imageData []byte) ([][]float32, error)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Scans
	scanH := handlers.NewScanHandler(cfg.Pipeline, cfg.DB, cfg.MinIO, cfg.Producer)
	v1.POST("/scan", scanH.Scan)
	v1.POST("/scan/async", scanH.ScanAsync)
	v1.GET("/scans/events", scanH.ListEvents)

	// Cases & Photos
	caseH := handlers.NewCaseHandler(cfg.DB, cfg.MinIO)
	caseH.ExtractFn = cfg.ExtractFn
	v1.POST("/cases", caseH.Create)
	v1.GET("/cases", caseH.List)
	v1.GET("/cases/:id", caseH.Get)
	v1.DELETE("/cases/:id", caseH.Delete)
	v1.POST("/cases/:id/found", caseH.MarkFound)
	v1.POST("/cases/:id/photos", caseH.AddPhoto)
	v1.GET("/cases/:id/photos", caseH.ListPhotos)
	v1.DELETE("/cases/:id/photos/:photoId", caseH.DeletePhoto)

	// Notifications
	notifyH := handlers.NewNotifyHandler(cfg.DB, cfg.Dispatcher)
	v1.POST("/notify", notifyH.Notify)
	v1.GET("/sms/:id/status", notifyH.SMSStatus)

	return r
}
