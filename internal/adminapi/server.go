package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/wacapture/config"
	"github.com/talkincode/wacapture/internal/app"
	"github.com/talkincode/wacapture/internal/store"
	"github.com/talkincode/wacapture/internal/whatsapp"
)

// WebServer binds the admin/search HTTP API to the connection manager and
// the message stores.
type WebServer struct {
	root     *echo.Echo
	cfg      *config.AppConfig
	db       *gorm.DB
	wasvc    *whatsapp.Service
	sessions *store.SessionStore
	messages *store.MessageStore
}

func NewWebServer(appctx app.AppContext, wasvc *whatsapp.Service) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	db := appctx.DB()
	s := &WebServer{
		root:     e,
		cfg:      appctx.Config(),
		db:       db,
		wasvc:    wasvc,
		sessions: store.NewSessionStore(db),
		messages: store.NewMessageStore(db, store.NewContactStore(db)),
	}
	s.initRoutes()
	return s
}

func (s *WebServer) initRoutes() {
	api := s.root.Group("/api")
	api.POST("/admin/login", s.login)
	api.POST("/admin/register", s.register)

	// Connection control requires an authenticated admin; the search
	// surface stays open for the end-user UI.
	wa := api.Group("/whatsapp", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(s.cfg.Web.JwtSecret),
		ErrorHandler: func(c echo.Context, err error) error {
			return fail(c, http.StatusUnauthorized, "Unauthorized")
		},
	}))
	wa.POST("/connect", s.waConnect)
	wa.GET("/qr", s.waQRCode)
	wa.GET("/status", s.waStatus)
	wa.POST("/disconnect", s.waDisconnect)

	api.GET("/messages/search", s.searchMessages)
	api.GET("/groups", s.listGroups)
}

// Start runs the HTTP listener until Shutdown is called.
func (s *WebServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port)
	zap.L().Info("starting web server", zap.String("listen", addr))
	err := s.root.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

// Handler exposes the router for httptest-based tests.
func (s *WebServer) Handler() http.Handler {
	return s.root
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			zap.L().Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("elapsed", time.Since(start)))
			return err
		}
	}
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, map[string]string{"error": message})
}
