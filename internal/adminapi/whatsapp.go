package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// waConnect kicks off a connection attempt. The response is optimistic; the
// actual outcome surfaces through /api/whatsapp/status and /api/whatsapp/qr.
func (s *WebServer) waConnect(c echo.Context) error {
	s.wasvc.Connect()
	return c.JSON(http.StatusOK, map[string]string{"message": "Connection initiated"})
}

// waQRCode returns the current pairing QR as a PNG data URL, null when no
// pairing is in progress.
func (s *WebServer) waQRCode(c echo.Context) error {
	var qr *string
	if code := s.wasvc.GetQRCode(); code != "" {
		qr = &code
	}
	return c.JSON(http.StatusOK, map[string]*string{"qrCode": qr})
}

// waStatus combines the live in-memory status with the persisted session row
// so phone number and last connection time survive restarts.
func (s *WebServer) waStatus(c echo.Context) error {
	var phone *string
	var lastConnected *time.Time

	session, err := s.sessions.Get(c.Request().Context())
	if err != nil {
		zap.L().Error("failed to load session row", zap.Error(err))
	} else if session != nil {
		phone = session.PhoneNumber
		lastConnected = session.LastConnectedAt
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        s.wasvc.GetStatus(),
		"phoneNumber":   phone,
		"lastConnected": lastConnected,
	})
}

// waDisconnect logs out and erases the stored credentials.
func (s *WebServer) waDisconnect(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()
	if err := s.wasvc.Disconnect(ctx); err != nil {
		zap.L().Error("disconnect failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "Failed to disconnect")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Disconnected successfully"})
}
