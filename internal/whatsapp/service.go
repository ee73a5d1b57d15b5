package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/mdp/qrterminal/v3"
	"github.com/panjf2000/ants/v2"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/mattn/go-sqlite3"

	"github.com/talkincode/wacapture/config"
	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/internal/store"
	"github.com/talkincode/wacapture/pkg/sessioncache"
)

// EventBus topics published by the service.
const (
	TopicStatus  = "whatsapp:status"
	TopicMessage = "whatsapp:message"
)

const messageWorkers = 8

// Service owns the single whatsmeow client of the process and its lifecycle:
// pairing, credential restore, reconnects and inbound message ingestion.
// All mutable connection state lives behind one mutex.
type Service struct {
	cfg      *config.AppConfig
	sessions *store.SessionStore
	messages *store.MessageStore
	cache    *sessioncache.Cache
	bus      EventBus.Bus
	pool     *ants.Pool

	mu             sync.Mutex
	container      *sqlstore.Container
	client         *whatsmeow.Client
	status         string
	qrDataURL      string
	loggedOut      bool
	reconnectTimer *time.Timer
	reconnects     int
}

// New wires the service onto the application's database connection so the
// whatsmeow credential tables live in the same database as ours.
func New(cfg *config.AppConfig, gdb *gorm.DB, sessions *store.SessionStore,
	messages *store.MessageStore, cache *sessioncache.Cache, bus EventBus.Bus) (*Service, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain underlying sql.DB: %w", err)
	}

	driver := "sqlite3"
	if strings.EqualFold(strings.TrimSpace(cfg.Database.Type), "postgres") {
		driver = "postgres"
	}
	if driver == "sqlite3" {
		if _, err := sqlDB.ExecContext(context.Background(), "PRAGMA foreign_keys = ON;"); err != nil {
			zap.L().Warn("whatsapp: unable to enable sqlite foreign_keys pragma", zap.Error(err))
		}
	}

	container := sqlstore.NewWithDB(sqlDB, driver, nil)
	if err := container.Upgrade(context.Background()); err != nil {
		return nil, fmt.Errorf("sqlstore upgrade failed: %w", err)
	}

	pool, err := ants.NewPool(messageWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to create message worker pool: %w", err)
	}

	svc := &Service{
		cfg:       cfg,
		sessions:  sessions,
		messages:  messages,
		cache:     cache,
		bus:       bus,
		pool:      pool,
		container: container,
		status:    domain.SessionDisconnected,
	}
	zap.L().Info("whatsapp: service initialized", zap.String("driver", driver))
	return svc, nil
}

// Connect starts a connection attempt in the background. A second call while
// already connecting or connected is a logged no-op. Setup errors never reach
// the caller; they force the state back to disconnected and are persisted.
func (s *Service) Connect() {
	s.mu.Lock()
	if s.status == domain.SessionConnecting || s.status == domain.SessionConnected {
		s.mu.Unlock()
		zap.L().Info("whatsapp: connect ignored, already active", zap.String("status", s.status))
		return
	}
	s.status = domain.SessionConnecting
	s.loggedOut = false
	s.mu.Unlock()

	go s.startClient()
}

func (s *Service) startClient() {
	ctx := context.Background()

	// A previously paired device resumes directly; a fresh one starts QR
	// pairing after Connect.
	device, err := s.container.GetFirstDevice(ctx)
	if err != nil {
		s.failConnect(err)
		return
	}

	// The service owns reconnect scheduling; the library must not run its
	// own retry loop alongside ours.
	client := whatsmeow.NewClient(device, nil)
	client.EnableAutoReconnect = false
	client.AddEventHandler(s.handleEvent)

	prev, ok := s.swapClient(client)
	if !ok {
		zap.L().Info("whatsapp: connect attempt aborted, disconnected meanwhile")
		client.RemoveEventHandlers()
		return
	}
	if prev != nil {
		prev.RemoveEventHandlers()
		prev.Disconnect()
	}

	if err := client.Connect(); err != nil {
		s.failConnect(err)
		return
	}
	zap.L().Info("whatsapp: connection attempt started",
		zap.Bool("has_credentials", device.ID != nil))
}

// swapClient installs a freshly built client, handing back the handle it
// replaces so the caller can disconnect it. Only one client may be live per
// process. Returns false when an explicit disconnect overtook the attempt.
func (s *Service) swapClient(client *whatsmeow.Client) (*whatsmeow.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedOut || s.status != domain.SessionConnecting {
		return nil, false
	}
	prev := s.client
	s.client = client
	return prev, true
}

func (s *Service) failConnect(err error) {
	zap.L().Error("whatsapp: connect setup failed", zap.Error(err))
	s.mu.Lock()
	s.status = domain.SessionDisconnected
	s.client = nil
	s.mu.Unlock()
	s.persistSession(store.SessionPatch{Status: domain.SessionDisconnected})
	s.publishStatus(domain.SessionDisconnected)
}

// Disconnect logs out explicitly: no auto-reconnect, QR cache dropped, the
// stored credentials erased both remotely and from the local cache. Any
// reconnect pending from an earlier unexpected close is cancelled.
func (s *Service) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.loggedOut = true
	s.cancelReconnectLocked()
	client := s.client
	s.client = nil
	s.qrDataURL = ""
	s.status = domain.SessionDisconnected
	s.reconnects = 0
	s.mu.Unlock()

	if client != nil {
		if err := client.Logout(ctx); err != nil {
			zap.L().Warn("whatsapp: logout failed, disconnecting anyway", zap.Error(err))
			client.Disconnect()
		}
	}
	s.eraseCredentials(ctx)
	s.persistSession(store.SessionPatch{Status: domain.SessionDisconnected})
	s.publishStatus(domain.SessionDisconnected)
	zap.L().Info("whatsapp: disconnected by request")
	return nil
}

// eraseCredentials removes every stored whatsmeow device and the local
// snapshot. Logout already deletes the active device; this also covers
// clients that never finished pairing.
func (s *Service) eraseCredentials(ctx context.Context) {
	if s.container == nil {
		return
	}
	devices, err := s.container.GetAllDevices(ctx)
	if err != nil {
		zap.L().Warn("whatsapp: failed to list stored devices for erase", zap.Error(err))
	} else {
		for _, dev := range devices {
			if err := s.container.DeleteDevice(ctx, dev); err != nil {
				zap.L().Warn("whatsapp: failed to delete stored device", zap.Error(err))
			}
		}
	}
	if s.cache != nil {
		if err := s.cache.Clear(); err != nil {
			zap.L().Warn("whatsapp: failed to clear session cache", zap.Error(err))
		}
	}
}

// GetStatus returns the in-memory connection status snapshot.
func (s *Service) GetStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// GetQRCode returns the latest pairing QR image as a PNG data URL, or an
// empty string when no pairing is in progress.
func (s *Service) GetQRCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.qrDataURL
}

func (s *Service) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.QR:
		s.handleQR(e.Codes)
	case *events.Connected:
		s.handleConnected()
	case *events.Disconnected:
		s.handleClosed(false)
	case *events.LoggedOut:
		zap.L().Info("whatsapp: logged out remotely", zap.Stringer("reason", e.Reason))
		s.handleClosed(true)
	case *events.Message:
		s.enqueueMessage(e)
	}
}

// handleQR replaces the cached QR image on every token rotation.
func (s *Service) handleQR(codes []string) {
	if len(codes) == 0 {
		return
	}
	png, err := qrcode.Encode(codes[0], qrcode.Medium, 256)
	if err != nil {
		zap.L().Warn("whatsapp: failed to render QR code", zap.Error(err))
		return
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	s.mu.Lock()
	s.qrDataURL = dataURL
	s.mu.Unlock()

	zap.L().Info("whatsapp: pairing QR updated", zap.Int("codes", len(codes)))
	if s.cfg.System.Debug && s.cfg.Whatsapp.PrintQR {
		qrterminal.GenerateHalfBlock(codes[0], qrterminal.L, os.Stdout)
	}
}

func (s *Service) handleConnected() {
	s.mu.Lock()
	// A late open event must not resurrect a session the admin already
	// logged out of.
	if s.loggedOut {
		s.mu.Unlock()
		zap.L().Info("whatsapp: ignoring open event after explicit disconnect")
		return
	}
	s.status = domain.SessionConnected
	s.qrDataURL = ""
	s.reconnects = 0
	s.cancelReconnectLocked()
	client := s.client
	s.mu.Unlock()

	var jid, phone string
	if client != nil && client.Store.ID != nil {
		jid = client.Store.ID.String()
		phone = client.Store.ID.User
	}
	zap.L().Info("whatsapp: connected", zap.String("jid", jid))

	patch := store.SessionPatch{Jid: jid, Status: domain.SessionConnected}
	if phone != "" {
		patch.PhoneNumber = &phone
	}
	s.persistSession(patch)

	if s.cache != nil && jid != "" {
		if err := s.cache.Save(sessioncache.Snapshot{Jid: jid, PhoneNumber: phone, PairedAt: time.Now()}); err != nil {
			zap.L().Warn("whatsapp: failed to cache session snapshot", zap.Error(err))
		}
	}
	s.publishStatus(domain.SessionConnected)
}

// handleClosed runs for both unexpected closes and logouts. Only a close
// that is not an explicit logout schedules the single delayed reconnect.
func (s *Service) handleClosed(loggedOut bool) {
	s.mu.Lock()
	explicit := loggedOut || s.loggedOut
	s.status = domain.SessionDisconnected
	if explicit {
		s.client = nil
		s.qrDataURL = ""
	}
	s.mu.Unlock()

	s.persistSession(store.SessionPatch{Status: domain.SessionDisconnected})

	if explicit {
		if loggedOut {
			s.eraseCredentials(context.Background())
		}
		zap.L().Info("whatsapp: connection closed, no reconnect (logout)")
	} else {
		zap.L().Warn("whatsapp: connection closed unexpectedly, scheduling reconnect")
		s.scheduleReconnect()
	}
	s.publishStatus(domain.SessionDisconnected)
}

// scheduleReconnect arms a single cancellable timer for the fixed delay.
// A reconnect already pending is rearmed, never duplicated.
func (s *Service) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := s.cfg.Whatsapp.MaxReconnects
	if max > 0 && s.reconnects >= max {
		zap.L().Warn("whatsapp: reconnect limit reached, giving up", zap.Int("attempts", s.reconnects))
		return
	}
	s.reconnects++

	delay := time.Duration(s.cfg.Whatsapp.ReconnectDelayMs) * time.Millisecond
	if delay <= 0 {
		delay = 3 * time.Second
	}
	s.cancelReconnectLocked()
	s.reconnectTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.reconnectTimer = nil
		skip := s.loggedOut
		s.mu.Unlock()
		if skip {
			return
		}
		zap.L().Info("whatsapp: reconnecting after unexpected close")
		s.Connect()
	})
}

func (s *Service) cancelReconnectLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

// enqueueMessage hands one inbound message to the worker pool. Messages are
// processed independently; one failure never blocks the rest of a batch.
func (s *Service) enqueueMessage(evt *events.Message) {
	task := func() { s.processMessage(evt) }
	if err := s.pool.Submit(task); err != nil {
		zap.L().Warn("whatsapp: worker pool rejected message, processing inline", zap.Error(err))
		task()
	}
}

func (s *Service) processMessage(evt *events.Message) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("whatsapp: panic while processing message", zap.Any("panic", r))
		}
	}()

	rec, ok := Normalize(evt, s.lookupGroupName)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.messages.Save(ctx, rec); err != nil {
		zap.L().Warn("whatsapp: failed to persist message",
			zap.String("message_id", rec.MessageID), zap.Error(err))
		return
	}
	s.bus.Publish(TopicMessage, rec)
	zap.L().Debug("whatsapp: message captured",
		zap.String("sender", rec.SenderNumber),
		zap.Bool("is_group", rec.IsGroup),
		zap.String("type", rec.MessageType))
}

// lookupGroupName resolves the human-readable group subject. A lookup
// failure yields a null name and never blocks message persistence.
func (s *Service) lookupGroupName(jid types.JID) *string {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	info, err := client.GetGroupInfo(ctx, jid)
	if err != nil {
		zap.L().Warn("whatsapp: group metadata lookup failed",
			zap.Stringer("group", jid), zap.Error(err))
		return nil
	}
	if info == nil || info.Name == "" {
		return nil
	}
	name := info.Name
	return &name
}

func (s *Service) persistSession(patch store.SessionPatch) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.sessions.Upsert(ctx, patch); err != nil {
		zap.L().Error("whatsapp: failed to persist session state",
			zap.String("status", patch.Status), zap.Error(err))
	}
}

func (s *Service) publishStatus(status string) {
	if s.bus != nil {
		s.bus.Publish(TopicStatus, status)
	}
}

// Release stops the worker pool and drops any pending reconnect.
func (s *Service) Release() {
	s.mu.Lock()
	s.cancelReconnectLocked()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client != nil {
		client.Disconnect()
	}
	s.pool.Release()
}
