package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/wacapture/config"
	"github.com/talkincode/wacapture/internal/adminapi"
	"github.com/talkincode/wacapture/internal/app"
	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/internal/store"
	"github.com/talkincode/wacapture/internal/whatsapp"
	"github.com/talkincode/wacapture/pkg/sessioncache"
)

var (
	h        = flag.Bool("h", false, "help usage")
	x        = flag.Bool("x", false, "debug mode")
	initdb   = flag.Bool("initdb", false, "drop and recreate database tables")
	conffile = flag.String("c", "", "config file")
)

func printHelp() {
	if *h {
		ustr := fmt.Sprintf("wacapd version: 1.0.0\r\nUsage: %s [-hx] [-c config_file] [-initdb]\r\nOptions:", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s\r\n", ustr)
		flag.PrintDefaults()
		os.Exit(0)
	}
}

func main() {
	flag.Parse()
	printHelp()

	cfg := config.LoadConfig(*conffile)
	if *x {
		cfg.System.Debug = true
	}
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	cache, err := sessioncache.Open(filepath.Join(cfg.System.Workdir, "data", "session.db"))
	if err != nil {
		zap.L().Fatal("failed to open session cache", zap.Error(err))
	}
	defer cache.Close()

	gdb := application.DB()
	sessions := store.NewSessionStore(gdb)
	messages := store.NewMessageStore(gdb, store.NewContactStore(gdb))

	wasvc, err := whatsapp.New(cfg, gdb, sessions, messages, cache, application.Bus())
	if err != nil {
		zap.L().Fatal("failed to initialize whatsapp service", zap.Error(err))
	}
	defer wasvc.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application.StartBackgroundJobs(ctx)
	application.StartStatusNotifier()
	resumeSession(ctx, sessions, wasvc)

	server := adminapi.NewWebServer(application, wasvc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shctx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server stopped", zap.Error(err))
	}
}

// resumeSession reconnects at boot when the stored session was connected
// before the previous shutdown.
func resumeSession(ctx context.Context, sessions *store.SessionStore, wasvc *whatsapp.Service) {
	qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sess, err := sessions.Get(qctx)
	if err != nil {
		zap.L().Warn("failed to load stored session", zap.Error(err))
		return
	}
	if sess != nil && sess.Status == domain.SessionConnected {
		zap.L().Info("resuming stored whatsapp session", zap.String("jid", sess.Jid))
		wasvc.Connect()
	}
}
