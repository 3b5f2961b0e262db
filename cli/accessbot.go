package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/apigateway"
	"github.com/downtowncxsh/xplx-access-bot/auditor"
	"github.com/downtowncxsh/xplx-access-bot/commerce"
	"github.com/downtowncxsh/xplx-access-bot/entitlement"
	"github.com/downtowncxsh/xplx-access-bot/membership"
	"github.com/downtowncxsh/xplx-access-bot/store"
	"github.com/downtowncxsh/xplx-access-bot/verifier"
)

var logrusLogger = logrus.New()

func main() {
	cfg, err := loadConfig()
	if err != nil {
		logrusLogger.Fatalf("error loading config: %v", err)
	}
	configureLogger(cfg)

	links, err := store.NewLinks(cfg.StorePath)
	if err != nil {
		logrusLogger.Fatalf("error opening link store: %v", err)
	}
	journal, err := store.OpenJournal(cfg.JournalPath, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("error opening journal: %v", err)
	}

	// Role reconciliation and member lookup are plain REST calls; no gateway
	// websocket session is needed.
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logrusLogger.Fatalf("error creating discord session: %v", err)
	}
	platform := membership.NewDiscord(session, cfg.Discord.GuildID)

	resolver := entitlement.NewResolver(cfg.Tiers)
	reconciler := membership.NewReconciler(platform, cfg.BaseRole, resolver.RoleNames(), logrusLogger)
	gateway := commerce.NewClient(cfg.Commerce.OrdersURL, cfg.Commerce.Token, logrusLogger)

	verifyService := verifier.NewService(links, journal, gateway, reconciler, resolver, logrusLogger)
	auditService := auditor.NewService(links, journal, platform, reconciler, cfg, logrusLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Audit.Enabled {
		go auditService.Run(ctx, cfg.AuditStartupDelay(), cfg.AuditInterval())
	} else {
		logrusLogger.Warn("audit scheduler disabled by config")
	}

	app := apigateway.Router(apigateway.Deps{
		Verifier: verifyService,
		Auditor:  auditService,
		Journal:  journal,
		AdminKey: cfg.Web.AdminKey,
		Logger:   logrusLogger,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logrusLogger.WithFields(logrus.Fields{"code": err.Error()}).Warn("http shutdown failed")
		}
	}()

	logrusLogger.Printf("accessbot listening on %s", cfg.Web.Addr)
	if err := app.Listen(cfg.Web.Addr); err != nil {
		logrusLogger.Fatalf("http server: %v", err)
	}
}
