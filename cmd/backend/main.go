package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"recipe-blog/backend/internal/account"
	"recipe-blog/backend/internal/config"
	"recipe-blog/backend/internal/httpapi"
	"recipe-blog/backend/internal/logger"
	"recipe-blog/backend/internal/mail"
	"recipe-blog/backend/internal/otp"
	"recipe-blog/backend/internal/store"
	"recipe-blog/backend/internal/store/memory"
	"recipe-blog/backend/internal/store/postgres"
	"recipe-blog/backend/internal/token"
	"recipe-blog/backend/internal/upload"
	"recipe-blog/backend/internal/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Env)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	var st store.Store
	var closer func()

	if cfg.DatabaseURL != "" {
		pg, err := postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to init postgres store", "error", err)
			os.Exit(1)
		}
		if err := pg.Migrate(rootCtx); err != nil {
			pg.Close()
			log.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		st = pg
		closer = pg.Close
		log.Info("using postgres store")
	} else {
		st = memory.NewStore()
		log.Warn("DATABASE_URL not set, using memory store")
	}

	if closer != nil {
		defer closer()
	}

	mailer, err := newMailer(cfg, log)
	if err != nil {
		log.Error("failed to init mail sender", "error", err)
		os.Exit(1)
	}
	uploader, err := newUploader(rootCtx, cfg)
	if err != nil {
		log.Error("failed to init uploader", "error", err)
		os.Exit(1)
	}

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	tokens, err := token.NewManager(cfg.JWTSecret, cfg.TokenTTL(), cfg.JWTIssuer)
	if err != nil {
		log.Error("failed to init token manager", "error", err)
		os.Exit(1)
	}

	issuer := otp.NewIssuer(st, mailer, log, otp.Options{
		TTL:    cfg.OTPTTL(),
		Length: cfg.OTPLength,
	})
	svc, err := account.NewService(st, issuer, tokens, uploader, validator.New(), log, account.Config{
		PasswordMinLength: cfg.PasswordMinLength,
		BcryptCost:        cfg.BcryptCost,
		MaxOTPAttempts:    cfg.OTPMaxAttempts,
		MaxAvatarBytes:    cfg.UploadMaxBytes,
	})
	if err != nil {
		log.Error("failed to init account service", "error", err)
		os.Exit(1)
	}

	go runOTPPurgeLoop(rootCtx, log, st, cfg.OTPPurgeInterval())

	srv := httpapi.NewServer(cfg, svc, tokens, log)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("backend listening", "addr", cfg.ListenAddr(), "env", cfg.Env)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}

	cancelRoot()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}

func newMailer(cfg config.Config, log *slog.Logger) (mail.Sender, error) {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, verification codes are written to the log")
		return mail.NewLogSender(log), nil
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

func newUploader(ctx context.Context, cfg config.Config) (upload.Uploader, error) {
	switch cfg.UploadDriver {
	case "s3":
		publicBase := ""
		if strings.HasPrefix(cfg.UploadPublicBaseURL, "http") {
			publicBase = cfg.UploadPublicBaseURL
		}
		return upload.NewS3Uploader(ctx, upload.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: publicBase,
		})
	case "local", "":
		return upload.NewLocalUploader(cfg.UploadLocalDir, cfg.UploadPublicBaseURL)
	default:
		return nil, errors.New("unknown UPLOAD_DRIVER " + cfg.UploadDriver)
	}
}

// runOTPPurgeLoop drops expired codes. Verification checks expiry on its own,
// this only keeps the table small.
func runOTPPurgeLoop(ctx context.Context, log *slog.Logger, st store.Store, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	runOnce := func() {
		ctxPurge, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		n, err := st.PurgeExpiredOTPs(ctxPurge, time.Now().UTC())
		if err != nil {
			log.Error("otp purge failed", "error", err)
			return
		}
		if n > 0 {
			log.Info("purged expired otp codes", "count", n)
		}
	}

	runOnce()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runOnce()
		}
	}
}
