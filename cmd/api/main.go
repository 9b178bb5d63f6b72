package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ceebrain-identity/internal/config"
	"ceebrain-identity/internal/db"
	"ceebrain-identity/internal/email"
	apihttp "ceebrain-identity/internal/http"
	"ceebrain-identity/internal/metrics"
	"ceebrain-identity/internal/repository"
	"ceebrain-identity/internal/service"
	"ceebrain-identity/internal/sms"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	users  repository.UserRepository
	otps   repository.OTPRepository
	admins repository.AdminRepository
	// sweepOTPs indica que el almacenamiento no expira OTPs por si mismo.
	sweepOTPs bool
	close     func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer st.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var smsSender sms.Sender = sms.NewLogSender(logger)
	if cfg.SMSEnabled() {
		sender, err := sms.NewMSG91Sender(cfg.MSG91AuthKey, cfg.MSG91FlowID, cfg.MSG91BaseURL, logger)
		if err != nil {
			logger.Warn("msg91 sender init failed", zap.Error(err))
		} else {
			smsSender = sender
		}
	} else {
		logger.Warn("sms gateway not configured, otp codes will only be logged")
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		otpLimiter  service.OTPRateLimiter
		tokenStore  service.RefreshTokenStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, cfg.OTPRequestWindow, cfg.OTPRequestMax)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if otpLimiter == nil {
		otpLimiter = service.NewOTPRateLimiter(cfg.OTPRequestWindow, cfg.OTPRequestMax)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	userSvc := service.NewUserService(logger, st.users, service.UserServiceOptions{
		Lockout:    service.LockoutPolicy{MaxAttempts: cfg.LockoutMaxAttempts, Duration: cfg.LockoutDuration},
		BcryptCost: cfg.BcryptCost,
		Metrics:    m,
	})
	otpSvc := service.NewOTPService(logger, st.otps, st.users, smsSender, service.OTPServiceOptions{
		TTL:              cfg.OTPTTL,
		MaxWrongAttempts: cfg.OTPMaxWrongAttempts,
		Limiter:          otpLimiter,
		Metrics:          m,
	})
	adminSvc := service.NewAdminService(logger, st.admins, emailSender, cfg.BcryptCost)

	if _, err := adminSvc.EnsureDefaultAdmin(ctx, service.AdminInput{
		Name:     cfg.DefaultAdminName,
		Email:    cfg.DefaultAdminEmail,
		Number:   cfg.DefaultAdminNumber,
		Password: cfg.DefaultAdminPassword,
	}); err != nil {
		logger.Error("default admin bootstrap failed", zap.Error(err))
	}

	if st.sweepOTPs {
		go service.NewOTPSweeper(logger, st.otps, time.Minute).Run(ctx)
	}

	authenticator := apihttp.NewAuthenticator(logger, jwtSvc, userSvc, adminSvc)
	router := apihttp.NewRouter(logger, apihttp.Handlers{
		Users:   apihttp.NewUserHandler(logger, userSvc, jwtSvc),
		OTP:     apihttp.NewOTPHandler(logger, otpSvc, jwtSvc),
		Admin:   apihttp.NewAdminHandler(logger, adminSvc, userSvc, jwtSvc),
		Tokens:  apihttp.NewTokenHandler(logger, jwtSvc, authenticator),
		Auth:    authenticator,
		Metrics: m.Handler(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("store", cfg.StoreDriver))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// openStores conecta el almacenamiento elegido por STORE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, database, err := db.NewMongo(ctx, cfg)
		if err != nil {
			return stores{}, err
		}
		if err := repository.EnsureMongoIndexes(ctx, database); err != nil {
			_ = db.CloseMongo(client)
			return stores{}, err
		}
		return stores{
			users:  repository.NewMongoUserRepository(database),
			otps:   repository.NewMongoOTPRepository(database),
			admins: repository.NewMongoAdminRepository(database),
			close: func() {
				if err := db.CloseMongo(client); err != nil {
					logger.Warn("mongo disconnect", zap.Error(err))
				}
			},
		}, nil
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return stores{}, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		return stores{
			users:     repository.NewPgUserRepository(pool),
			otps:      repository.NewPgOTPRepository(pool),
			admins:    repository.NewPgAdminRepository(pool),
			sweepOTPs: true,
			close:     pool.Close,
		}, nil
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return stores{
			users:     repository.NewMemoryUserRepository(),
			otps:      repository.NewMemoryOTPRepository(),
			admins:    repository.NewMemoryAdminRepository(),
			sweepOTPs: true,
			close:     func() {},
		}, nil
	}
	return stores{}, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
}
