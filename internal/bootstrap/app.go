package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chatmypdf/internal/ai"
	"chatmypdf/internal/app"
	"chatmypdf/internal/blob"
	"chatmypdf/internal/cache"
	"chatmypdf/internal/config"
	"chatmypdf/internal/pkg/logger"
	mysqlClient "chatmypdf/internal/platform/mysql"
	rabbitmqClient "chatmypdf/internal/platform/rabbitmq"
	redisClient "chatmypdf/internal/platform/redis"
	"chatmypdf/internal/repository"
	"chatmypdf/internal/worker"
)

type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Publisher     *rabbitmqClient.MessagePublisher
	MessageWorker *worker.MessagePersistWorker

	Workspaces *app.WorkspaceManager
	Auth       *app.AuthService
	Payments   *app.PaymentService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(logger.Options{
		FilePath:   cfg.Log.File,
		Level:      cfg.Log.Level,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	if err := a.connect(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), !cfg.IsProduction())
	if err != nil {
		return err
	}
	a.MySQL = mysqlDB
	if err := mysqlClient.Migrate(mysqlDB); err != nil {
		return err
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	a.Redis = redisCli

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MessagePersistQueue)
	if err != nil {
		return err
	}
	a.MQConn = mqConn
	a.Publisher = rabbitmqClient.NewMessagePublisher(mqConn, cfg.RabbitMQ.MessagePersistQueue)

	a.Logger.Info("infrastructure connected",
		zap.String("mysql", fmt.Sprintf("%s:%d", cfg.MySQL.Host, cfg.MySQL.Port)),
		zap.String("redis", cfg.Redis.Addr),
	)
	return nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	ids := app.UUIDGenerator{}
	clock := app.RealClock{}

	userRepo := repository.NewUserRepository(a.MySQL)
	documentRepo := repository.NewDocumentRepository(a.MySQL)
	sessionRepo := repository.NewChatSessionRepository(a.MySQL)
	messageRepo := repository.NewMessageRepository(a.MySQL)
	orderRepo := repository.NewCreditOrderRepository(a.MySQL)

	historyCache := cache.NewHistoryCache(
		a.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	var records app.UserRecordStore
	switch cfg.Identity.RecordStore {
	case "memory":
		records = cache.NewMemoryUserRecords(cfg.TokenTTL())
	default:
		records = cache.NewRedisUserRecords(a.Redis, cfg.TokenTTL())
	}

	var backend app.IdentityBackend
	switch cfg.Identity.Mode {
	case "database":
		backend = app.NewAccountBackend(userRepo, ids, cfg.Identity.StartingCredits)
	default:
		backend = app.NewMockAccounts(ids, clock, cfg.Identity.StartingCredits)
	}

	blobs, err := blob.NewFromConfig(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("init blob store failed: %w", err)
	}

	responder, err := newResponder(cfg)
	if err != nil {
		return err
	}

	a.MessageWorker = worker.NewMessagePersistWorker(a.MQConn, messageRepo, historyCache, cfg.RabbitMQ.MessagePersistQueue, a.Logger)
	if err := a.MessageWorker.Start(ctx); err != nil {
		return fmt.Errorf("start message worker failed: %w", err)
	}

	a.Workspaces = app.NewWorkspaceManager(app.WorkspaceDeps{
		Backend:    backend,
		Records:    records,
		Documents:  documentRepo,
		Blobs:      blobs,
		Sessions:   sessionRepo,
		Recorder:   app.NewQueueRecorder(a.Publisher, historyCache, a.Logger),
		History:    app.NewCachedHistory(messageRepo, historyCache, cfg.Chat.MaxHistory),
		Responder:  responder,
		Clock:      clock,
		IDs:        ids,
		ReplyDelay: cfg.ReplyDelay(),
		Logger:     a.Logger,
	}, cfg.TokenTTL())

	a.Auth = app.NewAuthService(a.Workspaces, ids, cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.TokenTTL())

	var gateway app.CheckoutGateway = app.StaticLinkGateway{}
	if cfg.Payment.MidtransServerKey != "" {
		gateway = app.NewMidtransGateway(cfg.Payment.MidtransServerKey, cfg.Payment.MidtransProduction, cfg.Payment.FinishURL)
	}
	a.Payments = app.NewPaymentService(app.PaymentOptions{
		Orders:     orderRepo,
		Gateway:    gateway,
		Backend:    backend,
		Workspaces: a.Workspaces,
		ServerKey:  cfg.Payment.MidtransServerKey,
		Packs:      app.DefaultCreditPacks(cfg.Payment.MiniLink, cfg.Payment.StandardLink, cfg.Payment.ProLink),
		IDs:        ids,
		Logger:     a.Logger,
	})

	a.Logger.Info("services wired",
		zap.String("identity_mode", cfg.Identity.Mode),
		zap.String("record_store", cfg.Identity.RecordStore),
		zap.String("responder", cfg.Chat.Responder),
		zap.String("blob_driver", cfg.Blob.Driver),
	)
	return nil
}

func newResponder(cfg *config.Config) (ai.Responder, error) {
	if cfg.Chat.Responder == "llm" {
		responder, err := ai.NewLLMResponder(nil, ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		}, cfg.Chat.MaxHistory)
		if err != nil {
			return nil, fmt.Errorf("init llm responder failed: %w", err)
		}
		return responder, nil
	}
	return ai.NewCannedResponder(nil), nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Workspaces != nil {
		a.Workspaces.Close()
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
