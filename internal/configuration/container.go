package configuration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/db"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/handler"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/hub"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/model"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/repo"
	"github.com/randunun-eng/WorkBench-Inventory-System-sub001/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Container struct {
	ChatHandler    handler.ChatHandler
	MonitorHandler handler.MonitorHandler
	SocketHandler  *handler.SocketHandler
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
	redisClient *redis.Client
	pgPool      *pgxpool.Pool
}

func BuildContainer() (*Container, error) {
	config, err := Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := NewLogger(config.Logging)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: *config, Logger: logger}

	messageRepo, roomRepo, err := c.openStores()
	if err != nil {
		c.Close()
		return nil, err
	}

	shops, err := c.openShopDirectory()
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Hub = hub.NewHub(messageRepo, roomRepo, hub.Options{
		HistoryLimit:    config.Chat.HistoryLimit,
		Retention:       config.Chat.Retention(),
		RoomIdleTimeout: config.Chat.RoomIdle(),
		InboxSize:       config.Chat.InboxSize,
		SendBufSize:     config.Chat.SendBuffer,
		StoreTimeout:    config.Chat.StoreTimeout(),
		AllowedOrigins:  config.Server.AllowedOrigins,
		Timing:          hub.Timing{PongWait: config.Chat.PongWait()},
	}, logger)

	var auth *service.Authenticator
	if config.Auth.JWTSecret != "" {
		auth = service.NewAuthenticator(config.Auth.JWTSecret, config.Auth.Issuer)
	} else {
		logger.Warn("auth.jwt_secret is empty - socket connections are not authenticated")
	}

	chatService := service.NewChatService(messageRepo, roomRepo, shops)
	c.ChatHandler = handler.NewChatHandler(chatService, logger)
	c.MonitorHandler = handler.NewMonitorHandler(hub.NewMonitorService(c.Hub))
	c.SocketHandler = handler.NewSocketHandler(c.Hub, auth, logger)

	logger.Info("container ready",
		zap.String("store", config.Store.Driver),
		zap.Int("app_port", config.Server.AppPort),
		zap.Int("socket_port", config.Server.SocketPort))
	return c, nil
}

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func (c *Container) openStores() (repo.MessageRepository, repo.RoomRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch c.Config.Store.Driver {
	case "redis":
		client, err := db.OpenRedis(ctx, c.Config.Redis.Url)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redisClient = client
		store := repo.NewRedisStore(client, c.Config.Redis.TTL(), c.Logger)
		return store, store, nil

	case "memory":
		c.Logger.Warn("using in-memory message store - history is lost on restart")
		store := repo.NewMemoryStore()
		return store, store, nil
	}

	con, err := db.OpenConnection(c.Config.Mongo.Uri, c.Config.Mongo.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	c.mongoClient = con

	messages := db.NewRepository[model.Message](con, c.Config.Mongo.MessagesCollection)
	if err := repo.EnsureMessageIndexes(ctx, messages); err != nil {
		return nil, nil, fmt.Errorf("failed to create message indexes: %w", err)
	}
	rooms := db.NewRepository[model.RoomSummary](con, c.Config.Mongo.RoomsCollection)
	if err := repo.EnsureRoomIndexes(ctx, rooms); err != nil {
		return nil, nil, fmt.Errorf("failed to create room indexes: %w", err)
	}

	return repo.NewMessageRepository(messages, c.Logger), repo.NewRoomRepository(rooms, c.Logger), nil
}

func (c *Container) openShopDirectory() (repo.ShopDirectory, error) {
	if c.Config.Postgres.Url == "" {
		c.Logger.Warn("postgres.url is empty - shop lookups will find nothing")
		return repo.NewStaticShopDirectory(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, c.Config.Postgres.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	c.pgPool = pool
	return repo.NewShopRepository(pool, c.Logger), nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.pgPool != nil {
		c.pgPool.Close()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return nil
}
