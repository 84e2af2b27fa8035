package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tatarskisamurai/pwa-chat/internal/auth"
	"github.com/tatarskisamurai/pwa-chat/internal/chat"
	"github.com/tatarskisamurai/pwa-chat/internal/config"
	"github.com/tatarskisamurai/pwa-chat/internal/events"
	"github.com/tatarskisamurai/pwa-chat/internal/handlers"
	"github.com/tatarskisamurai/pwa-chat/internal/hub"
	"github.com/tatarskisamurai/pwa-chat/internal/logger"
	"github.com/tatarskisamurai/pwa-chat/internal/models"
	"github.com/tatarskisamurai/pwa-chat/internal/presence"
	"github.com/tatarskisamurai/pwa-chat/internal/repository"
	"github.com/tatarskisamurai/pwa-chat/internal/server"
	"github.com/tatarskisamurai/pwa-chat/internal/ws"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	dev := cfg.App.Env == "development"

	zlog, err := logger.New(dev, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := openDB(cfg.DB.DSN, dev)
	if err != nil {
		zlog.Fatalf("database: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		zlog.Fatalf("migrate: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()
	}
	pres := presence.NewStore(redisClient, cfg.Redis.Prefix)

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() { _ = publisher.Close() }()

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	jwtMgr := auth.NewJWTManager(cfg.JWT.Secret, cfg.TokenTTL)
	membership := chat.NewMembershipService(chatRepo)
	h := hub.New(zlog)
	coord := chat.NewCoordinator(membership, msgRepo, h, publisher, zlog)

	dispatcher := ws.NewDispatcher(h, coord, userRepo, jwtMgr, pres, ws.Config{
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
		SendBuffer:     cfg.WS.SendBufferSize,
	}, zlog)

	app := server.New(server.Deps{
		JWT:        jwtMgr,
		Users:      userRepo,
		Auth:       handlers.NewAuthHandler(userRepo, jwtMgr),
		UserH:      handlers.NewUserHandler(userRepo, pres),
		Chats:      handlers.NewChatHandler(chatRepo, membership),
		Messages:   handlers.NewMessageHandler(msgRepo, membership, coord),
		Upload:     handlers.NewUploadHandler(cfg.Upload.Dir, cfg.Upload.MaxFiles),
		Dispatcher: dispatcher,
		UploadDir:  cfg.Upload.Dir,
	})

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		zlog.Infof("starting chat server on %s", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		zlog.Fatalf("server error: %v", err)
	case s := <-sig:
		zlog.Infof("signal received: %v", s)
	}

	if err := app.Shutdown(); err != nil {
		zlog.Errorf("shutdown: %v", err)
	}
	zlog.Info("shut down")
}

// openDB waits for the database: in docker the network can come up a
// little after the app process.
func openDB(dsn string, dev bool) (*gorm.DB, error) {
	lvl := gormlogger.Warn
	if dev {
		lvl = gormlogger.Info
	}
	gcfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(lvl),
		TranslateError: true,
	}

	const attempts = 10
	var db *gorm.DB
	var err error
	for i := 1; i <= attempts; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			return db, nil
		}
		if i < attempts {
			log.Printf("database not ready (attempt %d/%d): %v", i, attempts, err)
			time.Sleep(2 * time.Second)
		}
	}
	return nil, err
}
