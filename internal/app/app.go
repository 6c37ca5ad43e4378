package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/garageboard/garageboard/internal/data/db"
	"github.com/garageboard/garageboard/internal/handlers"
	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/realtime/bus"
	"github.com/garageboard/garageboard/internal/repos"
	"github.com/garageboard/garageboard/internal/server"
	"github.com/garageboard/garageboard/internal/session"
	"github.com/garageboard/garageboard/internal/workflow"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Bus      bus.Bus
	Sessions *session.Manager
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	var changeBus bus.Bus
	if cfg.RedisAddr != "" {
		changeBus, err = bus.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannelPrefix)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis change bus: %w", err)
		}
	} else {
		log.Info("REDIS_ADDR not set, using in-memory change bus")
		changeBus = bus.NewMemoryBus(log)
	}

	model, err := workflow.LoadModel(cfg.WorkflowConfigPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load workflow model: %w", err)
	}

	jobCardRepo := repos.NewJobCardRepo(theDB, changeBus, log)
	employeeRepo := repos.NewEmployeeRepo(theDB, log)

	sessions := session.NewManager(jobCardRepo, employeeRepo, model, session.Config{
		DefaultMechanicCapacity: cfg.DefaultMechanicCapacity,
		DueSoonHorizon:          cfg.DueSoonHorizon,
		BottleneckThreshold:     cfg.BottleneckThreshold,
	}, log)

	router := server.NewRouter(server.RouterConfig{
		BoardHandler:  handlers.NewBoardHandler(log, sessions),
		StreamHandler: handlers.NewStreamHandler(log, changeBus),
	})

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Bus:      changeBus,
		Sessions: sessions,
	}, nil
}

func (a *App) Close() {
	a.Sessions.Close()
	_ = a.Bus.Close()
	a.Log.Sync()
}
