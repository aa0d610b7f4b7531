// @title           Exam Generation API
// @version         1.0
// @description     Asynchronous exam generation over an indexed archive of official exams
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/ExamAPI/internal/app"
	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/data/store"
	jobmodel "github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/akolanti/ExamAPI/internal/handlers"
	"github.com/akolanti/ExamAPI/internal/job"
	"github.com/akolanti/ExamAPI/internal/middleware"
	"github.com/akolanti/ExamAPI/internal/server"
	"github.com/akolanti/ExamAPI/internal/worker"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

var (
	configPath        string
	listenAddr        string
	indexOnStart      bool
	watchExams        bool
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&configPath, "config", "", "path to a yaml config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides config)")
	flag.BoolVar(&indexOnStart, "index", true, "run the indexing pipeline over the exams directory at startup")
	flag.BoolVar(&watchExams, "watch", false, "re-index when files change under the exams directory")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		println("config:", err.Error())
		os.Exit(1)
	}
	logger_i.Init(cfg.Log)
	var logger = logger_i.NewLogger("main")

	if err := cfg.ValidateServer(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	jobStore, messageStore, err := job.SelectStores(
		store.GetRedisJobStore(serviceContext, cfg.Redis),
		store.GetRedisMessageStore(serviceContext, cfg.Redis, cfg.Chat.HistoryLength),
		cfg.Redis, cfg.Chat.HistoryLength)
	if err != nil {
		logger.Error("Job stores unavailable", "error", err)
		return
	}
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
		MessageStore:      messageStore,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	application, err := app.Build(serviceContext, cfg)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}

	if indexOnStart {
		go func() {
			stats, err := application.Pipeline.Run(serviceContext).Wait(serviceContext)
			if err != nil {
				logger.Error("Startup indexing failed", "error", err)
				return
			}
			logger.Info("Startup indexing finished", "parsed", stats.Parsed, "chunked", stats.Chunked, "embedded", stats.Embedded)
		}()
	}

	if watchExams {
		go func() {
			if err := application.Pipeline.Watch(serviceContext, config.WatchDebounce, application.Builder); err != nil {
				logger.Error("Exams watcher stopped", "error", err)
			}
		}()
	}

	handlers.InitJobHandler(service, application.RAG, cfg.ExamsPath)
	middleware.Init(cfg.API)

	//init worker pool
	worker.InitServices(service, application.RAG)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(cfg.Server.ListenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
