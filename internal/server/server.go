package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/emrgen/panorama/internal/config"
	"github.com/emrgen/panorama/internal/jobs"
	"github.com/emrgen/panorama/internal/metrics"
	"github.com/emrgen/panorama/internal/service"
	"github.com/emrgen/panorama/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Server represents the server
type Server struct {
	cfg *config.Config
}

// NewServer creates a new server
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Start starts the server and blocks until it is interrupted.
func (s *Server) Start() {
	if err := Start(s.cfg); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// NewRouter builds the gin engine serving the API under /v1 and the metrics.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(), RequestTime())
	router.MaxMultipartMemory = 32 << 20

	handler.Register(router.Group("/v1"))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}

// Start wires the stores, the services and the background jobs, then serves
// HTTP on the configured port until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx := context.Background()
	config.SetupLogging(cfg)

	httpPort := ":" + cfg.HTTPPort

	records := store.NewGormStore(config.GetDb(cfg))
	if err := records.Migrate(); err != nil {
		return err
	}

	blobs, err := config.NewBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	photoCache, err := config.NewCache(ctx, cfg)
	if err != nil {
		return err
	}

	projects := service.NewProjectService(records, blobs, photoCache)
	photos := service.NewPanophotoService(records, blobs, photoCache, projects)

	executor := jobs.NewTaskExecutor(
		[]jobs.Job{jobs.NewCacheSyncTask(photoCache, projects, photos)},
		[]jobs.CronJob{jobs.NewLinkRepairTask(cfg.LinkRepairSchedule, projects, photos)},
	)
	if err := executor.Run(); err != nil {
		return err
	}
	defer executor.Stop()

	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // All origins are allowed
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	restServer := &http.Server{
		Addr:              httpPort,
		Handler:           c.Handler(NewRouter(NewHandler(projects, photos))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting http server on: ", httpPort)
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting http server: %v", err)
			}
		}
		logrus.Infof("http server stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error stopping http server: %v", err)
	}

	wg.Wait()

	return nil
}
