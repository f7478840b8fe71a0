package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	specRoute = "/swagger"
	specFile  = "travelbooking.swagger.json"
)

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	log        logrus.FieldLogger
}

// Run starts the HTTP API and the gRPC health server and blocks until ctx is
// cancelled or a server fails.
func Run(ctx context.Context, cfg *config.Config, router *gin.Engine, log logrus.FieldLogger) error {
	s := newServers(cfg, router, log)

	errCh := make(chan error, 2)

	if s.grpcServer != nil {
		lis, err := net.Listen("tcp", cfg.GRPC.Address)
		if err != nil {
			return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
		}
		log.WithField("address", cfg.GRPC.Address).Info("grpc health server listening")
		go func() { errCh <- s.grpcServer.Serve(lis) }()
	}

	log.WithField("address", cfg.HTTP.Address).Info("http server listening")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stop(context.Background())
		return err
	case <-ctx.Done():
		log.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.stop(shutdownCtx)
	}
}

func newServers(cfg *config.Config, router *gin.Engine, log logrus.FieldLogger) *Servers {
	s := &Servers{log: log}

	if cfg.GRPC.Address != "" {
		s.health = health.NewServer()
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		s.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
		reflection.Register(s.grpcServer)
	}

	if cfg.HTTP.SwaggerDir != "" {
		mountDocs(router, cfg.HTTP.SwaggerDir)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSeconds) * time.Second,
	}
	return s
}

// mountDocs serves the OpenAPI document under /swagger and the UI under /docs.
func mountDocs(router *gin.Engine, dir string) {
	router.Static(specRoute, dir)
	ui := httpSwagger.Handler(httpSwagger.URL(specRoute + "/" + specFile))
	router.GET("/docs/*any", gin.WrapH(ui))
}

func (s *Servers) stop(ctx context.Context) error {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.stopGRPC(ctx)
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// stopGRPC drains in-flight RPCs until ctx expires, then closes every
// connection. Open health watch streams would otherwise block forever.
func (s *Servers) stopGRPC(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.log.Warn("grpc graceful stop timed out, closing connections")
		s.grpcServer.Stop()
		<-stopped
	}
}
