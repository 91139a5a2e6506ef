package navigationservice

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"live-nav/internal/general/cache"
	"live-nav/internal/general/config"
	"live-nav/internal/general/graphhopper"
	"live-nav/internal/general/jwt"
	"live-nav/internal/general/logger"
	"live-nav/internal/general/postgres"
	"live-nav/internal/general/rabbitmq"
	"live-nav/internal/general/websocket"
	"live-nav/internal/software/navigation/handler"
	"live-nav/internal/software/navigation/service"
)

func Run(ctx context.Context, prefetch, maxConcurrent int) error {
	// set up a new logger for the navigation service with a static request ID for startup logs
	logger := logger.New("navigation-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load configuration
	cfg, err := config.LoadFromFile("./config/config.yaml")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// set up the RabbitMQ publisher
	pub := rabbitmq.NewMQPublisher(rmq)

	// connect to Redis for the incident read cache
	rdb, err := cache.NewRedisClient(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
		return err
	}
	defer rdb.Close()

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the necessary repos; incident reads go through the Redis cache
	uow := postgres.NewUnitOfWork(pool)
	userRepo := postgres.NewUserRepo()
	routeRepo := postgres.NewRouteRepo()
	incidentCache := cache.NewIncidentCache(postgres.NewIncidentRepo(), rdb, cfg.IncidentCacheTTL(), logger)

	// set up the routing engine client
	engine := graphhopper.NewClient(cfg.GraphHopper.BaseURL, cfg.GraphHopper.APIKey, cfg.RouteTimeout())

	// set up the live-session registry and the navigation service
	registry := websocket.NewRegistry()
	svc := service.NewNavigationService(logger, uow, incidentCache, engine, pub, incidentCache, cfg.GraphHopper.Locale)

	// set up the websocket handler with its admission authorizer
	auth := websocket.NewAuthorizer(jwtManager, uow, userRepo, routeRepo)
	ws := websocket.NewWebSocket(logger, auth, svc, registry)

	// start the background consumer that fans incident reports out to sessions
	go func() {
		if err := svc.StartIncidentAlerts(ctx, rmq, registry, prefetch); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "incident_consumer_stopped", "Incident alert consumer terminated", err, nil)
		}
	}()

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewHandler(ws, handler.NewHealthHandler(registry))
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebSocket.Port),             // listen on the specified port
		Handler:           limitedHandler,                                     // apply the concurrency limiter to HTTP handler
		ReadHeaderTimeout: 5 * time.Second,                                    // time to read headers
		IdleTimeout:       60 * time.Second,                                   // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx }, // pass base ctx to all handlers
	}

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Navigation Service started on port %d", cfg.WebSocket.Port),
		map[string]any{"port": cfg.WebSocket.Port, "max_concurrent": maxConcurrent, "prefetch": prefetch},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.WebSocket.Port})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
