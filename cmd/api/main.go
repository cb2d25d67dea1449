package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/youmiiii1/go-shop/internal/auth"
	"github.com/youmiiii1/go-shop/internal/cart"
	"github.com/youmiiii1/go-shop/internal/catalog"
	"github.com/youmiiii1/go-shop/internal/checkout"
	"github.com/youmiiii1/go-shop/internal/messaging"
	"github.com/youmiiii1/go-shop/internal/orders"
	"github.com/youmiiii1/go-shop/internal/reviews"
	"github.com/youmiiii1/go-shop/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var producer *messaging.Producer
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		producer = messaging.NewProducer(brokers, "review.changed")
		defer func() { _ = producer.Close() }()
	}

	catalogRepo := catalog.NewCatalogRepository(db)
	cartRepo := cart.NewCartRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	reviewRepo := reviews.NewReviewRepository(db)

	engine, err := checkout.NewEngine(db, orderRepo, logger)
	if err != nil {
		logger.Error("failed to create checkout engine", "error", err)
		os.Exit(1)
	}

	catalogHandler := catalog.NewHandler(catalogRepo, logger)
	cartHandler := cart.NewHandler(cartRepo, logger)
	orderHandler := orders.NewHandler(orderRepo, logger)
	checkoutHandler := checkout.NewHandler(engine, logger)

	var publisher reviews.Publisher
	if producer != nil {
		publisher = producer
	}
	reviewHandler := reviews.NewHandler(reviewRepo, publisher, logger)

	authn := auth.NewAuthenticator([]byte(jwtSecret), logger)

	mux := http.NewServeMux()

	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}

	route("GET /categories", catalogHandler.HandleListCategories)
	route("POST /categories", catalogHandler.HandleCreateCategory)
	route("PUT /categories/{id}", catalogHandler.HandleUpdateCategory)
	route("DELETE /categories/{id}", catalogHandler.HandleDeleteCategory)

	route("GET /products", catalogHandler.HandleListProducts)
	route("GET /products/category/{categoryId}", catalogHandler.HandleListProductsByCategory)
	route("GET /products/{id}", catalogHandler.HandleGetProduct)
	route("GET /products/{id}/reviews", reviewHandler.HandleListByProduct)
	route("POST /products", authn.Require(auth.RoleSeller, catalogHandler.HandleCreateProduct))
	route("PUT /products/{id}", authn.Require(auth.RoleSeller, catalogHandler.HandleUpdateProduct))
	route("DELETE /products/{id}", authn.Require(auth.RoleSeller, catalogHandler.HandleDeleteProduct))

	route("GET /cart", authn.Require(auth.RoleBuyer, cartHandler.HandleGet))
	route("POST /cart/items", authn.Require(auth.RoleBuyer, cartHandler.HandleAddItem))
	route("PUT /cart/items/{productId}", authn.Require(auth.RoleBuyer, cartHandler.HandleUpdateItem))
	route("DELETE /cart/items/{productId}", authn.Require(auth.RoleBuyer, cartHandler.HandleRemoveItem))
	route("DELETE /cart", authn.Require(auth.RoleBuyer, cartHandler.HandleClear))

	route("POST /orders/checkout", authn.Require(auth.RoleBuyer, checkoutHandler.HandleCheckout))
	route("GET /orders", authn.Require(auth.RoleBuyer, orderHandler.HandleList))
	route("GET /orders/{id}", authn.Require(auth.RoleBuyer, orderHandler.HandleGet))

	route("GET /reviews", reviewHandler.HandleList)
	route("POST /reviews", authn.Require(auth.RoleBuyer, reviewHandler.HandleCreate))
	route("DELETE /reviews/{id}", authn.Require(auth.RoleBuyer, reviewHandler.HandleDelete))

	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
