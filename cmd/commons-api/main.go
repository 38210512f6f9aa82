package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/commons/backend/internal/community"
	"github.com/MarcoPoloResearchLab/commons/backend/internal/config"
	"github.com/MarcoPoloResearchLab/commons/backend/internal/database"
	"github.com/MarcoPoloResearchLab/commons/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/commons/backend/internal/mpesa"
	"github.com/MarcoPoloResearchLab/commons/backend/internal/server"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "commons-api",
		Short: "Community management backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-url", defaults.GetString("database.url"), "SQLite path or PostgreSQL DSN")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("mpesa-env", defaults.GetString("mpesa.env"), "M-Pesa environment (sandbox, production)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.url", "database-url")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "mpesa.env", "mpesa-env")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	// a missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.Open(appConfig.DatabaseURL, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	deps, err := buildDependencies(db, logger)
	if err != nil {
		return err
	}

	paymentClient := mpesa.NewClient(mpesa.Config{
		Environment:    appConfig.Mpesa.Environment,
		ConsumerKey:    appConfig.Mpesa.ConsumerKey,
		ConsumerSecret: appConfig.Mpesa.ConsumerSecret,
		ShortCode:      appConfig.Mpesa.Shortcode,
		PassKey:        appConfig.Mpesa.Passkey,
		BaseURL:        appConfig.Mpesa.BaseURL,
	})
	deps.Payments = paymentClient
	if !paymentClient.Configured() {
		logger.Warn("mpesa credentials missing; payment route disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = registry

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildDependencies(db *gorm.DB, logger *zap.Logger) (server.Dependencies, error) {
	cfg := community.ServiceConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	}

	var (
		deps server.Dependencies
		err  error
	)
	deps.Logger = logger
	if deps.Users, err = community.NewUserService(cfg); err != nil {
		return server.Dependencies{}, err
	}
	if deps.Estates, err = community.NewEstateService(cfg); err != nil {
		return server.Dependencies{}, err
	}
	if deps.Events, err = community.NewEventService(cfg); err != nil {
		return server.Dependencies{}, err
	}
	if deps.Posts, err = community.NewPostService(cfg); err != nil {
		return server.Dependencies{}, err
	}
	if deps.Comments, err = community.NewCommentService(cfg); err != nil {
		return server.Dependencies{}, err
	}
	if deps.Projects, err = community.NewProjectService(cfg); err != nil {
		return server.Dependencies{}, err
	}
	return deps, nil
}
