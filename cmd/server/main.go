package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/dispatcher"
	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/application/service"
	appwf "github.com/dkrause/garnishflow/internal/application/workflow"
	"github.com/dkrause/garnishflow/internal/config"
	"github.com/dkrause/garnishflow/internal/infrastructure/external/bankcore"
	"github.com/dkrause/garnishflow/internal/infrastructure/external/fake"
	"github.com/dkrause/garnishflow/internal/infrastructure/external/notify"
	"github.com/dkrause/garnishflow/internal/infrastructure/external/openai"
	"github.com/dkrause/garnishflow/internal/infrastructure/external/records"
	"github.com/dkrause/garnishflow/internal/infrastructure/external/ticket"
	"github.com/dkrause/garnishflow/internal/infrastructure/persistence/repository"
	"github.com/dkrause/garnishflow/internal/infrastructure/persistence/sqlite"
	"github.com/dkrause/garnishflow/internal/infrastructure/storage"
	"github.com/dkrause/garnishflow/internal/infrastructure/worker"
	httpapi "github.com/dkrause/garnishflow/internal/interfaces/http"
	"github.com/dkrause/garnishflow/internal/report"
	"github.com/dkrause/garnishflow/pkg/database"
	"github.com/dkrause/garnishflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Local development convenience; production sets real env vars.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting garnishment workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port),
		zap.String("collaborators", cfg.Collaborators.Mode))

	// Database and migrations.
	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer sqlDB.Close()

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	db := sqlite.NewDB(sqlDB, logger)

	// Repositories.
	cases := repository.NewCaseRepository(sqlDB, logger)
	timeline := repository.NewTimelineRepository(sqlDB, logger)
	documents := repository.NewDocumentRepository(sqlDB, logger)
	notifications := repository.NewNotificationRepository(sqlDB, logger)
	customers := repository.NewCustomerRepository(sqlDB, logger)

	files, err := storage.NewLocalFileStorage(cfg.Storage.BaseDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	reporter, err := report.NewSettlementReporter(cfg.Report.OutputDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize settlement reporter", zap.Error(err))
	}

	// Collaborators. Verification always runs against the local customer
	// system of record; the remaining collaborators have networked and fake
	// variants.
	verifier := records.NewVerifier(customers, logger)

	var (
		extraction port.ExtractionService
		accounts   port.AccountService
		payments   port.PaymentService
		tickets    port.TicketSystem
		sender     port.NotificationSender
	)
	if cfg.Collaborators.Mode == "fake" {
		extraction = &fake.Extractor{}
		accounts = fake.NewAccounts()
		payments = &fake.Payments{}
		tickets = fake.NewTickets()
		sender = &fake.Sender{}
	} else {
		extraction = openai.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
		bank := bankcore.NewClient(cfg.BankCore.BaseURL, cfg.BankCore.APIKey, cfg.BankCore.Timeout, logger)
		accounts = bank
		payments = bank
		tickets = ticket.NewClient(cfg.Ticket.BaseURL, cfg.Ticket.APIKey, cfg.Ticket.Timeout, logger)
		sender = notify.NewWebhookSender(
			cfg.Notifications.CreditorWebhookURL,
			cfg.Notifications.CustomerWebhookURL,
			cfg.Notifications.SendTimeout,
			logger,
		)
	}

	notifier := dispatcher.NewDispatcher(notifications, sender, logger,
		dispatcher.WithMaxDeliveryAttempts(cfg.Notifications.MaxAttempts),
		dispatcher.WithSendTimeout(cfg.Notifications.SendTimeout),
	)

	engine := appwf.NewEngine(
		cases,
		timeline,
		documents,
		files,
		db,
		appwf.Collaborators{
			Extraction:   extraction,
			Verification: verifier,
			Accounts:     accounts,
			Payments:     payments,
			Tickets:      tickets,
		},
		notifier,
		logger,
		appwf.WithThresholds(appwf.Thresholds{
			ExtractionConfidence: cfg.Workflow.ExtractionThreshold,
			VerificationMatch:    cfg.Workflow.VerificationThreshold,
		}),
		appwf.WithRetryPolicy(appwf.RetryPolicy{
			MaxAttempts:     cfg.Workflow.RetryMaxAttempts,
			InitialInterval: cfg.Workflow.RetryInitialDelay,
			Multiplier:      2.0,
			MaxInterval:     cfg.Workflow.RetryMaxDelay,
			UseJitter:       true,
		}),
		appwf.WithReporter(reporter),
	)

	// Background workers.
	caseWorker := worker.NewCaseWorker(engine, cfg.Workflow.EventQueueSize, logger)
	notifyWorker := worker.NewNotifyWorker(notifier,
		cfg.Notifications.DeliveryInterval, cfg.Notifications.BatchSize, logger)

	manager := worker.NewManager(logger)
	manager.Register(caseWorker)
	manager.Register(notifyWorker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	caseService := service.NewCaseService(cases, timeline, files, tickets, engine, caseWorker, logger)

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, caseService, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	cancel()
	if err := manager.StopAll(); err != nil {
		logger.Error("Worker shutdown error", zap.Error(err))
	}
	if err := server.Stop(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server exited")
}
