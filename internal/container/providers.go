package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/dispatcher"
	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/application/service"
	"github.com/imcpnet/intranet-workflow/internal/config"
	"github.com/imcpnet/intranet-workflow/internal/domain/event"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/external/directory"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/external/notify"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/persistence/migrations"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/persistence/repository"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/storage"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/worker"
	"github.com/imcpnet/intranet-workflow/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// WorkflowBundle holds the domain state machine components.
type WorkflowBundle struct {
	Registry *workflow.Registry
	Engine   *workflow.Engine
	Views    *workflow.Views
}

// ProvideDatabase creates the database connection and transaction manager,
// and applies the embedded schema migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.Run(migrations.FS); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          sqlDB,
		TransactionMgr: sqlite.NewDB(sqlDB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Record:        repository.NewRecordRepository(sqlDB, logger),
		TransitionLog: repository.NewTransitionLogRepository(sqlDB, logger),
		Attendance:    repository.NewAttendanceRepository(sqlDB, logger),
		Application:   repository.NewApplicationRepository(sqlDB, logger),
		Notification:  repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideDirectory loads the user directory from the roster file.
func ProvideDirectory(cfg *config.DirectoryConfig, logger *zap.Logger) (port.Directory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("directory config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return directory.NewStaticDirectory(cfg.RosterPath, logger)
}

// ProvideNotifier creates the SMTP notifier.
func ProvideNotifier(cfg *config.SMTPConfig, dir port.Directory, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("smtp config is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return notify.NewSMTPNotifier(cfg.Addr, cfg.From, dir, logger), nil
}

// ProvideStorage creates the file storage for report exports.
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return storage.NewLocalFileStorage(cfg.BaseDir, logger), nil
}

// ProvideWorkflow builds the state machine registry, engine and views.
// Definition validation runs here, so a malformed table fails startup.
func ProvideWorkflow() (*WorkflowBundle, error) {
	registry := workflow.Default()
	return &WorkflowBundle{
		Registry: registry,
		Engine:   workflow.NewEngine(registry),
		Views:    workflow.NewViews(registry),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Engine      *workflow.Engine
	Registry    *workflow.Registry
	Views       *workflow.Views
	Directory   port.Directory
	Notifier    port.Notifier
	FileStorage port.FileStorage
	Dispatcher  dispatcher.Dispatcher
	Logger      *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	notification := service.NewNotificationService(
		deps.Repos.Notification,
		deps.Directory,
		deps.Notifier,
		serviceLogger,
	)

	effects := service.NewEffectApplier(
		deps.Repos.Attendance,
		deps.Repos.Application,
		notification,
		serviceLogger,
	)

	return &ServiceBundle{
		Workflow: service.NewWorkflowService(
			deps.Engine,
			deps.Repos.Record,
			deps.Repos.TransitionLog,
			effects,
			deps.TxManager,
			deps.Dispatcher,
			serviceLogger,
		),
		View: service.NewViewService(
			deps.Views,
			deps.Repos.Record,
			serviceLogger,
		),
		Report: service.NewReportService(
			deps.Registry,
			deps.Views,
			deps.Repos.Record,
			deps.Repos.TransitionLog,
			deps.FileStorage,
			serviceLogger,
		),
		Participation: service.NewParticipationService(
			deps.Repos.Attendance,
			deps.Repos.Application,
			serviceLogger,
		),
		Notification: notification,
	}, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Notification service.NotificationService
	Cfg          *config.NotificationConfig
	Logger       *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Returns *worker.WorkerManager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Notification == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	if deps.Cfg == nil {
		return nil, fmt.Errorf("notification config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	mailCfg := worker.DefaultMailWorkerConfig()
	if deps.Cfg.Interval > 0 {
		mailCfg.PollInterval = deps.Cfg.Interval
	}
	if deps.Cfg.BatchSize > 0 {
		mailCfg.BatchSize = deps.Cfg.BatchSize
	}
	manager.Register(worker.NewMailWorker(mailCfg, deps.Notification, deps.Logger))

	return manager, nil
}

// registerEventLogging subscribes an audit logging handler to every event
// type so transitions leave a trace even when nothing else listens
func registerEventLogging(disp dispatcher.Dispatcher, logger *zap.Logger) {
	types := []event.Type{
		event.TypeRecordCreated,
		event.TypeRecordTransitioned,
		event.TypeAttendanceCreated,
		event.TypeApplicationCreated,
		event.TypeNotificationQueued,
	}

	handler := func(ctx context.Context, evt *event.Event) error {
		logger.Info("Domain event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.Int64("record_id", evt.RecordID),
			zap.String("kind", evt.Kind.String()),
		)
		return nil
	}

	for _, t := range types {
		disp.SubscribeNamed(t, "event_logger", handler)
	}
}
