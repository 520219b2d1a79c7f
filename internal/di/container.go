// Package di provides the dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"examprep/internal/config"
	"examprep/internal/database"
	"examprep/internal/observability"
	"examprep/internal/services"
	contextutils "examprep/internal/utils"
)

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg       *config.Config
	logger    *observability.Logger
	dbManager *database.Manager
	db        *sql.DB

	userService      *services.UserService
	questionService  *services.QuestionService
	planService      *services.StudyPlanService
	wrongAnswerSvc   *services.WrongAnswerService
	schedulerService *services.SchedulerService
	phaseGateService *services.PhaseGateService
	classifier       *services.ClassifierService
	verifier         *services.VerificationService
	ingestionService *services.IngestionService
	emailService     *services.EmailService

	mu            sync.Mutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:    cfg,
		logger: logger,
	}
}

// Initialize sets up the database connection and all services
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	sc.userService = services.NewUserService(db, sc.logger)
	sc.questionService = services.NewQuestionService(db, sc.logger)
	sc.planService = services.NewStudyPlanService(db, sc.logger)
	sc.wrongAnswerSvc = services.NewWrongAnswerService(db, sc.logger, sc.cfg.ReviewReminder)
	sc.schedulerService = services.NewSchedulerService(db, sc.logger, sc.cfg.Scheduler,
		sc.planService, sc.questionService, sc.wrongAnswerSvc, sc.cfg.GetSubjectsForCertification)
	sc.phaseGateService = services.NewPhaseGateService(db, sc.logger, sc.cfg.PhaseGate)
	sc.classifier = services.NewClassifierService(sc.logger)
	sc.verifier = services.NewVerificationService(sc.logger)
	sc.ingestionService = services.NewIngestionService(db, sc.logger,
		sc.classifier, sc.verifier, sc.questionService)
	sc.emailService = services.NewEmailService(sc.cfg, sc.logger, db)

	sc.logger.Info(ctx, "Service container initialized")
	return nil
}

// EnsureAdminUser creates the configured admin account on startup
func (sc *ServiceContainer) EnsureAdminUser(ctx context.Context) error {
	if sc.cfg.Server.AdminUsername == "" || sc.cfg.Server.AdminPassword == "" {
		sc.logger.Warn(ctx, "Admin credentials not configured, skipping admin bootstrap")
		return nil
	}
	return sc.userService.EnsureAdminUserExists(ctx, sc.cfg.Server.AdminUsername, sc.cfg.Server.AdminPassword)
}

// Shutdown releases all resources in reverse initialization order
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var firstErr error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetDatabase returns the shared database handle
func (sc *ServiceContainer) GetDatabase() *sql.DB { return sc.db }

// GetConfig returns the loaded configuration
func (sc *ServiceContainer) GetConfig() *config.Config { return sc.cfg }

// GetLogger returns the observability logger
func (sc *ServiceContainer) GetLogger() *observability.Logger { return sc.logger }

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() services.UserServiceInterface { return sc.userService }

// GetQuestionService returns the question service
func (sc *ServiceContainer) GetQuestionService() services.QuestionServiceInterface {
	return sc.questionService
}

// GetStudyPlanService returns the study plan service
func (sc *ServiceContainer) GetStudyPlanService() services.StudyPlanServiceInterface {
	return sc.planService
}

// GetWrongAnswerService returns the wrong-answer service
func (sc *ServiceContainer) GetWrongAnswerService() services.WrongAnswerServiceInterface {
	return sc.wrongAnswerSvc
}

// GetSchedulerService returns the scheduler service
func (sc *ServiceContainer) GetSchedulerService() services.SchedulerServiceInterface {
	return sc.schedulerService
}

// GetPhaseGateService returns the phase-gate service
func (sc *ServiceContainer) GetPhaseGateService() services.PhaseGateServiceInterface {
	return sc.phaseGateService
}

// GetIngestionService returns the ingestion service
func (sc *ServiceContainer) GetIngestionService() services.IngestionServiceInterface {
	return sc.ingestionService
}

// GetEmailService returns the email service
func (sc *ServiceContainer) GetEmailService() *services.EmailService { return sc.emailService }
