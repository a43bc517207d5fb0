package container

import (
	"context"
	"database/sql"
	stderrors "errors"
	"net/http"

	"dpm-agent/internal/application/inventory"
	"dpm-agent/internal/application/notifications"
	"dpm-agent/internal/application/polling"
	"dpm-agent/internal/application/tracker"
	"dpm-agent/internal/application/usecases"
	"dpm-agent/internal/domain/entities"
	"dpm-agent/internal/domain/errors"
	"dpm-agent/internal/domain/interfaces"
	"dpm-agent/internal/domain/services"
	"dpm-agent/internal/infrastructure/adapters"
	"dpm-agent/internal/infrastructure/config"
	"dpm-agent/internal/infrastructure/firewall"
	"dpm-agent/internal/infrastructure/health"
	"dpm-agent/internal/infrastructure/notify"
	"dpm-agent/internal/infrastructure/persistence"
	"dpm-agent/internal/infrastructure/tracing"
	"dpm-agent/internal/infrastructure/wiring"
	"dpm-agent/pkg/db"
	"dpm-agent/pkg/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Container는 의존성 주입을 관리하는 컨테이너입니다
type Container struct {
	config *config.Config
	logger *logrus.Logger

	// 인프라스트럭처 어댑터들
	clock           interfaces.Clock
	db              *sql.DB
	repository      *persistence.MySQLRepository
	filter          interfaces.SecurityGroupFilter
	tracingShutdown tracing.ShutdownFunc

	// 시작 시 검증된 상태
	mapping *entities.InterfaceMapping
	chassis *entities.Chassis

	// 서비스들
	tracker       *tracker.UpdateTracker
	callbacks     *notifications.Callbacks
	gateway       *wiring.DPMGateway
	inventory     *inventory.DeviceInventory
	healthService *health.HealthService
	notifyHandler *notify.Handler

	// 유스케이스
	state            *usecases.StateHolder
	reconcileUseCase *usecases.ReconcileDevicesUseCase
	loop             *polling.ReconciliationLoop
}

// NewContainer는 새로운 Container를 생성합니다.
// 시작 검증(방화벽 드라이버, 섀시 조회, 인터페이스 매핑)에 실패하면 에러를 반환합니다.
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	if err := container.initializeInfrastructure(ctx); err != nil {
		container.Close()
		return nil, err
	}

	if err := container.validateStartup(ctx); err != nil {
		container.Close()
		return nil, err
	}

	container.initializeServices()
	container.initializeUseCases()

	return container, nil
}

// initializeInfrastructure는 인프라스트럭처 컴포넌트들을 초기화합니다
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	c.clock = adapters.NewSystemClock()
	c.filter = firewall.NewNoopFilter(c.config.Agent.FirewallDriver, c.logger)

	shutdown, err := tracing.Init(ctx, c.config.Tracing, c.logger)
	if err != nil {
		return errors.NewSystemError("failed to initialize tracing", err)
	}
	c.tracingShutdown = shutdown

	// 데이터베이스 연결
	dbCfg := c.config.Database
	conn, err := db.Open(ctx, db.Config{
		Host:         dbCfg.Host,
		Port:         dbCfg.Port,
		User:         dbCfg.User,
		Password:     dbCfg.Password,
		Database:     dbCfg.Database,
		MaxOpenConns: dbCfg.MaxOpenConns,
		MaxIdleConns: dbCfg.MaxIdleConns,
		MaxLifetime:  dbCfg.MaxLifetime,
	}, c.logger)
	if err != nil {
		return errors.NewSystemError("failed to connect to database", err)
	}
	c.db = conn

	// 레포지토리 초기화
	c.repository = persistence.NewMySQLRepository(c.db, c.logger)
	if err := c.repository.EnsureSchema(ctx); err != nil {
		return errors.NewSystemError("failed to prepare wiring schema", err)
	}

	return nil
}

// validateStartup은 루프 시작 전 필요한 검증을 순서대로 수행합니다
func (c *Container) validateStartup(ctx context.Context) error {
	if err := services.ValidateFirewallDriver(c.config.Agent.FirewallDriver); err != nil {
		return err
	}

	retry := utils.RetryConfig{
		MaxAttempts:  c.config.Agent.StartupRetries + 1,
		InitialDelay: c.config.Agent.StartupRetryDelay,
		MaxDelay:     c.config.Agent.StartupRetryDelay * 8,
		Multiplier:   2.0,
		Retryable:    isTransientLookupError,
	}
	err := utils.RetryWithBackoff(ctx, retry, func(ctx context.Context) error {
		chassis, err := services.LookupDPMChassis(ctx, c.repository, c.config.DPM.CPCName)
		if err != nil {
			c.logger.WithError(err).WithField("cpc", c.config.DPM.CPCName).Warn("CPC lookup failed")
			return err
		}
		c.chassis = chassis
		return nil
	})
	if err != nil {
		return err
	}

	validator := services.MappingValidator{}
	mapping, err := validator.BuildInterfaceMapping(c.config.DPM.PhysicalAdapterMappings)
	if err != nil {
		return err
	}
	if err := validator.ValidateMappings(ctx, mapping, c.chassis); err != nil {
		return err
	}
	c.mapping = mapping

	c.logger.WithFields(logrus.Fields{
		"cpc":      c.chassis.Name,
		"networks": mapping.Networks(),
	}).Info("Interface mappings validated")

	return nil
}

// isTransientLookupError는 섀시 조회 실패 중 재시도할 가치가 있는 경우를 판별합니다.
// 섀시가 없거나 DPM 모드가 아닌 경우는 재시도하지 않습니다.
func isTransientLookupError(err error) bool {
	if stderrors.Is(err, errors.NewNotFoundError("")) {
		return false
	}
	return stderrors.Unwrap(err) != nil
}

// initializeServices는 서비스들을 초기화합니다
func (c *Container) initializeServices() {
	host := c.config.Agent.Host

	c.tracker = tracker.NewUpdateTracker()
	c.callbacks = notifications.NewCallbacks(c.tracker, c.filter, c.logger)
	c.notifyHandler = notify.NewHandler(c.callbacks, c.logger)

	c.gateway = wiring.NewDPMGateway(c.repository, c.repository, c.mapping, host, c.logger)
	c.inventory = inventory.NewDeviceInventory(c.gateway, c.mapping, host, c.config.Agent.DeviceQueryTimeout, c.logger)

	c.state = usecases.NewStateHolder()
	c.healthService = health.NewHealthService(c.clock, c.state, c.inventory, c.logger)
	c.healthService.UpdateDBHealth(true, nil)
}

// initializeUseCases는 유스케이스들을 초기화합니다
func (c *Container) initializeUseCases() {
	agentCfg := c.config.Agent

	c.reconcileUseCase = usecases.NewReconcileDevicesUseCase(
		c.tracker,
		c.inventory,
		c.gateway,
		c.state,
		c.clock,
		usecases.ReconcileOptions{
			WiringTimeout:        agentCfg.WiringTimeout,
			RemovalDebounceScans: agentCfg.RemovalDebounceScans,
		},
		c.logger,
	)

	controller := polling.NewPollingController(c.buildStrategy(), agentCfg.QuittingRPCTimeout, c.logger)
	c.loop = polling.NewReconciliationLoop(controller, c.reconcileUseCase, c.state, c.healthService, c.logger)
}

// buildStrategy는 설정된 폴링 전략을 생성합니다
func (c *Container) buildStrategy() polling.Strategy {
	agentCfg := c.config.Agent
	fields := logrus.Fields{
		"strategy": agentCfg.PollingStrategy,
		"interval": agentCfg.PollInterval,
	}

	var strategy polling.Strategy
	switch agentCfg.PollingStrategy {
	case config.StrategyBackoff:
		strategy = polling.NewExponentialBackoffStrategy(agentCfg.PollInterval, agentCfg.MaxPollInterval, 2.0, c.logger)
		fields["max_interval"] = agentCfg.MaxPollInterval
	case config.StrategyAdaptive:
		strategy = polling.NewAdaptiveStrategy(agentCfg.PollInterval, agentCfg.MaxPollInterval, 2*agentCfg.MaxPollInterval, c.logger)
		fields["max_interval"] = agentCfg.MaxPollInterval
	default:
		strategy = polling.NewFixedIntervalStrategy(agentCfg.PollInterval)
	}

	c.logger.WithFields(fields).Info("Polling strategy configured")
	return strategy
}

// Handler는 헬스체크, 메트릭, 에이전트 상태, 알림 경로를 담은 HTTP 핸들러를 반환합니다
func (c *Container) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", c.healthService)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/agent", c.healthService.AgentHandler())
	c.notifyHandler.Register(mux)
	return mux
}

// GetConfig는 설정을 반환합니다
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetHealthService는 헬스 서비스를 반환합니다
func (c *Container) GetHealthService() *health.HealthService {
	return c.healthService
}

// GetInventory는 디바이스 인벤토리를 반환합니다
func (c *Container) GetInventory() *inventory.DeviceInventory {
	return c.inventory
}

// GetReconciliationLoop는 조정 루프를 반환합니다
func (c *Container) GetReconciliationLoop() *polling.ReconciliationLoop {
	return c.loop
}

// Close는 컨테이너를 정리합니다
func (c *Container) Close() error {
	if c.tracingShutdown != nil {
		tracing.ShutdownWithTimeout(context.Background(), c.tracingShutdown, c.logger)
		c.tracingShutdown = nil
	}
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}
