package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dpm-agent/internal/domain/constants"
	"dpm-agent/internal/infrastructure/config"
	"dpm-agent/internal/infrastructure/container"
	"dpm-agent/internal/infrastructure/metrics"

	"github.com/sirupsen/logrus"
)

func main() {
	// 로거 초기화
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	setLogLevel(logger, os.Getenv("LOG_LEVEL"))

	// 설정 로드
	cfg, err := config.NewEnvironmentConfigLoader(os.Args[1:]).Load()
	if err != nil {
		logger.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	setLogLevel(logger, cfg.LogLevel)

	// 컨텍스트 및 시그널 핸들링 설정
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	// 의존성 주입 컨테이너 생성 (시작 검증 포함)
	appContainer, err := container.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Agent initialization failed")
		os.Exit(1)
	}

	app := NewApplication(appContainer, logger)
	runErr := app.Run(ctx)

	if err := appContainer.Close(); err != nil {
		logger.WithError(err).Error("Failed to cleanup container")
	}
	if runErr != nil {
		logger.WithError(runErr).Error("Agent stopped with error")
		os.Exit(1)
	}
}

// setLogLevel은 level이 유효할 때만 로그 레벨을 바꿉니다
func setLogLevel(logger *logrus.Logger, level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithError(err).Warnf("Unknown log level %q, keeping %s", level, logger.GetLevel())
		return
	}
	logger.SetLevel(parsed)
}

// Application은 메인 애플리케이션 구조체입니다
type Application struct {
	container    *container.Container
	logger       *logrus.Logger
	healthServer *http.Server
}

// NewApplication은 새로운 Application을 생성합니다
func NewApplication(container *container.Container, logger *logrus.Logger) *Application {
	return &Application{
		container: container,
		logger:    logger,
	}
}

// Run은 상태 서버를 띄우고 ctx가 취소될 때까지 조정 루프를 실행합니다
func (a *Application) Run(ctx context.Context) error {
	cfg := a.container.GetConfig()
	inventory := a.container.GetInventory()

	// 에이전트 정보 메트릭 설정
	metrics.SetAgentInfo(constants.Version, inventory.AgentType(), inventory.AgentIdentifier(), inventory.Host())

	a.startHealthServer(cfg.Health.Port)
	defer a.shutdown()

	a.logger.WithFields(logrus.Fields{
		"agent_id":      inventory.AgentIdentifier(),
		"cpc":           cfg.DPM.CPCName,
		"rpc_consumers": inventory.RPCConsumers(),
	}).Info("DPM agent started")

	return a.container.GetReconciliationLoop().Run(ctx)
}

// startHealthServer는 헬스체크 서버를 시작합니다
func (a *Application) startHealthServer(port string) {
	a.healthServer = &http.Server{
		Addr:              ":" + port,
		Handler:           a.container.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.WithField("port", port).Info("Health check server started (with /metrics, /agent)")
		if err := a.healthServer.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.WithError(err).Error("Health check server failed")
		}
	}()
}

// shutdown은 헬스체크 서버를 정리합니다
func (a *Application) shutdown() {
	if a.healthServer == nil {
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := a.healthServer.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("Failed to shutdown health check server")
	}
}
