// Package app 管理结算服务的生命周期
//
// HTTP: 领取/审核接口与参考数据查询 (internal/router)
// gRPC: 仅注册标准健康检查
// Kafka: 结算结果写入 reward-claim-settled / reward-claim-failed, 未配置 brokers 时不发送
// Redis: 多实例共享 nonce 偏移, 未配置时使用进程内分配
package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ludium-Official/ludium-world-payment/internal/blockchain"
	"github.com/Ludium-Official/ludium-world-payment/internal/config"
	"github.com/Ludium-Official/ludium-world-payment/internal/handler"
	"github.com/Ludium-Official/ludium-world-payment/internal/kafka"
	"github.com/Ludium-Official/ludium-world-payment/internal/repository"
	"github.com/Ludium-Official/ludium-world-payment/internal/router"
	"github.com/Ludium-Official/ludium-world-payment/internal/service"
	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

// App 应用
type App struct {
	cfg *config.Config

	// 基础设施
	db    *gorm.DB
	redis redis.UniversalClient

	// 区块链
	chainClient *blockchain.Client
	executor    *blockchain.Executor

	// 服务
	rewardClaimSvc *service.RewardClaimService
	referenceSvc   *service.ReferenceService

	// Kafka
	kafkaProducer  *kafka.Producer
	eventPublisher kafka.EventPublisher

	// 服务端
	httpServer    *http.Server
	healthHandler *handler.HealthHandler
	grpcServer    *grpc.Server
	healthServer  *health.Server

	stopCh chan struct{}
}

// NewApp 创建应用
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}

	if err := app.initInfrastructure(); err != nil {
		app.shutdown()
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initBlockchain(); err != nil {
		app.shutdown()
		return nil, fmt.Errorf("failed to init blockchain: %w", err)
	}

	app.initServices()

	if err := app.initKafka(); err != nil {
		app.shutdown()
		return nil, fmt.Errorf("failed to init kafka: %w", err)
	}

	app.initHTTP()
	app.initGRPC()

	return app, nil
}

// initInfrastructure 初始化数据库与 Redis
func (a *App) initInfrastructure() error {
	pg := a.cfg.Postgres
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(pg.MaxConnections)
	sqlDB.SetMaxIdleConns(pg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pg.ConnMaxLifetime) * time.Second)

	a.db = db
	logger.Info("database connected", zap.String("host", pg.Host))

	if !a.cfg.Service.SkipMigrate {
		if err := AutoMigrate(a.db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("database migrated")
	}

	if !a.cfg.Redis.Enabled() {
		logger.Info("redis not configured, using local nonce allocator")
		return nil
	}

	a.redis = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    a.cfg.Redis.Addresses,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}

	logger.Info("redis connected", zap.Strings("addrs", a.cfg.Redis.Addresses))
	return nil
}

// initBlockchain 初始化链客户端、中继账户与执行器
func (a *App) initBlockchain() error {
	bc := a.cfg.Blockchain

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := blockchain.NewClient(ctx, &blockchain.ClientConfig{
		ChainID:         bc.ChainID,
		RPCURLs:         bc.RPCURLs(),
		MaxRetries:      3,
		RetryInterval:   500 * time.Millisecond,
		HealthCheckFreq: 30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create blockchain client: %w", err)
	}
	a.chainClient = client

	keys, err := blockchain.LoadKeyPool(bc.KeysFilename, bc.PrivateKeys)
	if err != nil {
		return fmt.Errorf("failed to load relayer keys: %w", err)
	}

	whitelist, err := blockchain.NewWhitelist(bc.WhitelistedSenders, bc.WhitelistedContracts)
	if err != nil {
		return fmt.Errorf("invalid whitelist: %w", err)
	}

	var nonces blockchain.NonceAllocator
	if a.redis != nil {
		nonces = blockchain.NewRedisNonceAllocator(a.redis, &blockchain.RedisNonceConfig{
			ChainID: bc.ChainID,
		})
	} else {
		nonces = blockchain.NewLocalNonceAllocator()
	}

	deposit, ok := new(big.Int).SetString(bc.StorageDepositWei, 10)
	if !ok && bc.StorageDepositWei != "" {
		return fmt.Errorf("invalid storage_deposit_wei: %q", bc.StorageDepositWei)
	}

	execCfg := blockchain.ExecutorConfig{
		ChainID:             bc.ChainID,
		GasLimitNative:      bc.GasLimitNative,
		GasLimitCall:        bc.GasLimitCall,
		StorageDeposit:      deposit,
		ReceiptTimeout:      bc.ReceiptTimeout(),
		ReceiptPollInterval: bc.ReceiptPollInterval(),
	}
	if bc.ForwarderAddress != "" {
		if !common.IsHexAddress(bc.ForwarderAddress) {
			return fmt.Errorf("invalid forwarder_address: %q", bc.ForwarderAddress)
		}
		execCfg.Forwarder = &blockchain.ForwarderDomain{
			Name:              bc.ForwarderName,
			Version:           bc.ForwarderVersion,
			ChainID:           bc.ChainID,
			VerifyingContract: common.HexToAddress(bc.ForwarderAddress),
		}
	}

	a.executor = blockchain.NewExecutor(client, keys, nonces, whitelist, execCfg)

	logger.Info("blockchain initialized",
		zap.Int64("chain_id", bc.ChainID),
		zap.Int("relayers", keys.Len()),
		zap.Bool("delegated", a.executor.Delegated()))
	return nil
}

// initServices 初始化仓储与服务
func (a *App) initServices() {
	coinNetworks := repository.NewCoinNetworkRepository(a.db)

	a.rewardClaimSvc = service.NewRewardClaimService(
		repository.NewRewardClaimRepository(a.db),
		repository.NewUserRepository(a.db),
		repository.NewMissionSubmitRepository(a.db),
		repository.NewDetailedPostingRepository(a.db),
		coinNetworks,
		a.executor,
		&service.RewardClaimServiceConfig{
			MaxRetryCount:     a.cfg.Settlement.MaxRetryCount,
			RetryDelay:        a.cfg.Settlement.RetryDelay(),
			SettlementTimeout: a.cfg.Settlement.Timeout(a.cfg.Blockchain.ReceiptTimeout()),
		},
	)

	a.referenceSvc = service.NewReferenceService(
		repository.NewCoinRepository(a.db),
		repository.NewNetworkRepository(a.db),
		coinNetworks,
	)

	logger.Info("services initialized")
}

// initKafka 初始化事件发布
func (a *App) initKafka() error {
	if !a.cfg.Kafka.Enabled() {
		a.eventPublisher = kafka.NopEventPublisher{}
		logger.Info("kafka not configured, reward claim events disabled")
	} else {
		producer, err := kafka.NewProducer(&kafka.ProducerConfig{
			Brokers:  a.cfg.Kafka.Brokers,
			ClientID: a.cfg.Kafka.ClientID,
		})
		if err != nil {
			return fmt.Errorf("failed to create kafka producer: %w", err)
		}
		a.kafkaProducer = producer
		a.eventPublisher = kafka.NewKafkaEventPublisher(producer)
		logger.Info("kafka initialized", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	}

	a.rewardClaimSvc.SetOnClaimResolved(a.eventPublisher.PublishRewardClaimEvent)
	return nil
}

// initHTTP 初始化 HTTP 服务
func (a *App) initHTTP() {
	deps := map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
		"blockchain": handler.PingFunc(a.chainClient.HealthCheck),
	}
	if a.redis != nil {
		deps["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	a.healthHandler = handler.NewHealthHandler(deps)

	engine := router.NewRouter(
		handler.NewRewardClaimHandler(a.rewardClaimSvc),
		handler.NewReferenceHandler(a.referenceSvc),
		a.healthHandler,
	).Setup()

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Service.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// initGRPC 初始化 gRPC 健康检查
func (a *App) initGRPC() {
	a.grpcServer = grpc.NewServer()
	a.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, a.healthServer)
}

// Run 运行应用, 收到退出信号后优雅关闭
func (a *App) Run() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Service.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("gRPC server listening", zap.Int("port", a.cfg.Service.GRPCPort))
		if err := a.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server listening", zap.Int("port", a.cfg.Service.HTTPPort))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	a.healthServer.SetServingStatus(a.cfg.Service.Name, grpc_health_v1.HealthCheckResponse_SERVING)
	a.healthHandler.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-a.stopCh:
		logger.Info("shutdown requested")
	case runErr = <-errCh:
		logger.Error("server error", zap.Error(runErr))
	}

	a.shutdown()
	return runErr
}

// shutdown 关闭应用
// HTTP 先停止接收请求, 进行中的结算在超时内完成记账
func (a *App) shutdown() {
	logger.Info("shutting down...")

	if a.healthHandler != nil {
		a.healthHandler.SetReady(false)
	}
	if a.healthServer != nil {
		a.healthServer.SetServingStatus(a.cfg.Service.Name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown", zap.Error(err))
		}
		cancel()
	}

	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	if a.kafkaProducer != nil {
		if err := a.kafkaProducer.Close(); err != nil {
			logger.Error("kafka producer close", zap.Error(err))
		}
	}

	if a.chainClient != nil {
		a.chainClient.Close()
	}

	if a.redis != nil {
		a.redis.Close()
	}

	if a.db != nil {
		if sqlDB, _ := a.db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	logger.Info("shutdown complete")
}

// Stop 停止应用
func (a *App) Stop() {
	close(a.stopCh)
}
