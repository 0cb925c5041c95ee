package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"citizen-auth/internal/audit"
	"citizen-auth/internal/authn"
	"citizen-auth/internal/bucketing"
	"citizen-auth/internal/client"
	"citizen-auth/internal/config"
	"citizen-auth/internal/encryption"
	"citizen-auth/internal/events"
	"citizen-auth/internal/fayda"
	"citizen-auth/internal/hashing"
	redisrepo "citizen-auth/internal/repository/redis"
	"citizen-auth/internal/repository/scylla"
	"citizen-auth/internal/search"
	"citizen-auth/internal/service"
	"citizen-auth/internal/util"
)

// Factory owns the lifecycle of every application dependency.
type Factory struct {
	config *config.Config

	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.BucketingManager

	accountRepository scylla.AccountRepository
	sessionCache      *redisrepo.SessionCache
	otpTxnCache       *redisrepo.OTPTxnCache
	emailTokenCache   *redisrepo.EmailTokenCache
	rateLimitCache    *redisrepo.RateLimitCache
	authProvider      authn.Provider
	identityClient    *fayda.Client
	eventPublisher    *events.Publisher
	auditRecorder     *audit.Recorder
	accountIndex      *search.AccountIndex
	accountService    *service.AccountService
	adminService      *service.AdminService

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory loads configuration, initializes the logger, and connects every
// external client.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeManagers()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients connects the external services with health checks. In
// development a failed dependency degrades to a warning; in production it is
// fatal.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		}
	}

	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
	}

	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without events", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
	}

	if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		util.Warn("Elasticsearch initialization failed - account listing degraded", util.ErrorField(err))
	} else {
		f.esClient = esClient
	}

	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		util.Warn("ClickHouse initialization failed - login audit degraded", util.ErrorField(err))
	} else {
		f.clickhouseClient = chClient
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			util.Warn("KMS configuration failed - PII stored unencrypted", util.ErrorField(err))
		} else {
			kmsClient = kms.NewFromConfig(awsCfg)
		}
	}

	f.encryptionManager = encryption.NewEncryptionManager(f.config, kmsClient)
	f.bucketingManager = bucketing.NewBucketingManager(f.config)
	f.identityClient = fayda.NewClient(f.config, util.Get())
}

func (f *Factory) AccountRepository() scylla.AccountRepository {
	if f.accountRepository == nil {
		f.accountRepository = scylla.NewAccountRepository(
			f.scyllaClient,
			f.bucketingManager,
			util.Get(),
		)
	}
	return f.accountRepository
}

func (f *Factory) SessionCache() *redisrepo.SessionCache {
	if f.sessionCache == nil {
		f.sessionCache = redisrepo.NewSessionCache(f.redisClient, f.config.Auth.RefreshTokenTTL, util.Get())
	}
	return f.sessionCache
}

func (f *Factory) RateLimitCache() *redisrepo.RateLimitCache {
	if f.rateLimitCache == nil {
		f.rateLimitCache = redisrepo.NewRateLimitCache(f.redisClient, util.Get())
	}
	return f.rateLimitCache
}

func (f *Factory) AuthProvider() authn.Provider {
	if f.authProvider == nil {
		f.authProvider = authn.NewLocal(f.hasher, f.SessionCache(), &f.config.Auth, util.Get())
	}
	return f.authProvider
}

func (f *Factory) EventPublisher() *events.Publisher {
	if f.eventPublisher == nil && f.kafkaProducer != nil {
		f.eventPublisher = events.NewPublisher(f.kafkaProducer, util.Get())
	}
	return f.eventPublisher
}

func (f *Factory) AuditRecorder() *audit.Recorder {
	if f.auditRecorder == nil && f.clickhouseClient != nil {
		f.auditRecorder = audit.NewRecorder(f.clickhouseClient, util.Get())
	}
	return f.auditRecorder
}

func (f *Factory) AccountIndex() *search.AccountIndex {
	if f.accountIndex == nil && f.esClient != nil {
		f.accountIndex = search.NewAccountIndex(f.esClient, util.Get())
	}
	return f.accountIndex
}

func (f *Factory) AccountService() *service.AccountService {
	if f.accountService == nil {
		if f.otpTxnCache == nil {
			f.otpTxnCache = redisrepo.NewOTPTxnCache(f.redisClient, f.config.Auth.OTPTxnTTL, util.Get())
		}
		if f.emailTokenCache == nil {
			f.emailTokenCache = redisrepo.NewEmailTokenCache(f.redisClient, 24*time.Hour, util.Get())
		}
		f.accountService = service.NewAccountService(
			f.AccountRepository(),
			f.AuthProvider(),
			f.identityClient,
			f.otpTxnCache,
			f.emailTokenCache,
			f.encryptionManager,
			f.EventPublisher(),
			f.AuditRecorder(),
			f.AccountIndex(),
			f.config.Lockout,
			util.Get(),
		)
	}
	return f.accountService
}

func (f *Factory) AdminService() *service.AdminService {
	if f.adminService == nil {
		f.adminService = service.NewAdminService(
			f.AccountService(),
			f.AccountRepository(),
			f.AuthProvider(),
			f.AccountIndex(),
			util.Get(),
		)
	}
	return f.adminService
}

// HealthCheck reports the health of every dependency by name.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	} else {
		healthErrors["scylla"] = fmt.Errorf("scylla client not initialized")
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(); err != nil {
			healthErrors["elasticsearch"] = err
		}
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

// IsHealthy reports whether the critical dependencies are up. Kafka,
// Elasticsearch, and ClickHouse degrade gracefully and do not fail readiness.
func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	delete(healthErrors, "elasticsearch")
	delete(healthErrors, "clickhouse")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}
