// infrastructure/container.go
package infrastructure

import (
	"context"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/eGGnogSC/booksync/config"
	"github.com/eGGnogSC/booksync/infrastructure/redis"
	"github.com/eGGnogSC/booksync/internal/auth"
	"github.com/eGGnogSC/booksync/internal/importer"
	"github.com/eGGnogSC/booksync/internal/record"
	"github.com/eGGnogSC/booksync/internal/sync"
	"github.com/eGGnogSC/booksync/internal/translate"
	"github.com/eGGnogSC/booksync/pkg/qbclient"
)

// Container provides application dependencies
type Container struct {
	// Services
	AuthService *auth.Service
	QBClient    *qbclient.Client
	Translator  *translate.Translator

	// Handlers
	AuthHandler   *auth.Handler
	SyncHandler   *sync.Handler
	ImportHandler *importer.Handler

	// Infrastructure
	Log         *logrus.Logger
	RedisClient goredis.UniversalClient
	RedisHealth *redis.HealthChecker
	TokenStore  auth.TokenStore
	RecordStore record.Store
}

// NewContainer creates and initializes the dependency container
func NewContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	container := &Container{}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	container.Log = log

	// Redis client, single node or cluster based on configuration
	redisCfg := redis.DefaultConfig()
	redisCfg.Addresses = cfg.Redis.Addresses
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB

	var redisClient goredis.UniversalClient
	if len(cfg.Redis.Addresses) > 1 {
		redisClient = redis.NewClusterClient(redisCfg)
	} else {
		redisClient = redis.NewClient(redisCfg)
	}
	container.RedisClient = redisClient

	container.RedisHealth = redis.NewHealthChecker(ctx, redisClient, 30*time.Second, log)

	// Token store survives Redis outages via local fallback
	tokenStore := auth.NewFallbackTokenStore(redisClient, cfg.Redis.KeyPrefix, container.RedisHealth.IsHealthy, log)
	container.TokenStore = tokenStore

	stateStore := auth.NewRedisStateStore(redisClient, cfg.Redis.KeyPrefix)

	auth.InitSessionStore([]byte(cfg.Server.SessionSecret))

	container.AuthService = auth.NewService(auth.OAuthConfig{
		ClientID:     cfg.QuickBooks.ClientID,
		ClientSecret: cfg.QuickBooks.ClientSecret,
		RedirectURI:  cfg.QuickBooks.RedirectURI,
		Scopes:       cfg.QuickBooks.Scopes,
		AuthURL:      cfg.QuickBooks.AuthURL,
		TokenURL:     cfg.QuickBooks.TokenURL,
		RevokeURL:    cfg.QuickBooks.RevokeURL,
	}, tokenStore, stateStore, log)

	container.QBClient = qbclient.NewClient(
		qbclient.Environment(cfg.QuickBooks.Environment),
		cfg.QuickBooks.MinorVersion,
		container.AuthService,
		log,
	)

	container.RecordStore = record.NewRedisStore(redisClient, cfg.Redis.KeyPrefix)

	container.Translator = translate.New(translate.Options{
		WorkOrderPrefix: cfg.Import.WorkOrderPrefix,
		AutoPrefix:      cfg.Import.AutoPrefix,
	})

	// Handlers
	container.AuthHandler = auth.NewHandler(container.AuthService)
	container.SyncHandler = sync.NewHandler(
		container.QBClient,
		container.RecordStore,
		container.Translator,
		cfg.Import.DefaultItemName,
		log,
	)
	container.ImportHandler = importer.NewHandler(
		container.QBClient,
		container.RecordStore,
		container.Translator,
		cfg.Import,
		log,
	)

	// Catch up locally cached tokens once Redis recovers
	tokenStore.StartReplicationRoutine(ctx)

	return container, nil
}

// Shutdown gracefully closes connections
func (c *Container) Shutdown() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Log.WithError(err).Error("error closing Redis connection")
		}
	}
}
