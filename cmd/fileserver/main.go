package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	badgerstore "github.com/merkleproof/fileserver/pkg/store/badger"
	memorystore "github.com/merkleproof/fileserver/pkg/store/memory"
	redisstore "github.com/merkleproof/fileserver/pkg/store/redis"

	"github.com/merkleproof/fileserver/pkg/config"
	"github.com/merkleproof/fileserver/pkg/fileserver"
	"github.com/merkleproof/fileserver/pkg/logger"
	"github.com/merkleproof/fileserver/pkg/store"
)

func main() {
	app := &cli.App{
		Name:  "fileserver",
		Usage: "serves a directory of files over HTTP, committing their contents to a Merkle tree on every upload",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP port to listen on",
				Value:   8080,
				EnvVars: []string{config.EnvFileserverPort},
			},
			&cli.StringFlag{
				Name:    "files-dir",
				Usage:   "directory the server reads and writes uploaded files from",
				Value:   "./filestore",
				EnvVars: []string{config.EnvFileserverFilesDir},
			},
			&cli.Int64Flag{
				Name:    "max-upload-bytes",
				Usage:   "maximum accepted multipart upload size, in bytes",
				Value:   config.DefaultMaxUploadBytes,
				EnvVars: []string{config.EnvFileserverMaxUploadSize},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "enable debug-level logging",
				EnvVars: []string{config.EnvFileserverVerbose},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "Proof Store backend: badger, redis, or memory",
				Value:   string(config.PersistenceBadger),
				EnvVars: []string{config.EnvPersistenceType},
			},
			&cli.StringFlag{
				Name:    "persistence-data-path",
				Usage:   "on-disk path for the badger backend",
				Value:   "./merkle_tree_db",
				EnvVars: []string{config.EnvPersistenceDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port), required for the redis backend",
				EnvVars: []string{config.EnvRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				EnvVars: []string{config.EnvRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				EnvVars: []string{config.EnvRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				EnvVars: []string{config.EnvRedisKeyPrefix},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseConfig(c *cli.Context) *config.FileserverConfig {
	persistenceConfig := config.PersistenceConfig{
		Type:     config.PersistenceType(c.String("persistence-type")),
		DataPath: c.String("persistence-data-path"),
	}
	if persistenceConfig.Type == config.PersistenceRedis {
		persistenceConfig.RedisConfig = &config.RedisConfig{
			Address:   c.String("redis-address"),
			Password:  c.String("redis-password"),
			DB:        c.Int("redis-db"),
			KeyPrefix: c.String("redis-key-prefix"),
		}
	}

	return &config.FileserverConfig{
		Port:              c.Int("port"),
		FilesDir:          c.String("files-dir"),
		MaxUploadBytes:    c.Int64("max-upload-bytes"),
		Verbose:           c.Bool("verbose"),
		PersistenceConfig: persistenceConfig,
	}
}

func run(c *cli.Context) error {
	cfg := parseConfig(c)
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	var st store.Store
	switch cfg.PersistenceConfig.Type {
	case config.PersistenceBadger:
		st, err = badgerstore.NewBadgerStore(cfg.PersistenceConfig.DataPath, l)
		if err != nil {
			l.Sugar().Fatalw("failed to create badger store", "error", err)
		}
		l.Sugar().Infow("using badger persistence", "path", cfg.PersistenceConfig.DataPath)
	case config.PersistenceRedis:
		st, err = redisstore.NewRedisStore(&redisstore.Config{
			Address:   cfg.PersistenceConfig.RedisConfig.Address,
			Password:  cfg.PersistenceConfig.RedisConfig.Password,
			DB:        cfg.PersistenceConfig.RedisConfig.DB,
			KeyPrefix: cfg.PersistenceConfig.RedisConfig.KeyPrefix,
		}, l)
		if err != nil {
			l.Sugar().Fatalw("failed to create redis store", "error", err)
		}
		l.Sugar().Infow("using redis persistence", "address", cfg.PersistenceConfig.RedisConfig.Address)
	default:
		st = memorystore.NewMemoryStore()
		l.Sugar().Warn("using in-memory persistence - data will be lost on restart")
	}
	defer func() { _ = st.Close() }()

	if err := st.HealthCheck(); err != nil {
		l.Sugar().Fatalw("persistence health check failed", "error", err)
	}

	srv := fileserver.NewServer(fmt.Sprintf(":%d", cfg.Port), cfg.FilesDir, cfg.MaxUploadBytes, st, l)
	if err := srv.Start(); err != nil {
		l.Sugar().Fatalw("failed to start fileserver", "error", err)
	}

	select {}
}
