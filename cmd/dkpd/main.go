package main

import (
	"log"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/guildtools/dkpledger/service"
	"github.com/guildtools/dkpledger/store/sqlite"
)

// Config is read from DKPD_* environment variables.
type Config struct {
	Addr              string `envconfig:"ADDR" default:":9365"`
	DataDir           string `envconfig:"DATA_DIR" default:"./data"`
	MaxWorkers        int    `envconfig:"MAX_WORKERS" default:"8"`
	FingerprintPolicy string `envconfig:"FINGERPRINT_POLICY" default:"reject"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("dkpd", &cfg); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	st, err := sqlite.New(cfg.DataDir)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}

	svc := service.New(st, logger, service.Config{
		FingerprintPolicy: service.FingerprintPolicy(cfg.FingerprintPolicy),
	})

	server := NewServer(cfg.Addr, cfg.MaxWorkers, svc, logger)
	if err := server.Start(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
