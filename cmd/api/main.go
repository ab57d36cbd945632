package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/arvales/slotvault/internal/api"
	"github.com/arvales/slotvault/internal/config"
	"github.com/arvales/slotvault/internal/contract"
	"github.com/arvales/slotvault/internal/near"
	"github.com/arvales/slotvault/internal/service"
	"github.com/arvales/slotvault/internal/session"
	"github.com/arvales/slotvault/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	st, err := store.NewStore(cfg.DBSource)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer st.Close()

	rpc := near.NewClient(cfg.Network.NodeURL, logger.Named("near"))
	binding := contract.NewSlotMachine(rpc, cfg.ContractID, logger.Named("contract"))

	// One-time contract initialization. "Already initialized" is the expected
	// steady state; anything else aborts startup before the server binds.
	if cfg.SignerID != "" {
		signer, err := near.NewSigner(cfg.SignerID, cfg.SignerKey)
		if err != nil {
			logger.Fatal("bad signer configuration", zap.Error(err))
		}
		if err := binding.Init(context.Background(), signer, cfg.OwnerID); err != nil {
			logger.Fatal("contract initialization failed", zap.Error(err))
		}
	} else {
		logger.Info("no signer configured, skipping contract initialization")
	}

	// Initialize Layers
	sessions := session.NewManager(rpc, logger.Named("session"))
	notifications := service.NewNotifications(cfg.Network.ExplorerURL)
	credits := service.NewCreditsService(binding, st, notifications, logger.Named("service"))
	handler := api.NewHandler(credits, sessions, cfg.Network, cfg.ContractID, logger.Named("api"))

	logger.Info("server starting",
		zap.String("port", cfg.Port),
		zap.String("network", cfg.Network.Name),
		zap.String("contract", cfg.ContractID))
	if err := http.ListenAndServe(":"+cfg.Port, handler.Router()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = lvl
	return zapCfg.Build()
}
