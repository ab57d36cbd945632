package config

import (
	"fmt"
	"os"
)

// Network holds the endpoints for one NEAR network.
type Network struct {
	Name        string
	NodeURL     string
	WalletURL   string
	ExplorerURL string
}

var networks = map[string]Network{
	"development": {
		Name:        "testnet",
		NodeURL:     "https://rpc.testnet.near.org",
		WalletURL:   "https://wallet.testnet.near.org",
		ExplorerURL: "https://explorer.testnet.near.org",
	},
	"production": {
		Name:        "mainnet",
		NodeURL:     "https://rpc.mainnet.near.org",
		WalletURL:   "https://wallet.near.org",
		ExplorerURL: "https://explorer.near.org",
	},
}

type Config struct {
	Env        string
	Network    Network
	ContractID string
	OwnerID    string
	// SignerID/SignerKey identify the account used for the one-time
	// contract initialization attempted at startup.
	SignerID  string
	SignerKey string
	DBSource  string
	Port      string
	LogLevel  string
}

func Load() (*Config, error) {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	network, ok := networks[env]
	if !ok {
		return nil, fmt.Errorf("unknown ENVIRONMENT %q (want development or production)", env)
	}
	if nodeURL := os.Getenv("NODE_URL"); nodeURL != "" {
		network.NodeURL = nodeURL
	}

	contractID := os.Getenv("CONTRACT_ID")
	if contractID == "" {
		return nil, fmt.Errorf("CONTRACT_ID environment variable is required")
	}

	ownerID := os.Getenv("OWNER_ID")
	if ownerID == "" {
		ownerID = contractID
	}

	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		Env:        env,
		Network:    network,
		ContractID: contractID,
		OwnerID:    ownerID,
		SignerID:   os.Getenv("SIGNER_ID"),
		SignerKey:  os.Getenv("SIGNER_KEY"),
		DBSource:   dbSource,
		Port:       port,
		LogLevel:   logLevel,
	}, nil
}
