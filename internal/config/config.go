package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultServerAddr       = ":8080"
	defaultJWTTTL           = "24h"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultGatewayBaseURL   = "https://gateway.example.com/pay"
	defaultAgreementDir     = "./data"
	defaultAgreementBaseURL = "http://localhost:8080/files"
)

// Config holds process configuration, read once in main and injected from
// there. Nothing below reaches for the environment at call time.
type Config struct {
	DatabaseURL string
	ServerAddr  string

	JWTSecret string
	JWTTTL    time.Duration

	GatewayMerchantLogin string
	GatewayPassword1     string
	GatewayPassword2     string
	GatewayBaseURL       string
	GatewayResultURL     string
	GatewayIsTest        bool

	AgreementDir     string
	AgreementBaseURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ServerAddr:  getEnv("SERVER_ADDR", defaultServerAddr),

		JWTSecret: strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),

		GatewayMerchantLogin: os.Getenv("GATEWAY_MERCHANT_LOGIN"),
		GatewayPassword1:     os.Getenv("GATEWAY_PASSWORD1"),
		GatewayPassword2:     os.Getenv("GATEWAY_PASSWORD2"),
		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", defaultGatewayBaseURL),
		GatewayResultURL:     os.Getenv("GATEWAY_RESULT_URL"),
		GatewayIsTest:        getEnv("GATEWAY_IS_TEST", "1") == "1",

		AgreementDir:     getEnv("AGREEMENT_DIR", defaultAgreementDir),
		AgreementBaseURL: getEnv("AGREEMENT_BASE_URL", defaultAgreementBaseURL),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(name, def string) (time.Duration, error) {
	raw := getEnv(name, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
