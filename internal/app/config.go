package app

import (
	"time"

	"github.com/mockly-app/mockly-backend/internal/pkg/logger"
	"github.com/mockly-app/mockly-backend/internal/utils"
)

type Config struct {
	Port           string
	Environment    string
	Version        string
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	SignupBonus    int64
	PostHogAPIKey  string
	PostHogHost    string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	signupBonus := utils.GetEnvAsInt("SIGNUP_BONUS_CREDITS", 3, log)
	return Config{
		Port:           utils.GetEnv("PORT", "8080", log),
		Environment:    utils.GetEnv("ENVIRONMENT", "development", log),
		Version:        utils.GetEnv("APP_VERSION", "dev", log),
		JWTSecretKey:   jwtSecretKey,
		AccessTokenTTL: time.Duration(accessTokenTTLSeconds) * time.Second,
		SignupBonus:    int64(signupBonus),
		PostHogAPIKey:  utils.GetEnv("POSTHOG_API_KEY", "", nil),
		PostHogHost:    utils.GetEnv("POSTHOG_HOST", "https://app.posthog.com", nil),
	}
}
