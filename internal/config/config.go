package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr          string
	DBDriver      string
	DBPath        string
	TokenKey      string
	TokenTTL      time.Duration
	VerifyTTL     time.Duration
	ResetTTL      time.Duration
	BcryptCost    int
	ClientURL     string
	AdminEmail    string
	AdminPassword string
	SMTP          SMTP
	RedisAddr     string
	StatsdAddr    string
	Development   bool
	UploadDir     string
	StaticDir     string
	SecureCookies bool
	RateLimits    RateLimits
}

type SMTP struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type RateLimits struct {
	Login           int
	LoginWindow     time.Duration
	Forgot          int
	ForgotWindow    time.Duration
	Comment         int
	CommentWindow   time.Duration
	Subscribe       int
	SubscribeWindow time.Duration
}

func Load() Config {
	addr := envString("INSIGHTSPHERE_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	env := strings.ToLower(envString("INSIGHTSPHERE_ENV", "development"))
	cfg := Config{
		Addr:          addr,
		DBDriver:      envString("INSIGHTSPHERE_DB_DRIVER", "sqlite"),
		DBPath:        envString("INSIGHTSPHERE_DB", "insightsphere.db"),
		TokenKey:      envString("INSIGHTSPHERE_TOKEN_KEY", ""),
		TokenTTL:      envDuration("INSIGHTSPHERE_TOKEN_TTL", 7*24*time.Hour),
		VerifyTTL:     envDuration("INSIGHTSPHERE_VERIFY_TTL", 24*time.Hour),
		ResetTTL:      envDuration("INSIGHTSPHERE_RESET_TTL", 30*time.Minute),
		BcryptCost:    envInt("INSIGHTSPHERE_BCRYPT_COST", 12),
		ClientURL:     strings.TrimRight(envString("CLIENT_URL", "http://localhost:5173"), "/"),
		AdminEmail:    envString("ADMIN_EMAIL", ""),
		AdminPassword: envString("ADMIN_PASSWORD", ""),
		SMTP: SMTP{
			Host: envString("SMTP_HOST", ""),
			Port: envInt("SMTP_PORT", 587),
			User: envString("SMTP_USER", ""),
			Pass: envString("SMTP_PASS", ""),
			From: envString("SMTP_FROM", "InsightSphere <no-reply@insightsphere.local>"),
		},
		RedisAddr:     envString("REDIS_ADDR", ""),
		StatsdAddr:    envString("STATSD_ADDR", ""),
		Development:   env != "production",
		UploadDir:     envString("INSIGHTSPHERE_UPLOAD_DIR", "uploads"),
		StaticDir:     envString("INSIGHTSPHERE_STATIC_DIR", ""),
		SecureCookies: envBool("INSIGHTSPHERE_SECURE_COOKIES", env == "production"),
		RateLimits: RateLimits{
			Login:           envInt("INSIGHTSPHERE_RL_LOGIN", 5),
			LoginWindow:     envDuration("INSIGHTSPHERE_RL_LOGIN_WINDOW", 15*time.Minute),
			Forgot:          envInt("INSIGHTSPHERE_RL_FORGOT", 3),
			ForgotWindow:    envDuration("INSIGHTSPHERE_RL_FORGOT_WINDOW", 30*time.Minute),
			Comment:         envInt("INSIGHTSPHERE_RL_COMMENT", 30),
			CommentWindow:   envDuration("INSIGHTSPHERE_RL_COMMENT_WINDOW", time.Minute),
			Subscribe:       envInt("INSIGHTSPHERE_RL_SUBSCRIBE", 10),
			SubscribeWindow: envDuration("INSIGHTSPHERE_RL_SUBSCRIBE_WINDOW", time.Hour),
		},
	}

	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
