package config

import (
	"os"
	"time"
)

type Config struct {
	Port           string
	BindAddr       string
	AllowedOrigins string        // comma-separated, in addition to localhost
	AdminUser      string        // seeded administrator
	AdminPassword  string
	OnlineWindow   time.Duration // a user counts as online this long after their last request
	MaxUpload      int64         // bytes accepted in a multipart body

	// Uploads go to S3 when S3Endpoint is set, otherwise they stay in memory.
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3Bucket    string
	S3UseSSL    bool

	Retention            time.Duration // uploads and history older than this are pruned
	HousekeepingSchedule string
}

func Load() *Config {
	return &Config{
		Port:           envOr("MODPANEL_DEV_PORT", "5000"),
		BindAddr:       envOr("MODPANEL_DEV_BIND", "127.0.0.1"),
		AllowedOrigins: os.Getenv("MODPANEL_DEV_ORIGINS"),
		AdminUser:      envOr("MODPANEL_DEV_ADMIN_USER", "admin"),
		AdminPassword:  envOr("MODPANEL_DEV_ADMIN_PASSWORD", "admin123"),
		OnlineWindow:   durationOr("MODPANEL_DEV_ONLINE_WINDOW", 5*time.Minute),
		MaxUpload:      16 << 20,

		S3Endpoint:  os.Getenv("MODPANEL_DEV_S3_ENDPOINT"),
		S3AccessKey: os.Getenv("MODPANEL_DEV_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("MODPANEL_DEV_S3_SECRET_KEY"),
		S3Region:    os.Getenv("MODPANEL_DEV_S3_REGION"),
		S3Bucket:    envOr("MODPANEL_DEV_S3_BUCKET", "modpanel-uploads"),
		S3UseSSL:    os.Getenv("MODPANEL_DEV_S3_SSL") == "true",

		Retention:            durationOr("MODPANEL_DEV_RETENTION", 24*time.Hour),
		HousekeepingSchedule: envOr("MODPANEL_DEV_HOUSEKEEPING", "@every 1h"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
