package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/parrotlabs/voiceforge/internal/models"
)

// Config aggregates runtime configuration for the API and supporting services.
type Config struct {
	ListenAddr     string
	MySQLDSN       string
	RequestTimeout time.Duration

	FishAudioAPIKey  string
	FishAudioBaseURL string

	WhopAPIKey            string
	WhopAppID             string
	WhopAPIBaseURL        string
	WhopWebhookSecret     string
	AcceptUnsignedWebhook bool

	// DevUserID enables the static development identity resolver. Left empty
	// in production; never inferred from the runtime environment.
	DevUserID       string
	DevExperienceID string

	SignupBonusCredits int
	Packages           []models.Package

	MaxUploadBytes int64

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
}

// DefaultPackages mirrors the launch catalog: package id -> credits, price in cents.
var DefaultPackages = []models.Package{
	{ID: "pkg_10", Credits: 10, PriceCents: 100},
	{ID: "pkg_25", Credits: 25, PriceCents: 200},
	{ID: "pkg_50", Credits: 50, PriceCents: 350},
	{ID: "pkg_100", Credits: 100, PriceCents: 600},
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	loadEnvFile()

	cfg := Config{
		ListenAddr:            getEnv("LISTEN_ADDR", ":8080"),
		RequestTimeout:        time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		FishAudioBaseURL:      getEnv("FISH_AUDIO_BASE_URL", "https://api.fish.audio"),
		WhopAppID:             getEnv("WHOP_APP_ID", "app_default"),
		WhopAPIBaseURL:        getEnv("WHOP_API_BASE_URL", "https://api.whop.com"),
		AcceptUnsignedWebhook: getBool("WHOP_ACCEPT_UNSIGNED_WEBHOOKS", false),
		DevUserID:             getEnv("DEV_USER_ID", ""),
		DevExperienceID:       getEnv("DEV_EXPERIENCE_ID", "dev_exp_123"),
		SignupBonusCredits:    getInt("SIGNUP_BONUS_CREDITS", 3),
		MaxUploadBytes:        getInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3Region:              os.Getenv("S3_REGION"),
		S3AccessKey:           os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("S3_SECRET_KEY"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:       os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:        getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:              getEnv("S3_PREFIX", "audio"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.FishAudioAPIKey = os.Getenv("FISH_AUDIO_API_KEY")
	cfg.WhopAPIKey = os.Getenv("WHOP_API_KEY")
	cfg.WhopWebhookSecret = os.Getenv("WHOP_WEBHOOK_SECRET")

	packages, err := ParsePackages(os.Getenv("CREDIT_PACKAGES"))
	if err != nil {
		return Config{}, err
	}
	cfg.Packages = packages

	var missing []string
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.FishAudioAPIKey == "" {
		missing = append(missing, "FISH_AUDIO_API_KEY")
	}
	if cfg.WhopAPIKey == "" {
		missing = append(missing, "WHOP_API_KEY")
	}
	if cfg.WhopWebhookSecret == "" && !cfg.AcceptUnsignedWebhook {
		missing = append(missing, "WHOP_WEBHOOK_SECRET")
	}
	if cfg.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if cfg.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if cfg.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if cfg.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// ParsePackages parses the CREDIT_PACKAGES value, a comma separated list of
// id:credits:priceCents triples. An empty value yields the default catalog.
func ParsePackages(raw string) ([]models.Package, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPackages, nil
	}

	var packages []models.Package
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid package entry %q: want id:credits:priceCents", entry)
		}
		credits, err := strconv.Atoi(parts[1])
		if err != nil || credits <= 0 {
			return nil, fmt.Errorf("invalid credit amount in package entry %q", entry)
		}
		price, err := strconv.Atoi(parts[2])
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("invalid price in package entry %q", entry)
		}
		packages = append(packages, models.Package{ID: parts[0], Credits: credits, PriceCents: price})
	}
	if len(packages) == 0 {
		return nil, fmt.Errorf("CREDIT_PACKAGES defined but no valid entries found")
	}
	return packages, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates, filepath.Join("configs", ".env"), ".env")

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		_ = godotenv.Overload(path)
		return
	}
}
