package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// DraftServiceConfig holds the content-generation service settings
type DraftServiceConfig struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout"`
}

// CRMConfig holds the CRM API settings used by the sync sidecar
type CRMConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"`
}

type Config struct {
	Environment    string             `json:"environment"`
	ServerPort     string             `json:"server_port"`
	EncryptionKey  string             `json:"-"`
	SentryDSN      string             `json:"-"`
	DBHost         string             `json:"db_host"`
	DBPort         string             `json:"db_port"`
	DBUser         string             `json:"db_user"`
	DBPassword     string             `json:"-"`
	DBName         string             `json:"db_name"`
	DBSSLMode      string             `json:"db_ssl_mode"`
	DBMaxIdleConns int                `json:"db_max_idle_conns"`
	DBMaxOpenConns int                `json:"db_max_open_conns"`
	Redis          RedisConfig        `json:"redis"`
	DraftService   DraftServiceConfig `json:"draft_service"`
	CRM            CRMConfig          `json:"crm"`
	SnapshotTTL    time.Duration      `json:"snapshot_ttl"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "myra_navigator"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		DraftService: DraftServiceConfig{
			BaseURL: getEnv("DRAFT_SERVICE_URL", ""),
			APIKey:  getEnv("DRAFT_SERVICE_API_KEY", ""),
			Timeout: time.Duration(getEnvAsInt("DRAFT_SERVICE_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		CRM: CRMConfig{
			BaseURL: getEnv("CRM_API_URL", ""),
			APIKey:  getEnv("CRM_API_KEY", ""),
		},
		SnapshotTTL: time.Duration(getEnvAsInt("SNAPSHOT_TTL_MINUTES", 30)) * time.Minute,
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if AppConfig.Environment == "production" {
		if AppConfig.DraftService.BaseURL == "" {
			return fmt.Errorf("DRAFT_SERVICE_URL is required in production")
		}
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := MigrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// MigrateDB runs the schema migration for all engine-owned tables
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.OutreachSequence{},
		&models.SequenceEnrollment{},
		&models.StepLog{},
	)
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Redis enabled: %t, Draft service configured: %t, CRM configured: %t",
		AppConfig.Redis.Enabled,
		AppConfig.DraftService.BaseURL != "",
		AppConfig.CRM.BaseURL != "")
}
