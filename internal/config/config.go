package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ovenlab/booking/internal/repository"
)

// Booking は予約エンジンのポリシー設定です
type Booking struct {
	// ユーザーが同時に持てる未終了予約の上限
	MaxActiveBookings int
	// 1件の予約の最大時間
	MaxDuration time.Duration
	// 作成後に所有者が自由に編集・キャンセルできる猶予時間
	EditGracePeriod time.Duration
	// メンテナンス中のオーブンへの新規予約を拒否するか
	BlockMaintenanceOvens bool
	// 上限カウントを稼働中オーブンの予約に限定するか
	QuotaActiveOvensOnly bool
	// クリーンアップバッチで終了済み予約を保持する日数
	RetentionDays int
}

type Config struct {
	DB      *repository.DBConfig
	Booking Booking
	SFN     struct {
		TaskToken string
	}
	EnableTracing bool
}

// LoadConfig は設定を読み込みます
func LoadConfig(taskToken string) (*Config, error) {
	cfg := &Config{
		DB: &repository.DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvAsIntOrDefault("DB_PORT", 5432),
			UserName: getEnvOrDefault("DB_USERNAME", "ovenbook"),
			Password: getEnvOrDefault("DB_PASSWORD", "password"),
			DBName:   getEnvOrDefault("DB_NAME", "ovenbook"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Booking: Booking{
			MaxActiveBookings:     getEnvAsIntOrDefault("BOOKING_MAX_ACTIVE", 2),
			MaxDuration:           time.Duration(getEnvAsIntOrDefault("BOOKING_MAX_DURATION_HOURS", 7*24)) * time.Hour,
			EditGracePeriod:       time.Duration(getEnvAsIntOrDefault("BOOKING_EDIT_GRACE_MS", 3600000)) * time.Millisecond,
			BlockMaintenanceOvens: getEnvAsBoolOrDefault("BOOKING_BLOCK_MAINTENANCE", false),
			QuotaActiveOvensOnly:  getEnvAsBoolOrDefault("BOOKING_QUOTA_ACTIVE_OVENS_ONLY", false),
			RetentionDays:         getEnvAsIntOrDefault("BOOKING_RETENTION_DAYS", 90),
		},
		SFN: struct {
			TaskToken string
		}{
			TaskToken: taskToken,
		},
		EnableTracing: false,
	}

	// 環境変数[OVENBOOK_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("OVENBOOK_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Printf("Environment variable %s is not set, using default value", key)
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}
