package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	// Empty values count as unset.
	for _, key := range []string{"PORT", "WITHDRAWAL_MINIMUM", "PLATFORM_FEE_DEFAULT", "OTP_TTL", "PIN_MAX_ATTEMPTS", "GATEWAY_TIMEOUT", "RECONCILE_SCHEDULE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100.0, cfg.MinWithdrawal)
	assert.Equal(t, 10.0, cfg.DefaultPlatformFee)
	assert.Equal(t, 90*time.Second, cfg.OTPTTL)
	assert.Equal(t, 3, cfg.PinMaxAttempts)
	assert.Equal(t, 15*time.Second, cfg.Flutterwave.Timeout)
	assert.Equal(t, "*/10 * * * *", cfg.ReconcileSchedule)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WITHDRAWAL_MINIMUM", "250")
	t.Setenv("OTP_TTL", "60s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("FLUTTERWAVE_BASE_URL", "https://sandbox.example.com/")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "settlement")

	cfg := Load()

	assert.Equal(t, 250.0, cfg.MinWithdrawal)
	assert.Equal(t, 60*time.Second, cfg.OTPTTL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://sandbox.example.com", cfg.Flutterwave.BaseURL)
	assert.Contains(t, cfg.DB.DSN(), "root:@tcp(127.0.0.1:3306)/settlement")
}
