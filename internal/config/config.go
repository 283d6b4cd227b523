package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName  string
	Env      string
	GinMode  string
	LogLevel string
	Port     string
	GRPCPort string

	DB    DatabaseConfig
	Redis RedisConfig

	Flutterwave FlutterwaveConfig
	Kafka       KafkaConfig
	SMTP        SMTPConfig

	JWTSecret string

	ListingServiceURL  string
	IdentityServiceURL string
	ServiceToken       string

	MinWithdrawal         float64
	DefaultPlatformFee    float64
	OTPLength             int
	OTPTTL                time.Duration
	PinMaxAttempts        int
	PinLockDuration       time.Duration
	PinResetTTL           time.Duration
	BcryptCost            int
	ReconcileSchedule     string
	StalePaymentAfter     time.Duration
	StaleWithdrawalAfter  time.Duration
	ReconcileBatchSize    int
	NotificationQueueName string
}

type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// DSN builds the MySQL DSN. Times are stored in UTC.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FlutterwaveConfig struct {
	BaseURL     string
	SecretKey   string
	SecretHash  string
	CallbackURL string
	Timeout     time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	ClientID string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// LoadEnv loads .env from the working directory, falling back to the parent.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return
		}
		log.Printf("No .env file found at %s", p)
	}
	log.Println("Using system environment variables")
}

// Load reads configuration from the environment. Keys are the upper-cased
// snake form of the viper keys, e.g. FLUTTERWAVE_SECRET_KEY.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		AppName:  v.GetString("app.name"),
		Env:      v.GetString("app.env"),
		GinMode:  v.GetString("gin.mode"),
		LogLevel: v.GetString("log.level"),
		Port:     v.GetString("port"),
		GRPCPort: v.GetString("grpc.port"),
		DB: DatabaseConfig{
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			Name:     v.GetString("db.name"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.url"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Flutterwave: FlutterwaveConfig{
			BaseURL:     strings.TrimRight(v.GetString("flutterwave.base.url"), "/"),
			SecretKey:   v.GetString("flutterwave.secret.key"),
			SecretHash:  v.GetString("flutterwave.secret.hash"),
			CallbackURL: v.GetString("payment.callback.url"),
			Timeout:     v.GetDuration("gateway.timeout"),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(v.GetString("kafka.brokers")),
			ClientID: v.GetString("kafka.client.id"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetString("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
		},
		JWTSecret:             v.GetString("jwt.secret"),
		ListingServiceURL:     strings.TrimRight(v.GetString("listing.service.url"), "/"),
		IdentityServiceURL:    strings.TrimRight(v.GetString("identity.service.url"), "/"),
		ServiceToken:          v.GetString("service.token"),
		MinWithdrawal:         v.GetFloat64("withdrawal.minimum"),
		DefaultPlatformFee:    v.GetFloat64("platform.fee.default"),
		OTPLength:             v.GetInt("otp.length"),
		OTPTTL:                v.GetDuration("otp.ttl"),
		PinMaxAttempts:        v.GetInt("pin.max.attempts"),
		PinLockDuration:       v.GetDuration("pin.lock.duration"),
		PinResetTTL:           v.GetDuration("pin.reset.ttl"),
		BcryptCost:            v.GetInt("bcrypt.cost"),
		ReconcileSchedule:     v.GetString("reconcile.schedule"),
		StalePaymentAfter:     v.GetDuration("reconcile.stale.payment"),
		StaleWithdrawalAfter:  v.GetDuration("reconcile.stale.withdrawal"),
		ReconcileBatchSize:    v.GetInt("reconcile.batch.size"),
		NotificationQueueName: v.GetString("notification.queue"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "settlement-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("port", "8080")
	v.SetDefault("grpc.port", "50051")
	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", "3306")
	v.SetDefault("redis.url", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("flutterwave.base.url", "https://api.flutterwave.com")
	v.SetDefault("gateway.timeout", 15*time.Second)
	v.SetDefault("kafka.client.id", "settlement-service")
	v.SetDefault("withdrawal.minimum", 100)
	v.SetDefault("platform.fee.default", 10)
	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl", 90*time.Second)
	v.SetDefault("pin.max.attempts", 3)
	v.SetDefault("pin.lock.duration", 30*time.Minute)
	v.SetDefault("pin.reset.ttl", 15*time.Minute)
	v.SetDefault("bcrypt.cost", 10)
	v.SetDefault("reconcile.schedule", "*/10 * * * *")
	v.SetDefault("reconcile.stale.payment", 15*time.Minute)
	v.SetDefault("reconcile.stale.withdrawal", 30*time.Minute)
	v.SetDefault("reconcile.batch.size", 100)
	v.SetDefault("notification.queue", "emails")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
