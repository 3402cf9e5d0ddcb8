package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port string
	HTTP HTTPConfig

	StoreDriver string
	DB          DBConfig
	Mongo       MongoConfig
	RedisAddr   string

	KafkaBroker string
	KafkaTopic  string

	RequireStudent   bool
	BatchConcurrency int

	RateLimitRPS   float64
	RateLimitBurst int
	// Attendance writes get their own bucket: a save-all sends one request per student back to back.
	AttendanceWriteRPS   float64
	AttendanceWriteBurst int

	OutboxPollInterval time.Duration
}

type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SSLMode    string
	MaxRetries int
}

type MongoConfig struct {
	URI      string
	Database string
}

// Load reads .env (when present) and the process environment on top of defaults.
func Load() Config {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("port", "3000")
	v.SetDefault("http_read_timeout", 5*time.Second)
	v.SetDefault("http_write_timeout", 10*time.Second)
	v.SetDefault("http_idle_timeout", 60*time.Second)
	v.SetDefault("http_shutdown_timeout", 10*time.Second)
	v.SetDefault("store_driver", DriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "attendance")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_retries", 5)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db", "attendance")
	v.SetDefault("redis_addr", "")
	v.SetDefault("kafka_broker", "")
	v.SetDefault("kafka_topic", "school.attendance.v1")
	v.SetDefault("attendance_require_student", false)
	v.SetDefault("batch_concurrency", 4)
	v.SetDefault("rate_limit_rps", 20.0)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("attendance_write_rps", 200.0)
	v.SetDefault("attendance_write_burst", 1000)
	v.SetDefault("outbox_poll_interval", 3*time.Second)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	driver := strings.ToLower(strings.TrimSpace(v.GetString("store_driver")))
	if driver != DriverMongo {
		driver = DriverPostgres
	}

	return Config{
		Port: v.GetString("port"),
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http_read_timeout"),
			WriteTimeout:    v.GetDuration("http_write_timeout"),
			IdleTimeout:     v.GetDuration("http_idle_timeout"),
			ShutdownTimeout: v.GetDuration("http_shutdown_timeout"),
		},
		StoreDriver: driver,
		DB: DBConfig{
			Host:       v.GetString("db_host"),
			User:       v.GetString("db_user"),
			Password:   v.GetString("db_password"),
			Name:       v.GetString("db_name"),
			Port:       v.GetString("db_port"),
			SSLMode:    v.GetString("db_sslmode"),
			MaxRetries: v.GetInt("db_max_retries"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo_uri"),
			Database: v.GetString("mongo_db"),
		},
		RedisAddr:            v.GetString("redis_addr"),
		KafkaBroker:          v.GetString("kafka_broker"),
		KafkaTopic:           v.GetString("kafka_topic"),
		RequireStudent:       v.GetBool("attendance_require_student"),
		BatchConcurrency:     v.GetInt("batch_concurrency"),
		RateLimitRPS:         v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:       v.GetInt("rate_limit_burst"),
		AttendanceWriteRPS:   v.GetFloat64("attendance_write_rps"),
		AttendanceWriteBurst: v.GetInt("attendance_write_burst"),
		OutboxPollInterval:   v.GetDuration("outbox_poll_interval"),
	}
}

// Hostname is used as the kafka client id so brokers can tell instances apart.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "go-attendance"
	}
	return h
}
