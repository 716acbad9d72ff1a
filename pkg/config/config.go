package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	DB           DBConfig           `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Escrow       EscrowConfig       `mapstructure:"escrow"`
	Distribution DistributionConfig `mapstructure:"distribution"`
	Payout       PayoutConfig       `mapstructure:"payout"`
	Tax          TaxConfig          `mapstructure:"tax"`
	Settlement   SettlementConfig   `mapstructure:"settlement"`
	Worker       WorkerConfig       `mapstructure:"worker"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type EscrowConfig struct {
	AutoReleaseAfter time.Duration `mapstructure:"auto_release_after"`
	SweepSchedule    string        `mapstructure:"sweep_schedule"` // cron spec
	SweepBatchSize   int           `mapstructure:"sweep_batch_size"`
}

type DistributionConfig struct {
	CommissionRate   string `mapstructure:"commission_rate"` // decimal string, e.g. "0.15"
	RetentionRate    string `mapstructure:"retention_rate"`  // decimal string, e.g. "0.10"
	BonusPolicy      string `mapstructure:"bonus_policy"`    // "equal" or "weighted"
	BonusSource      string `mapstructure:"bonus_source"`    // "retention" or "commission"
	RequiresApproval bool   `mapstructure:"requires_approval"`
}

type PayoutConfig struct {
	MinAmount         string        `mapstructure:"min_amount"`
	SettlementTimeout time.Duration `mapstructure:"settlement_timeout"`
}

type TaxConfig struct {
	TDSRate string `mapstructure:"tds_rate"` // e.g. "10" (percent)
	GSTRate string `mapstructure:"gst_rate"` // e.g. "18" (percent)
}

type SettlementConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	MerchantID string `mapstructure:"merchant_id"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "ledger_user")
	viper.SetDefault("db.password", "ledger_password")
	viper.SetDefault("db.name", "ledger_db")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("escrow.auto_release_after", "168h") // 7 days
	viper.SetDefault("escrow.sweep_schedule", "@every 5m")
	viper.SetDefault("escrow.sweep_batch_size", 200)

	viper.SetDefault("distribution.commission_rate", "0.15")
	viper.SetDefault("distribution.retention_rate", "0.10")
	viper.SetDefault("distribution.bonus_policy", "weighted")
	viper.SetDefault("distribution.bonus_source", "retention")
	viper.SetDefault("distribution.requires_approval", true)

	viper.SetDefault("payout.min_amount", "100")
	viper.SetDefault("payout.settlement_timeout", "30s")

	viper.SetDefault("tax.tds_rate", "10")
	viper.SetDefault("tax.gst_rate", "18")

	viper.SetDefault("settlement.base_url", "https://rail.sandbox.example.com")

	viper.SetDefault("worker.concurrency", 10)
}
