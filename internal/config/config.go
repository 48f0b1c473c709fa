package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Log         LogConfig         `mapstructure:"log"`
	Fulfillment FulfillmentConfig `mapstructure:"fulfillment"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	AccessTokenExpire time.Duration `mapstructure:"access_token_expire"`
	Issuer            string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// FulfillmentConfig 生产排期与库容参数
type FulfillmentConfig struct {
	// 配送日（time.Weekday 数值，默认周二/周四/周六）
	DeliveryWeekdays []int `mapstructure:"delivery_weekdays"`
	// 截单时间：配送日前 CutoffDaysBefore 天的 CutoffHour 点
	CutoffDaysBefore int `mapstructure:"cutoff_days_before"`
	CutoffHour       int `mapstructure:"cutoff_hour"`
	// 单个配送日硬上限与可售比例
	MaxOrdersPerDay   int     `mapstructure:"max_orders_per_day"`
	SoftCapacityRatio float64 `mapstructure:"soft_capacity_ratio"`

	ReservationTTL       time.Duration `mapstructure:"reservation_ttl"`
	ValidatorBufferHours int           `mapstructure:"validator_buffer_hours"`
	SlotCacheTTL         time.Duration `mapstructure:"slot_cache_ttl"`

	// 周产量分配比例，三者之和必须为 1；buffer 部分永不可售
	MixRatio    float64 `mapstructure:"mix_ratio"`
	SingleRatio float64 `mapstructure:"single_ratio"`
	BufferRatio float64 `mapstructure:"buffer_ratio"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 配置文件不存在，使用环境变量与默认值
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Fulfillment.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chefpax")
	v.SetDefault("database.dbname", "chefpax")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	for key, val := range fulfillmentDefaults() {
		v.SetDefault("fulfillment."+key, val)
	}
}

// fulfillmentDefaults 与线下生产流程核对过的默认值，改动需同步运营
func fulfillmentDefaults() map[string]any {
	return map[string]any{
		"delivery_weekdays":      []int{int(time.Tuesday), int(time.Thursday), int(time.Saturday)},
		"cutoff_days_before":     2,
		"cutoff_hour":            18,
		"max_orders_per_day":     40,
		"soft_capacity_ratio":    0.9,
		"reservation_ttl":        24 * time.Hour,
		"validator_buffer_hours": 2,
		"slot_cache_ttl":         5 * time.Minute,
		"mix_ratio":              0.40,
		"single_ratio":           0.50,
		"buffer_ratio":           0.10,
	}
}

// Validate 校验排期参数
func (c FulfillmentConfig) Validate() error {
	if len(c.DeliveryWeekdays) == 0 {
		return fmt.Errorf("fulfillment: delivery_weekdays must not be empty")
	}
	for _, wd := range c.DeliveryWeekdays {
		if wd < 0 || wd > 6 {
			return fmt.Errorf("fulfillment: invalid delivery weekday %d", wd)
		}
	}
	if c.CutoffDaysBefore < 1 {
		// 截单必须早于配送日，留出备货窗口
		return fmt.Errorf("fulfillment: cutoff_days_before must be >= 1, got %d", c.CutoffDaysBefore)
	}
	if sum := c.MixRatio + c.SingleRatio + c.BufferRatio; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("fulfillment: yield split ratios must sum to 1, got %.3f", sum)
	}
	if c.SoftCapacityRatio <= 0 || c.SoftCapacityRatio > 1 {
		return fmt.Errorf("fulfillment: soft_capacity_ratio must be in (0,1], got %.2f", c.SoftCapacityRatio)
	}
	return nil
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")
}
