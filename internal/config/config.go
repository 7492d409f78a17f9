package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath используется, если переменная окружения CONFIG_PATH не задана
const DefaultPath = "config/config.yaml"

// Config определяет структуру конфигурации всего приложения целиком
type Config struct {
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Kafka      `yaml:"kafka"`
	Logger     `yaml:"logger"`
	Cache      `yaml:"cache"`
	Stats      `yaml:"stats"`
}

// HTTPServer содержит конфигурацию для HTTP-сервера
type HTTPServer struct {
	Port    string        `yaml:"port" validate:"required"`
	Timeout time.Duration `yaml:"timeout"`
}

// Postgres содержит конфигурацию для подключения к базе данных
type Postgres struct {
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Host     string `yaml:"host" validate:"required"`
	Port     string `yaml:"port" validate:"required"`
	DBName   string `yaml:"db_name" validate:"required"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns" validate:"gte=0"`
}

// Kafka содержит конфигурацию канала операторских команд
// (полный сброс кэша, принудительное обновление)
type Kafka struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// Logger содержит конфигурацию для логгера
type Logger struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Cache описывает хранилище закэшированных метрик
type Cache struct {
	Driver string `yaml:"driver" validate:"oneof=memory redis"`
	Prefix string `yaml:"prefix"`
	Redis  Redis  `yaml:"redis"`
}

// Redis содержит параметры подключения к redis
type Redis struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"gte=0"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// Stats содержит параметры расчёта и кэширования метрик дашборда
type Stats struct {
	QueryTimeout        time.Duration `yaml:"query_timeout" validate:"gt=0"`
	DefaultTTL          time.Duration `yaml:"default_ttl" validate:"gt=0"`
	AdministrationTTL   time.Duration `yaml:"administration_ttl" validate:"gt=0"`
	UserDeliveryTTL     time.Duration `yaml:"user_delivery_ttl" validate:"gt=0"`
	TrendTTL            time.Duration `yaml:"trend_ttl" validate:"gt=0"`
	AdministrationLimit int           `yaml:"administration_limit" validate:"gt=0"`
	ProductsLimit       int           `yaml:"products_limit" validate:"gt=0"`
	TrendDays           int           `yaml:"trend_days" validate:"gt=0"`
	// IANA-зона, в которой считаются календарные дни и часы; её же понимает postgres
	TimeZone            string        `yaml:"time_zone" validate:"timezone"`
	DefaultDepartments  []string      `yaml:"default_departments" validate:"min=1,dive,required"`
	// словарь ролей и статусов, ошибочно попадающих в поле administration
	ExcludeTerms    []string `yaml:"exclude_terms"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

var validate = validator.New()

// MustLoad загружает конфигурацию из файла по указанному пути
// в случае ошибки программа завершается с фатальной ошибкой
func MustLoad(configPath string) *Config {
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}

	return cfg
}

// PathFromEnv возвращает путь к конфигу из CONFIG_PATH или путь по умолчанию
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load читает, дополняет значениями по умолчанию и валидирует конфигурацию
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(file)
}

// Parse разбирает YAML, применяет значения по умолчанию и валидирует результат
func Parse(data []byte) (*Config, error) {
	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTPServer.Port == "" {
		c.HTTPServer.Port = ":8081"
	}
	if c.HTTPServer.Timeout == 0 {
		c.HTTPServer.Timeout = 10 * time.Second
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "dashboard-commands"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "order-stats-service"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "INFO"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "dashboard:"
	}
	if c.Cache.Redis.OpTimeout == 0 {
		c.Cache.Redis.OpTimeout = 150 * time.Millisecond
	}

	s := &c.Stats
	if s.QueryTimeout == 0 {
		s.QueryTimeout = 5 * time.Second
	}
	if s.DefaultTTL == 0 {
		s.DefaultTTL = 30 * time.Minute
	}
	if s.AdministrationTTL == 0 {
		s.AdministrationTTL = 15 * time.Minute
	}
	if s.UserDeliveryTTL == 0 {
		s.UserDeliveryTTL = 60 * time.Minute
	}
	if s.TrendTTL == 0 {
		s.TrendTTL = 24 * time.Hour
	}
	if s.AdministrationLimit == 0 {
		s.AdministrationLimit = 50
	}
	if s.ProductsLimit == 0 {
		s.ProductsLimit = 15
	}
	if s.TrendDays == 0 {
		s.TrendDays = 7
	}
	if s.TimeZone == "" {
		s.TimeZone = "UTC"
	}
	if len(s.DefaultDepartments) == 0 {
		s.DefaultDepartments = DefaultDepartments()
	}
	// nil означает "не задано", пустой список в YAML отключает фильтр
	if s.ExcludeTerms == nil {
		s.ExcludeTerms = DefaultExcludeTerms()
	}
	if s.ExcludePatterns == nil {
		s.ExcludePatterns = DefaultExcludePatterns()
	}
}

// DefaultDepartments возвращает список подразделений, который показывается,
// когда реальных данных по администрациям нет
func DefaultDepartments() []string {
	return []string{
		"Direction Générale",
		"Direction des Ressources Humaines",
		"Direction Financière",
		"Direction Technique",
		"Direction Commerciale",
	}
}

// DefaultExcludeTerms возвращает роли и статусы (en/fr), которые не могут быть
// названием подразделения
func DefaultExcludeTerms() []string {
	return []string{
		"user", "pending", "approved", "rejected", "delivered",
		"utilisateur", "en attente", "approuvé", "approuve", "rejeté", "rejete", "livré",
	}
}

// DefaultExcludePatterns возвращает шаблоны идентификаторов:
// чисто числовые значения и "заглавная буква + цифры"
func DefaultExcludePatterns() []string {
	return []string{`^\d+$`, `^[A-Z]\d+$`}
}
