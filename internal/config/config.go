package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type API struct {
	BaseURL string        `yaml:"API_BASE_URL" env:"API_BASE_URL" env-default:"http://localhost:8080/api/v1"`
	Timeout time.Duration `yaml:"API_TIMEOUT" env:"API_TIMEOUT" env-default:"10s"`
}

// LocalStore selects the substrate holding the guest cart and the persisted
// credential: a per-user directory of JSON files, or a shared redis instance
// for kiosk deployments.
type LocalStore struct {
	Backend string `yaml:"STORE_BACKEND" env:"STORE_BACKEND" env-default:"file"`
	Dir     string `yaml:"STORE_DIR" env:"STORE_DIR" env-default:".phonecart"`
	Watch   bool   `yaml:"STORE_WATCH" env:"STORE_WATCH" env-default:"true"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost:6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER" env-default:""`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

type Tracing struct {
	OTLPEndpoint string `yaml:"OTLP_ENDPOINT" env:"OTLP_ENDPOINT" env-default:""`
}

type Config struct {
	Env          string       `yaml:"env" env:"ENV" env-default:"local"`
	API          API          `yaml:"api"`
	LocalStore   LocalStore   `yaml:"local_store"`
	RedisConnect RedisConnect `yaml:"redis"`
	Tracing      Tracing      `yaml:"tracing"`
}

// MustLoad reads configuration from the file named by CONFIG_PATH when set,
// otherwise from the environment alone. A CLI has to start without a config
// file, so only a set-but-unreadable path is fatal.
func MustLoad() *Config {

	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")

	if configPath != "" {

		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Fatalf("config file does not exist: %s", configPath)
		}

		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("can not read config file: %s", err.Error())
		}

		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("can not read config from environment: %s", err.Error())
	}

	return &cfg
}
