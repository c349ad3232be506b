package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
	"time"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	LogPath  string `yaml:"log_path" env:"LOG_PATH" env-default:"/var/log/"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		BotName string `yaml:"bot_name" env-default:"OrderFlowBot"`
		AdminId int64  `yaml:"admin_id" env:"TELEGRAM_ADMIN_ID" env-default:"0"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
	} `yaml:"telegram"`
	Session struct {
		Secret      string        `yaml:"secret" env:"SESSION_SECRET" env-default:""`
		TokenTTL    time.Duration `yaml:"token_ttl" env-default:"168h"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" env-default:"24h"`
	} `yaml:"session"`
	Storage struct {
		// mongo, redis or memory
		Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	} `yaml:"storage"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env-default:"orderflow"`
	} `yaml:"mongo"`
	Redis struct {
		Addr      string `yaml:"addr" env-default:"127.0.0.1:6379"`
		Password  string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB        int    `yaml:"db" env-default:"0"`
		KeyPrefix string `yaml:"key_prefix" env-default:"orderflow:snapshot:"`
	} `yaml:"redis"`
	Backend struct {
		BaseURL string        `yaml:"base_url" env:"BACKEND_URL" env-default:"http://127.0.0.1:8080"`
		Timeout time.Duration `yaml:"timeout" env-default:"10s"`
	} `yaml:"backend"`
	AMap struct {
		Key      string        `yaml:"key" env:"AMAP_KEY" env-default:""`
		BaseURL  string        `yaml:"base_url" env-default:"https://restapi.amap.com"`
		CacheTTL time.Duration `yaml:"cache_ttl" env-default:"5m"`
	} `yaml:"amap"`
	Flow struct {
		FreeOrderDelay time.Duration `yaml:"free_order_delay" env-default:"2200ms"`
		SearchDelay    time.Duration `yaml:"search_delay" env-default:"5s"`
	} `yaml:"flow"`
	Metrics struct {
		Enabled bool `yaml:"enabled" env-default:"true"`
	} `yaml:"metrics"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9100"`
	} `yaml:"listen"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}

// LogDir picks the log file directory: the command line value when set, the config otherwise.
func (c *Config) LogDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return c.LogPath
}
