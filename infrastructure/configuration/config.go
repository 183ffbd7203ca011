package configuration

import (
	"fmt"
	"os"
	"strconv"

	"sns-crosspost/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	Upload      Upload      `json:"upload"`
	RedisClient RedisClient `json:"redisClient"`
	Platforms   Platforms   `json:"platforms"`
}

type App struct {
	Port int `json:"port"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Upload controls where originals and renditions land and how uploads are
// validated. MemoryBudget is the resize memory ceiling in bytes; 0 disables
// the capacity check.
type Upload struct {
	Dir          string `json:"dir"`
	BaseURL      string `json:"baseURL"`
	MaxFileSize  int64  `json:"maxFileSize"`
	MemoryBudget int64  `json:"memoryBudget"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Platforms struct {
	Instagram Instagram `json:"instagram"`
	Twitter   Twitter   `json:"twitter"`
	Facebook  Facebook  `json:"facebook"`
}

type Instagram struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	PollInterval int    `json:"pollInterval"` // seconds between container status polls
	PollAttempts int    `json:"pollAttempts"`
}

type Twitter struct {
	APIKey            string `json:"apiKey"`
	APISecret         string `json:"apiSecret"`
	AccessToken       string `json:"accessToken"`
	AccessTokenSecret string `json:"accessTokenSecret"`
}

type Facebook struct {
	PageID      string `json:"pageId"`
	AccessToken string `json:"accessToken"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initUpload(&C)
	initPlatforms(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = "5432"
	}
}

func initApp(C *Config) {
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10002
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10002
	}
}

func initUpload(C *Config) {
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		C.Upload.Dir = v
	}
	if C.Upload.Dir == "" {
		C.Upload.Dir = "uploads"
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		C.Upload.BaseURL = v
	}
	if C.Upload.MaxFileSize == 0 {
		C.Upload.MaxFileSize = 10 * 1024 * 1024
	}
	if v := os.Getenv("RESIZE_MEMORY_BUDGET"); v != "" {
		if b, err := strconv.ParseInt(v, 10, 64); err == nil {
			C.Upload.MemoryBudget = b
		}
	}
}

func initPlatforms(C *Config) {
	ig := &C.Platforms.Instagram
	if v := os.Getenv("INSTAGRAM_USER_ID"); v != "" {
		ig.UserID = v
	}
	if v := os.Getenv("INSTAGRAM_ACCESS_TOKEN"); v != "" {
		ig.AccessToken = v
	}
	if ig.PollInterval == 0 {
		ig.PollInterval = 3
	}
	if ig.PollAttempts == 0 {
		ig.PollAttempts = 10
	}

	tw := &C.Platforms.Twitter
	if v := os.Getenv("TWITTER_API_KEY"); v != "" {
		tw.APIKey = v
	}
	if v := os.Getenv("TWITTER_API_SECRET"); v != "" {
		tw.APISecret = v
	}
	if v := os.Getenv("TWITTER_ACCESS_TOKEN"); v != "" {
		tw.AccessToken = v
	}
	if v := os.Getenv("TWITTER_ACCESS_TOKEN_SECRET"); v != "" {
		tw.AccessTokenSecret = v
	}

	fb := &C.Platforms.Facebook
	if v := os.Getenv("FACEBOOK_PAGE_ID"); v != "" {
		fb.PageID = v
	}
	if v := os.Getenv("FACEBOOK_ACCESS_TOKEN"); v != "" {
		fb.AccessToken = v
	}
}
