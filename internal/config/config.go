package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"uirecorder/internal/recorder"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Chrome   ChromeConfig
	Recorder RecorderConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Charset  string
}

type JWTConfig struct {
	Secret     string
	ExpireTime int
}

type ChromeConfig struct {
	HeadlessMode bool
	MaxInstances int
	DebugPort    int
}

// RecorderConfig tunes event reduction for recording sessions. Durations are
// in milliseconds.
type RecorderConfig struct {
	SettleDelay       int
	ClickDedupWindow  int
	DistanceGatePx    float64
	ParentLevels      int
	ShadowDepthLimit  int
	TraverseShadowDOM bool
	GateByDistance    bool
	PollInterval      int
}

func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Mode:         getEnv("SERVER_MODE", "debug"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnv("DB_PORT", "3306"),
			Username: getEnv("DB_USERNAME", "root"),
			Password: getEnv("DB_PASSWORD", "root"),
			Database: getEnv("DB_NAME", "uirecorder"),
			Charset:  getEnv("DB_CHARSET", "utf8mb4"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "uirecorder-secret-key"),
			ExpireTime: getEnvAsInt("JWT_EXPIRE_TIME", 24*3600),
		},
		Chrome: ChromeConfig{
			HeadlessMode: getEnvAsBool("CHROME_HEADLESS", false),
			MaxInstances: getEnvAsInt("CHROME_MAX_INSTANCES", 20),
			DebugPort:    getEnvAsInt("CHROME_DEBUG_PORT", 9222),
		},
		Recorder: RecorderConfig{
			SettleDelay:       getEnvAsInt("RECORDER_SETTLE_DELAY_MS", 50),
			ClickDedupWindow:  getEnvAsInt("RECORDER_CLICK_DEDUP_MS", 500),
			DistanceGatePx:    float64(getEnvAsInt("RECORDER_DISTANCE_GATE_PX", 100)),
			ParentLevels:      getEnvAsInt("RECORDER_PARENT_LEVELS", 2),
			ShadowDepthLimit:  getEnvAsInt("RECORDER_SHADOW_DEPTH", 5),
			TraverseShadowDOM: getEnvAsBool("RECORDER_TRAVERSE_SHADOW", true),
			GateByDistance:    getEnvAsBool("RECORDER_GATE_BY_DISTANCE", true),
			PollInterval:      getEnvAsInt("RECORDER_POLL_INTERVAL_MS", 100),
		},
	}

	return config, nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=Local",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.Charset,
	)
}

// ReducerConfig converts the recorder tuning section into the reducer's
// runtime form.
func (c *Config) ReducerConfig() recorder.Config {
	return recorder.Config{
		SettleDelay:         time.Duration(c.Recorder.SettleDelay) * time.Millisecond,
		ClickDedupWindow:    time.Duration(c.Recorder.ClickDedupWindow) * time.Millisecond,
		DistanceGatePx:      c.Recorder.DistanceGatePx,
		WrapperParentLevels: c.Recorder.ParentLevels,
		ShadowDepthLimit:    c.Recorder.ShadowDepthLimit,
		TraverseShadowDOM:   c.Recorder.TraverseShadowDOM,
		GateByDistance:      c.Recorder.GateByDistance,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
