package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the JSON config file looked up in the config directory.
const FileName = "artyplanner.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the plan storage backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Listen          string        `json:"listen" mapstructure:"listen"`
	AllowedOrigins  []string      `json:"allowedOrigins" mapstructure:"allowedOrigins"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" mapstructure:"shutdownTimeout"`
	SessionTTL      time.Duration `json:"sessionTTL" mapstructure:"sessionTTL"`
}

// GridConfig holds the map grid layout
type GridConfig struct {
	Columns      int `json:"columns" mapstructure:"columns"`
	Rows         int `json:"rows" mapstructure:"rows"`
	Subdivisions int `json:"subdivisions" mapstructure:"subdivisions"`
}

// PlannerConfig holds editing behaviour settings
type PlannerConfig struct {
	HistoryLimit   int           `json:"historyLimit" mapstructure:"historyLimit"`
	RemoveRadiusPx float64       `json:"removeRadiusPx" mapstructure:"removeRadiusPx"`
	FlushInterval  time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
}

// InfluxConfig holds usage metrics settings
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	URL        string `json:"url" mapstructure:"url"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file cannot be read; the error is still returned.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("assetsDir", "")

	viper.SetDefault("server.listen", ":3000")
	viper.SetDefault("server.allowedOrigins", []string{})
	viper.SetDefault("server.shutdownTimeout", "5s")
	viper.SetDefault("server.sessionTTL", "2h")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./plans")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./artyplanner.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "artyplanner")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "artyplanner")
	viper.SetDefault("influx.bucket", "planner_usage")
	viper.SetDefault("influx.backupPath", "./logs/influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("grid.columns", 17)
	viper.SetDefault("grid.rows", 15)
	viper.SetDefault("grid.subdivisions", 3)

	viper.SetDefault("planner.historyLimit", 50)
	viper.SetDefault("planner.removeRadiusPx", 30.0)
	viper.SetDefault("planner.flushInterval", "10s")

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetServerConfig returns the HTTP listener settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Listen:          viper.GetString("server.listen"),
		AllowedOrigins:  viper.GetStringSlice("server.allowedOrigins"),
		ShutdownTimeout: viper.GetDuration("server.shutdownTimeout"),
		SessionTTL:      viper.GetDuration("server.sessionTTL"),
	}
}

// GetGridConfig returns the map grid layout.
func GetGridConfig() GridConfig {
	return GridConfig{
		Columns:      viper.GetInt("grid.columns"),
		Rows:         viper.GetInt("grid.rows"),
		Subdivisions: viper.GetInt("grid.subdivisions"),
	}
}

// GetPlannerConfig returns editing behaviour settings.
func GetPlannerConfig() PlannerConfig {
	return PlannerConfig{
		HistoryLimit:   viper.GetInt("planner.historyLimit"),
		RemoveRadiusPx: viper.GetFloat64("planner.removeRadiusPx"),
		FlushInterval:  viper.GetDuration("planner.flushInterval"),
	}
}

// GetInfluxConfig returns usage metrics settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		URL:        viper.GetString("influx.url"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}
