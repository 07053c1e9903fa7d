// Package config reads runtime configuration from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// EnvConfig 环境变量配置
type EnvConfig struct {
	// Cache file shared with other implementations of the same design.
	CachePath string
	// Lock marker recording the PID of an in-flight refresh.
	LockPath string
	// Cache freshness window in seconds.
	TTLSeconds int
	// Upstream fetch timeout in seconds.
	FetchTimeoutSeconds int
	// Usage endpoint override; empty means the built-in default.
	UsageURL string
	// Claude credentials file holding the OAuth token.
	CredentialsPath string
	// Port for the serve subcommand.
	Port int
	// 日志文件相关配置
	LogDir        string
	LogFile       string
	LogMaxSize    int  // 单个日志文件最大大小 (MB)
	LogMaxBackups int  // 保留的旧日志文件最大数量
	LogMaxAge     int  // 保留的旧日志文件最大天数
	LogCompress   bool // 是否压缩旧日志文件
	LogToConsole  bool // 是否同时输出到 stderr
}

// NewEnvConfig 创建环境配置
func NewEnvConfig() *EnvConfig {
	home, _ := os.UserHomeDir()
	claudeDir := filepath.Join(home, ".claude")

	cachePath := getEnv("CC_USAGE_CACHE_PATH", filepath.Join(claudeDir, "usage-cache.json"))

	return &EnvConfig{
		CachePath:           cachePath,
		LockPath:            getEnv("CC_USAGE_LOCK_PATH", cachePath+".lock"),
		TTLSeconds:          getEnvAsInt("CC_USAGE_TTL", 60),
		FetchTimeoutSeconds: getEnvAsInt("CC_USAGE_FETCH_TIMEOUT", 20),
		UsageURL:            getEnv("CC_USAGE_URL", ""),
		CredentialsPath:     getEnv("CLAUDE_CREDENTIALS_PATH", filepath.Join(claudeDir, ".credentials.json")),
		Port:                getEnvAsInt("CC_USAGE_PORT", 8787),
		// 日志文件配置（stdout 属于状态栏输出，日志默认只进文件）
		LogDir:        getEnv("LOG_DIR", filepath.Join(claudeDir, "logs")),
		LogFile:       getEnv("LOG_FILE", "cc-usageline.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 10),  // 默认 10MB
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 14), // 默认保留 14 天
		LogCompress:   getEnv("LOG_COMPRESS", "true") != "false",
		LogToConsole:  getEnv("LOG_TO_CONSOLE", "false") == "true",
	}
}

// TTL 缓存有效期
func (c *EnvConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// FetchTimeout 上游请求超时
func (c *EnvConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 获取环境变量并转换为整数
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
