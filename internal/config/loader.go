// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

const defaultConfigDir = "configs"

// envPattern 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 从默认目录加载配置文件
func Load() (*Config, error) {
	return LoadFrom(defaultConfigDir)
}

// LoadFrom 从指定目录加载配置
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置（缺失时完全依赖默认值）
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，后续文件走 MergeConfig
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// Validate 校验无法在运行期自愈的配置
func (c *Config) Validate() error {
	inf := c.Inference
	if inf.MaxWindow <= 0 {
		return fmt.Errorf("inference.max_window must be > 0, got %d", inf.MaxWindow)
	}
	if inf.Overlap < 0 {
		return fmt.Errorf("inference.overlap must be >= 0, got %d", inf.Overlap)
	}
	// 窗口步长 = max_window - overlap，必须为正，否则切窗无法推进
	if inf.Overlap >= inf.MaxWindow {
		return fmt.Errorf("inference.overlap (%d) must be smaller than inference.max_window (%d)", inf.Overlap, inf.MaxWindow)
	}
	if inf.Concurrency <= 0 {
		return fmt.Errorf("inference.concurrency must be > 0, got %d", inf.Concurrency)
	}
	if inf.MaxRetries < 0 {
		return fmt.Errorf("inference.max_retries must be >= 0, got %d", inf.MaxRetries)
	}
	if c.LLM.DefaultProvider != "" {
		if _, ok := c.LLM.Providers[c.LLM.DefaultProvider]; !ok {
			return fmt.Errorf("llm.default_provider %q has no entry in llm.providers", c.LLM.DefaultProvider)
		}
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "gutenberg-analysis-api")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值，分析请求耗时可达分钟级
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "10m")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")

	// Redis 默认值
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")

	// LLM 默认值
	v.SetDefault("llm.default_provider", "local")
	v.SetDefault("llm.providers.local.base_url", "http://localhost:8000/v1")
	v.SetDefault("llm.providers.local.model", "gpt2")
	v.SetDefault("llm.providers.local.timeout", "120s")

	// 分块推理默认值
	v.SetDefault("inference.tokenizer_encoding", "r50k_base")
	v.SetDefault("inference.max_window", 512)
	v.SetDefault("inference.overlap", 50)
	v.SetDefault("inference.max_new_tokens", 150)
	v.SetDefault("inference.temperature", 0.7)
	v.SetDefault("inference.top_p", 0.9)
	v.SetDefault("inference.concurrency", 1)
	v.SetDefault("inference.max_retries", 0)
	v.SetDefault("inference.retry_backoff", "500ms")

	// 图书内容源默认值
	v.SetDefault("books.base_url", "https://www.gutenberg.org")
	v.SetDefault("books.timeout", "30s")
	v.SetDefault("books.max_bytes", 16<<20)
	v.SetDefault("books.cache_ttl", "24h")

	// 分析默认值
	v.SetDefault("analysis.result_ttl", "24h")
	v.SetDefault("analysis.job_ttl", "72h")
	v.SetDefault("analysis.task_timeout", "30m")

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "1m")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值：全局 15 次/分钟
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests", 15)
	v.SetDefault("security.rate_limit.window", "1m")
}
