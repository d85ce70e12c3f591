package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 配置
type Config struct {
	Service    ServiceConfig    `yaml:"service" json:"service"`
	Postgres   PostgresConfig   `yaml:"postgres" json:"postgres"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka" json:"kafka"`
	Blockchain BlockchainConfig `yaml:"blockchain" json:"blockchain"`
	Settlement SettlementConfig `yaml:"settlement" json:"settlement"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	Name     string `yaml:"name" json:"name"`
	HTTPPort int    `yaml:"http_port" json:"http_port"`
	GRPCPort int    `yaml:"grpc_port" json:"grpc_port"`
	Env      string `yaml:"env" json:"env"`
	// 为 true 时跳过 AutoMigrate, 由外部迁移工具管理表结构
	SkipMigrate bool `yaml:"skip_migrate" json:"skip_migrate"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port"`
	Database        string `yaml:"database" json:"database"`
	User            string `yaml:"user" json:"user"`
	Password        string `yaml:"password" json:"password"`
	SSLMode         string `yaml:"ssl_mode" json:"ssl_mode"`
	MaxConnections  int    `yaml:"max_connections" json:"max_connections"`
	MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// RedisConfig Redis 配置, 地址为空时使用进程内 nonce 分配
type RedisConfig struct {
	Addresses []string `yaml:"addresses" json:"addresses"`
	Password  string   `yaml:"password" json:"password"`
	DB        int      `yaml:"db" json:"db"`
	PoolSize  int      `yaml:"pool_size" json:"pool_size"`
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool {
	return len(c.Addresses) > 0 && c.Addresses[0] != ""
}

// KafkaConfig Kafka 配置, brokers 为空时不发送事件
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" json:"brokers"`
	ClientID string   `yaml:"client_id" json:"client_id"`
}

// Enabled 是否配置了 Kafka
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Brokers[0] != ""
}

// BlockchainConfig 区块链配置
type BlockchainConfig struct {
	RPCURL        string   `yaml:"rpc_url" json:"rpc_url"`
	BackupRPCURLs []string `yaml:"backup_rpc_urls" json:"backup_rpc_urls"`
	ChainID       int64    `yaml:"chain_id" json:"chain_id"`

	// 中继账户私钥: keys_filename 指向 {"private_keys": [...]} 文件, 或直接内联
	KeysFilename string   `yaml:"keys_filename" json:"keys_filename"`
	PrivateKeys  []string `yaml:"private_keys" json:"-"`

	WhitelistedSenders   []string `yaml:"whitelisted_senders" json:"whitelisted_senders"`
	WhitelistedContracts []string `yaml:"whitelisted_contracts" json:"whitelisted_contracts"`

	// 委托交易 (ERC-2771 forwarder), 地址为空时直接发送
	ForwarderAddress string `yaml:"forwarder_address" json:"forwarder_address"`
	ForwarderName    string `yaml:"forwarder_name" json:"forwarder_name"`
	ForwarderVersion string `yaml:"forwarder_version" json:"forwarder_version"`

	StorageDepositWei     string `yaml:"storage_deposit_wei" json:"storage_deposit_wei"`
	GasLimitNative        uint64 `yaml:"gas_limit_native" json:"gas_limit_native"`
	GasLimitCall          uint64 `yaml:"gas_limit_call" json:"gas_limit_call"`
	ReceiptTimeoutSeconds int    `yaml:"receipt_timeout_seconds" json:"receipt_timeout_seconds"`
	ReceiptPollIntervalMs int    `yaml:"receipt_poll_interval_ms" json:"receipt_poll_interval_ms"`
}

// RPCURLs 主节点与备用节点
func (c BlockchainConfig) RPCURLs() []string {
	urls := make([]string, 0, 1+len(c.BackupRPCURLs))
	if c.RPCURL != "" {
		urls = append(urls, c.RPCURL)
	}
	for _, u := range c.BackupRPCURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ReceiptTimeout 等待回执的超时
func (c BlockchainConfig) ReceiptTimeout() time.Duration {
	return time.Duration(c.ReceiptTimeoutSeconds) * time.Second
}

// ReceiptPollInterval 回执轮询间隔
func (c BlockchainConfig) ReceiptPollInterval() time.Duration {
	return time.Duration(c.ReceiptPollIntervalMs) * time.Millisecond
}

// SettlementConfig 结算配置
type SettlementConfig struct {
	MaxRetryCount int `yaml:"max_retry_count" json:"max_retry_count"`
	RetryDelayMs  int `yaml:"retry_delay_ms" json:"retry_delay_ms"`
}

// RetryDelay 重试间隔
func (c SettlementConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Timeout 一次结算的上限, 每次尝试最多等待注册与转账两张回执
func (c SettlementConfig) Timeout(receiptTimeout time.Duration) time.Duration {
	return time.Duration(c.MaxRetryCount) * (c.RetryDelay() + 2*receiptTimeout)
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 从 YAML 内容解析配置
func Parse(data []byte) (*Config, error) {
	content := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars 展开环境变量 ${VAR:default}
func expandEnvVars(s string) string {
	result := s
	offset := 0
	for {
		start := strings.Index(result[offset:], "${")
		if start == -1 {
			break
		}
		start += offset
		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start

		expr := result[start+2 : end]
		parts := strings.SplitN(expr, ":", 2)
		varName := parts[0]
		defaultVal := ""
		if len(parts) > 1 {
			defaultVal = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			value = defaultVal
		}

		result = result[:start] + value + result[end+1:]
		// 替换值中的 "${" 不再展开
		offset = start + len(value)
	}
	return result
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "ludium-world-payment"
	}
	if cfg.Service.HTTPPort == 0 {
		cfg.Service.HTTPPort = 8090
	}
	if cfg.Service.GRPCPort == 0 {
		cfg.Service.GRPCPort = 50070
	}
	if cfg.Service.Env == "" {
		cfg.Service.Env = "dev"
	}

	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConnections == 0 {
		cfg.Postgres.MaxConnections = 50
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 3600
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 50
	}

	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = cfg.Service.Name
	}

	if cfg.Blockchain.ChainID == 0 {
		cfg.Blockchain.ChainID = 31337 // 本地开发
	}
	if cfg.Blockchain.ForwarderName == "" {
		cfg.Blockchain.ForwarderName = "MinimalForwarder"
	}
	if cfg.Blockchain.ForwarderVersion == "" {
		cfg.Blockchain.ForwarderVersion = "0.0.1"
	}
	if cfg.Blockchain.StorageDepositWei == "" {
		cfg.Blockchain.StorageDepositWei = "0"
	}
	if cfg.Blockchain.GasLimitNative == 0 {
		cfg.Blockchain.GasLimitNative = 21000
	}
	if cfg.Blockchain.GasLimitCall == 0 {
		cfg.Blockchain.GasLimitCall = 200000
	}
	if cfg.Blockchain.ReceiptTimeoutSeconds == 0 {
		cfg.Blockchain.ReceiptTimeoutSeconds = 60
	}
	if cfg.Blockchain.ReceiptPollIntervalMs == 0 {
		cfg.Blockchain.ReceiptPollIntervalMs = 1000
	}

	if cfg.Settlement.MaxRetryCount == 0 {
		cfg.Settlement.MaxRetryCount = 10
	}
	if cfg.Settlement.RetryDelayMs == 0 {
		cfg.Settlement.RetryDelayMs = 1000
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
