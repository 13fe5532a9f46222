// config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Log           LogConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	EntityService EntityServiceConfiguration
	Cache         CacheConfiguration
	Engine        EngineConfiguration
	Auth          AuthConfiguration
	RateLimit     RateLimitConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port            string
	ShutdownTimeout time.Duration
}

type LogConfiguration struct {
	Dir string
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string
	Username string
	Password string
	Enabled  bool
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Addr                string
	Password            string
	DB                  int
	InvalidationChannel string
	Enabled             bool
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL        string
	AuditIndex string
	Enabled    bool
}

// EntityServiceConfiguration selects and tunes the source of roles, permissions and policies.
// Backend is "http" (the entity-service REST API) or "neo4j" (direct graph reads).
type EntityServiceConfiguration struct {
	Backend       string
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// CacheConfiguration holds TTLs for the three in-process caches.
type CacheConfiguration struct {
	PolicyTTL          time.Duration
	RoleTTL            time.Duration
	DecisionTTL        time.Duration
	MaxSize            int
	JanitorInterval    time.Duration
	TombstoneRetention time.Duration
}

type EngineConfiguration struct {
	CheckTimeout         time.Duration
	BatchTimeout         time.Duration
	BatchWorkers         int
	MaxBatchSize         int
	DefaultPolicyVersion string
	OwnershipActions     []string
	ExtraActions         []string
	AuditBuffer          int
}

type AuthConfiguration struct {
	JWTSecret string
	APIKey    string
	Enabled   bool
}

type RateLimitConfiguration struct {
	Requests int
	Window   time.Duration
	Enabled  bool
}

var config *Configuration

var envKeyReplacer = strings.NewReplacer(".", "_")

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv() // read in environment variables that match

	SetDefaults(viper.GetViper())

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// SetDefaults registers every key with its default so env overrides and
// Unmarshal see the full tree even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8002")
	v.SetDefault("server.shutdownTimeout", "5s")
	v.SetDefault("log.dir", "logging")

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.enabled", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.invalidationChannel", "authz:invalidation")
	v.SetDefault("redis.enabled", true)

	v.SetDefault("elasticsearch.url", "http://localhost:9200")
	v.SetDefault("elasticsearch.auditIndex", "authz-decisions")
	v.SetDefault("elasticsearch.enabled", false)

	v.SetDefault("entityService.backend", "http")
	v.SetDefault("entityService.baseURL", "http://localhost:8001")
	v.SetDefault("entityService.timeout", "5s")
	v.SetDefault("entityService.retryAttempts", 3)
	v.SetDefault("entityService.retryBackoff", "50ms")

	v.SetDefault("cache.policyTTL", "5m")
	v.SetDefault("cache.roleTTL", "2m")
	v.SetDefault("cache.decisionTTL", "30s")
	v.SetDefault("cache.maxSize", 10000)
	v.SetDefault("cache.janitorInterval", "1m")
	v.SetDefault("cache.tombstoneRetention", "1m")

	v.SetDefault("engine.checkTimeout", "250ms")
	v.SetDefault("engine.batchTimeout", "2s")
	v.SetDefault("engine.batchWorkers", 16)
	v.SetDefault("engine.maxBatchSize", 100)
	v.SetDefault("engine.defaultPolicyVersion", "1.0.0")
	v.SetDefault("engine.ownershipActions", []string{"read", "update", "delete"})
	v.SetDefault("engine.extraActions", []string{})
	v.SetDefault("engine.auditBuffer", 1024)

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.apiKey", "")
	v.SetDefault("auth.enabled", true)

	v.SetDefault("rateLimit.requests", 1000)
	v.SetDefault("rateLimit.window", "1m")
	v.SetDefault("rateLimit.enabled", true)
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStringSlice retrieves a string slice from the configuration
func GetStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}
