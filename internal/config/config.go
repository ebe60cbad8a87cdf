// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RAG       RAGConfig       `mapstructure:"rag"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Model         string `mapstructure:"model"`
	Dimensions    int    `mapstructure:"dimensions"`
	CacheTTLHours int    `mapstructure:"cache_ttl_hours"`
}

// LLMConfig 存储大语言模型相关的配置。
// Provider 为 "remote" 时走 OpenAI 兼容接口，为 "local" 时走本机 Ollama。
type LLMConfig struct {
	Provider       string              `mapstructure:"provider"`
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	OllamaHost     string              `mapstructure:"ollama_host"`
	OllamaModel    string              `mapstructure:"ollama_model"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关超参数（可选，零值表示不下发）。
type LLMGenerationConfig struct {
	Temperature   float64 `mapstructure:"temperature"`
	TopP          float64 `mapstructure:"top_p"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	RepeatPenalty float64 `mapstructure:"repeat_penalty"`
	RepeatLastN   int     `mapstructure:"repeat_last_n"`
}

// RAGConfig 存储检索增强生成流程的参数。
type RAGConfig struct {
	ChunkSize        int `mapstructure:"chunk_size"`
	ChunkOverlap     int `mapstructure:"chunk_overlap"`
	TopK             int `mapstructure:"top_k"`
	MaxContextChars  int `mapstructure:"max_context_chars"`
	QuizContextChars int `mapstructure:"quiz_context_chars"`
}

// JWTConfig 存储 WebSocket 连接票据相关的配置。
type JWTConfig struct {
	Secret              string `mapstructure:"secret"`
	TicketExpireMinutes int    `mapstructure:"ticket_expire_minutes"`
}

// SeedConfig 存储启动时自动导入文档的目录配置。
type SeedConfig struct {
	Dir string `mapstructure:"dir"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyDefaults()
}

// applyDefaults 为关键参数补齐默认值，保证缺省配置也能跑通。
func applyDefaults() {
	if Conf.RAG.ChunkSize == 0 {
		Conf.RAG.ChunkSize = 500
	}
	if Conf.RAG.ChunkOverlap == 0 {
		Conf.RAG.ChunkOverlap = 100
	}
	if Conf.RAG.TopK == 0 {
		Conf.RAG.TopK = 3
	}
	if Conf.RAG.MaxContextChars == 0 {
		Conf.RAG.MaxContextChars = 3000
	}
	if Conf.RAG.QuizContextChars == 0 {
		Conf.RAG.QuizContextChars = 2500
	}
	if Conf.LLM.TimeoutSeconds == 0 {
		Conf.LLM.TimeoutSeconds = 30
	}
	if Conf.JWT.TicketExpireMinutes == 0 {
		Conf.JWT.TicketExpireMinutes = 10
	}
}
