package config

import "time"

const (
	RuntimeLocal  = "local"
	RuntimeLambda = "lambda"

	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"

	// DefaultBaseURL é o endpoint de produção da Focus NFe.
	DefaultBaseURL = "https://api.focusnfe.com.br/"
)

// Config representa a configuração completa do gateway.
// Pode vir de um YAML (opcional) e é sempre complementada pelas variáveis de ambiente.
type Config struct {
	Service  ServiceConf  `yaml:"service"`
	Upstream UpstreamConf `yaml:"upstream"`
	Cache    CacheConf    `yaml:"cache"`
	Webhook  WebhookConf  `yaml:"webhook"`
	Logging  LoggingConf  `yaml:"logging"`
	Metrics  MetricsConf  `yaml:"metrics"`
	AWS      AWSConf      `yaml:"aws"`
}

// ServiceConf contém os metadados e configurações de runtime do serviço.
type ServiceConf struct {
	Name    string `yaml:"name" env:"GATEWAY_NAME" envDefault:"nfse-gateway" validate:"required"`
	Runtime string `yaml:"runtime" env:"GATEWAY_RUNTIME" envDefault:"local" validate:"required,oneof=local lambda"`
	Port    int    `yaml:"port" env:"GATEWAY_PORT" envDefault:"8080" validate:"required_if=Runtime local,gte=0,lte=65535"`
	// DevMode inclui o campo "details" nos envelopes de erro.
	DevMode bool `yaml:"dev_mode" env:"GATEWAY_DEV_MODE"`
}

// UpstreamConf descreve a API da Focus NFe e de onde vem o token.
type UpstreamConf struct {
	BaseURL           string        `yaml:"base_url" env:"FOCUS_NFE_BASE_URL" envDefault:"https://api.focusnfe.com.br/" validate:"required,url"`
	Token             string        `yaml:"token" env:"FOCUS_NFE_TOKEN"`
	TokenSecretID     string        `yaml:"token_secret_id" env:"FOCUS_NFE_TOKEN_SECRET_ID"`
	TokenParameter    string        `yaml:"token_parameter" env:"FOCUS_NFE_TOKEN_PARAMETER"`
	ConsultTimeout    time.Duration `yaml:"consult_timeout" env:"CONSULT_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	ManagementTimeout time.Duration `yaml:"management_timeout" env:"MANAGEMENT_TIMEOUT" envDefault:"30s" validate:"gt=0"`
}

// HasCredentialSource indica se alguma origem de token foi configurada.
func (u UpstreamConf) HasCredentialSource() bool {
	return u.Token != "" || u.TokenSecretID != "" || u.TokenParameter != ""
}

type CacheConf struct {
	Backend       string        `yaml:"backend" env:"CACHE_BACKEND" envDefault:"memory" validate:"oneof=memory redis dynamodb sqlite"`
	TTL           time.Duration `yaml:"ttl" env:"CACHE_TTL" envDefault:"30s" validate:"gt=0"`
	Capacity      int           `yaml:"capacity" env:"CACHE_CAPACITY" envDefault:"1024" validate:"gte=1"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"CACHE_SWEEP_INTERVAL" validate:"gte=0"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	DynamoTable   string        `yaml:"dynamodb_table" env:"CACHE_DYNAMODB_TABLE" validate:"required_if=Backend dynamodb"`
	SQLitePath    string        `yaml:"sqlite_path" env:"CACHE_SQLITE_PATH" envDefault:"nfse-cache.db"`
}

// WebhookConf configura a fila SQS que recebe os gatilhos da Focus NFe.
type WebhookConf struct {
	QueueURL string `yaml:"queue_url" env:"WEBHOOK_QUEUE_URL"`
}

type LoggingConf struct {
	Disabled bool   `yaml:"disabled" env:"LOG_DISABLED"`
	Level    string `yaml:"level" env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
}

type MetricsConf struct {
	Datadog DatadogConf `yaml:"datadog"`
}

type DatadogConf struct {
	Enabled   bool   `yaml:"enabled" env:"DD_ENABLED"`
	Addr      string `yaml:"addr" env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace" env:"DD_NAMESPACE" envDefault:"nfse_gateway."`
}

type AWSConf struct {
	Region string `yaml:"region" env:"AWS_REGION"`
}
