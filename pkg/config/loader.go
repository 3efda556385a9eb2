package config

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/raywall/nfse-gateway/envloader"
	"github.com/raywall/nfse-gateway/pkg/awsx"
	"gopkg.in/yaml.v3"
)

// S3Downloader abstrai o cliente S3 (permite Mocking).
type S3Downloader interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader monta a Config a partir de um YAML opcional (arquivo local ou S3)
// complementado pelas variáveis de ambiente.
type Loader struct {
	validator *ConfigValidator
	// newS3 permite injetar um cliente falso nos testes
	newS3 func(ctx context.Context) (S3Downloader, error)
}

// NewLoader cria um loader com o cliente S3 real.
func NewLoader() *Loader {
	return &Loader{
		validator: NewValidator(),
		newS3: func(ctx context.Context) (S3Downloader, error) {
			cfg, err := awsx.Load(ctx, os.Getenv("AWS_REGION"))
			if err != nil {
				return nil, err
			}
			return s3.NewFromConfig(cfg), nil
		},
	}
}

// Load lê a origem (vazia, caminho local, file:// ou s3://), aplica o ambiente e valida.
func (l *Loader) Load(ctx context.Context, source string) (*Config, error) {
	var cfg Config

	if source != "" {
		raw, err := l.read(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("falha leitura config (%s): %w", source, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("YAML malformado: %w", err)
		}
	}

	if err := envloader.Load(&cfg); err != nil {
		return nil, fmt.Errorf("falha ao aplicar variáveis de ambiente: %w", err)
	}

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validação da configuração falhou: %w", err)
	}

	return &cfg, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "s3://") {
		client, err := l.newS3(ctx)
		if err != nil {
			return nil, err
		}
		return loadFromS3(ctx, client, source)
	}
	// Suporta tanto "file://config.yaml" quanto apenas "config.yaml"
	return os.ReadFile(strings.TrimPrefix(source, "file://"))
}

func loadFromS3(ctx context.Context, client S3Downloader, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL S3 inválida: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("URL S3 inválida: '%s'", uri)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
