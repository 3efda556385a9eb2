package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/raywall/nfse-gateway/pkg/awsx"
	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/rs/zerolog/log"
)

// Interfaces para abstrair o SDK da AWS (Permite Mocking)
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver descobre o token na ordem: valor direto, Secrets Manager, SSM.
type Resolver struct {
	Secrets SecretsClient
	SSM     SSMClient
}

// Resolve é o wrapper público que inicializa os clientes reais apenas quando necessários.
func Resolve(ctx context.Context, cfg config.UpstreamConf, region string) (Credential, error) {
	r := &Resolver{}
	if cfg.Token == "" && (cfg.TokenSecretID != "" || cfg.TokenParameter != "") {
		awsCfg, err := awsx.Load(ctx, region)
		if err != nil {
			return Credential{}, fmt.Errorf("falha ao carregar config AWS: %w", err)
		}
		r.Secrets = secretsmanager.NewFromConfig(awsCfg)
		r.SSM = ssm.NewFromConfig(awsCfg)
	}
	return r.Resolve(ctx, cfg)
}

// Resolve aplica a ordem de precedência e falha se nenhuma origem devolver token.
func (r *Resolver) Resolve(ctx context.Context, cfg config.UpstreamConf) (Credential, error) {
	switch {
	case cfg.Token != "":
		log.Ctx(ctx).Debug().Str("source", "env").Msg("token da Focus NFe carregado")
		return New(cfg.Token)

	case cfg.TokenSecretID != "":
		token, err := r.fromSecret(ctx, cfg.TokenSecretID)
		if err != nil {
			return Credential{}, err
		}
		log.Ctx(ctx).Debug().Str("source", "secretsmanager").Msg("token da Focus NFe carregado")
		return New(token)

	case cfg.TokenParameter != "":
		token, err := r.fromParameter(ctx, cfg.TokenParameter)
		if err != nil {
			return Credential{}, err
		}
		log.Ctx(ctx).Debug().Str("source", "ssm").Msg("token da Focus NFe carregado")
		return New(token)
	}

	return Credential{}, ErrEmptyToken
}

func (r *Resolver) fromSecret(ctx context.Context, secretID string) (string, error) {
	if r.Secrets == nil {
		return "", fmt.Errorf("cliente SecretsManager não configurado")
	}
	out, err := r.Secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretID,
	})
	if err != nil {
		return "", fmt.Errorf("erro no SecretsManager: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("segredo '%s' sem SecretString", secretID)
	}

	val := strings.TrimSpace(*out.SecretString)

	// Segredo pode ser JSON ({"token": "..."}) ou o token puro
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(val), &data); err == nil {
		token, _ := data["token"].(string)
		if token == "" {
			return "", fmt.Errorf("segredo '%s' não contém a chave 'token'", secretID)
		}
		return token, nil
	}
	return val, nil
}

func (r *Resolver) fromParameter(ctx context.Context, path string) (string, error) {
	if r.SSM == nil {
		return "", fmt.Errorf("cliente SSM não configurado")
	}
	decrypt := true
	out, err := r.SSM.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &path,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("erro no SSM GetParameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parâmetro '%s' sem valor", path)
	}
	return strings.TrimSpace(*out.Parameter.Value), nil
}
