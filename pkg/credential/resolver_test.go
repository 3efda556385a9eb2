package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/raywall/nfse-gateway/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockSSM struct {
	GetParameterFunc func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

func (m *MockSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return m.GetParameterFunc(ctx, params, optFns...)
}

type MockSecrets struct {
	GetSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *MockSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return m.GetSecretValueFunc(ctx, params, optFns...)
}

func secretReturning(value string) *MockSecrets {
	return &MockSecrets{
		GetSecretValueFunc: func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{SecretString: &value}, nil
		},
	}
}

// --- Testes ---

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Token direto tem precedência", func(t *testing.T) {
		r := &Resolver{Secrets: secretReturning("nao-usar")}
		cred, err := r.Resolve(ctx, config.UpstreamConf{Token: "direto", TokenSecretID: "x"})
		require.NoError(t, err)

		expected, _ := New("direto")
		assert.Equal(t, expected.AuthorizationHeader(), cred.AuthorizationHeader())
	})

	t.Run("Secrets Manager com string pura", func(t *testing.T) {
		r := &Resolver{Secrets: secretReturning("  token-puro \n")}
		cred, err := r.Resolve(ctx, config.UpstreamConf{TokenSecretID: "focus/token"})
		require.NoError(t, err)

		expected, _ := New("token-puro")
		assert.Equal(t, expected.AuthorizationHeader(), cred.AuthorizationHeader())
	})

	t.Run("Secrets Manager com JSON", func(t *testing.T) {
		r := &Resolver{Secrets: secretReturning(`{"token": "token-json", "ambiente": "producao"}`)}
		cred, err := r.Resolve(ctx, config.UpstreamConf{TokenSecretID: "focus/token"})
		require.NoError(t, err)

		expected, _ := New("token-json")
		assert.Equal(t, expected.AuthorizationHeader(), cred.AuthorizationHeader())
	})

	t.Run("Secrets Manager com JSON sem token", func(t *testing.T) {
		r := &Resolver{Secrets: secretReturning(`{"senha": "x"}`)}
		_, err := r.Resolve(ctx, config.UpstreamConf{TokenSecretID: "focus/token"})
		assert.ErrorContains(t, err, "não contém a chave 'token'")
	})

	t.Run("SSM com decrypt", func(t *testing.T) {
		value := "token-ssm"
		r := &Resolver{SSM: &MockSSM{
			GetParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				assert.Equal(t, "/nfse/focus/token", *params.Name)
				assert.True(t, *params.WithDecryption)
				return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: &value}}, nil
			},
		}}
		cred, err := r.Resolve(ctx, config.UpstreamConf{TokenParameter: "/nfse/focus/token"})
		require.NoError(t, err)
		assert.False(t, cred.IsZero())
	})

	t.Run("Erro na AWS", func(t *testing.T) {
		r := &Resolver{SSM: &MockSSM{
			GetParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
				return nil, errors.New("AWS down")
			},
		}}
		_, err := r.Resolve(ctx, config.UpstreamConf{TokenParameter: "/nfse/focus/token"})
		assert.ErrorContains(t, err, "AWS down")
	})

	t.Run("Nenhuma origem", func(t *testing.T) {
		_, err := (&Resolver{}).Resolve(ctx, config.UpstreamConf{})
		assert.ErrorIs(t, err, ErrEmptyToken)
	})

	t.Run("Segredo vazio", func(t *testing.T) {
		r := &Resolver{Secrets: secretReturning("")}
		_, err := r.Resolve(ctx, config.UpstreamConf{TokenSecretID: "focus/token"})
		assert.ErrorIs(t, err, ErrEmptyToken)
	})
}

func TestResolver_NaoRegistraToken(t *testing.T) {
	var buf logBuffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	r := &Resolver{Secrets: secretReturning(`{"token": "segredo-da-focus"}`)}
	_, err := r.Resolve(ctx, config.UpstreamConf{TokenSecretID: "focus/token"})
	require.NoError(t, err)

	_, err = r.Resolve(ctx, config.UpstreamConf{Token: "segredo-inline"})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "secretsmanager")
	assert.NotContains(t, buf.String(), "segredo-da-focus")
	assert.NotContains(t, buf.String(), "segredo-inline")
}
