package transport

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SQSClient define a interface necessária para o listener (permite Mocking)
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// StatusSink recebe os status notificados pela Focus NFe.
type StatusSink interface {
	Remember(ctx context.Context, reference string, status json.RawMessage) error
}

// webhookNotification é o gatilho da Focus NFe. O corpo completo é guardado como status.
type webhookNotification struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

// snsEnvelope cobre filas assinadas em um tópico SNS sem raw delivery.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

var errMissingRef = errors.New("notificação sem ref")

// WebhookListener consome a fila de webhooks e atualiza o cache de status.
type WebhookListener struct {
	client     SQSClient
	queueURL   string
	sink       StatusSink
	logger     zerolog.Logger
	retryDelay time.Duration
}

// NewWebhookListener cria uma nova instância do listener
func NewWebhookListener(client SQSClient, queueURL string, sink StatusSink) *WebhookListener {
	return &WebhookListener{
		client:     client,
		queueURL:   queueURL,
		sink:       sink,
		logger:     log.With().Str("component", "webhook_listener").Logger(),
		retryDelay: 5 * time.Second,
	}
}

// Start inicia o consumo (bloqueante)
func (l *WebhookListener) Start(ctx context.Context) {
	if l.queueURL == "" {
		l.logger.Warn().Msg("URL da fila de webhooks não configurada. Listener desativado.")
		return
	}

	l.logger.Info().Str("queue", l.queueURL).Msg("Consumindo webhooks da Focus NFe")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("Parando listener de webhooks")
			return
		default:
		}

		out, err := l.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(l.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20, // Long polling
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error().Err(err).Dur("retry_in", l.retryDelay).Msg("Erro no SQS. Retentando...")
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.retryDelay):
			}
			continue
		}

		for _, msg := range out.Messages {
			l.handle(ctx, msg)
		}
	}
}

func (l *WebhookListener) handle(ctx context.Context, msg types.Message) {
	n, payload, err := parseNotification([]byte(aws.ToString(msg.Body)))
	if err == nil {
		err = l.sink.Remember(ctx, n.Ref, payload)
	}

	if err != nil {
		l.logger.Warn().Err(err).Str("message_id", aws.ToString(msg.MessageId)).Msg("Webhook descartado")
	} else {
		l.logger.Info().Str("referencia", n.Ref).Str("status", n.Status).Msg("Status atualizado via webhook")
	}

	// mensagens inválidas também saem da fila para não voltarem em loop
	if _, err := l.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(l.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		l.logger.Error().Err(err).Msg("Falha ao remover mensagem da fila")
	}
}

// parseNotification devolve a notificação e o payload completo do status.
func parseNotification(body []byte) (webhookNotification, json.RawMessage, error) {
	// SNS entrega o payload original como string em Message
	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Type == "Notification" {
		body = []byte(env.Message)
	}

	var n webhookNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return n, nil, err
	}
	if n.Ref == "" {
		return n, nil, errMissingRef
	}
	return n, body, nil
}
