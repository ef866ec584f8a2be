package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTaskAssigned       MessageType = "task.assigned"
	MessageTypeStepCompleted      MessageType = "step.completed"
	MessageTypeProcessCompleted   MessageType = "process.completed"
	MessageTypeProcessRejected    MessageType = "process.rejected"
	MessageTypeSignatureCompleted MessageType = "signature.completed"
	MessageTypeSignaturePending   MessageType = "signature.pending"
	MessageTypeAuditRecord        MessageType = "audit.record"
)

// Publisher публикует доменные события и записи аудита в RabbitMQ.
//
// Типизированные методы реализуют интерфейсы событий движка,
// резолвера подписей и оркестратора дочерних процессов.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// TaskAssignedPayload — payload события о назначенном шаге.
type TaskAssignedPayload struct {
	InstanceID uuid.UUID  `json:"instance_id"`
	Code       string     `json:"code"`
	StepOrder  int        `json:"step_order"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	SectorID   *uuid.UUID `json:"sector_id,omitempty"`
}

// StepCompletedPayload — payload события о завершённом шаге.
type StepCompletedPayload struct {
	InstanceID uuid.UUID `json:"instance_id"`
	Code       string    `json:"code"`
	StepOrder  int       `json:"step_order"`
	Action     string    `json:"action"`
}

// ProcessFinishedPayload — payload терминальных событий процесса.
type ProcessFinishedPayload struct {
	InstanceID uuid.UUID `json:"instance_id"`
	Code       string    `json:"code"`
	Action     string    `json:"action,omitempty"`
}

// SignatureEventPayload — payload событий подписей.
type SignatureEventPayload struct {
	StepExecutionID uuid.UUID  `json:"step_execution_id"`
	RequirementID   uuid.UUID  `json:"requirement_id"`
	SignerID        *uuid.UUID `json:"signer_id,omitempty"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	SectorID        *uuid.UUID `json:"sector_id,omitempty"`
}

// AuditPayload — payload записи аудита.
type AuditPayload struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID uuid.UUID      `json:"resource_id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Details    map[string]any `json:"details,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

func (p *Publisher) publishEvent(ctx context.Context, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeEvents, routingKey, msg)
}

// TaskAssigned публикует событие о шаге, назначенном исполнителю.
func (p *Publisher) TaskAssigned(ctx context.Context, instanceID uuid.UUID, code string, stepOrder int, userID, sectorID *uuid.UUID) error {
	return p.publishEvent(ctx, RoutingKeyTaskAssigned, MessageTypeTaskAssigned, TaskAssignedPayload{
		InstanceID: instanceID,
		Code:       code,
		StepOrder:  stepOrder,
		UserID:     userID,
		SectorID:   sectorID,
	})
}

// StepCompleted публикует событие о завершённом шаге.
func (p *Publisher) StepCompleted(ctx context.Context, instanceID uuid.UUID, code string, stepOrder int, action string) error {
	return p.publishEvent(ctx, RoutingKeyStepCompleted, MessageTypeStepCompleted, StepCompletedPayload{
		InstanceID: instanceID,
		Code:       code,
		StepOrder:  stepOrder,
		Action:     action,
	})
}

// ProcessCompleted публикует событие об успешно завершённом процессе.
func (p *Publisher) ProcessCompleted(ctx context.Context, instanceID uuid.UUID, code string) error {
	return p.publishEvent(ctx, RoutingKeyProcessCompleted, MessageTypeProcessCompleted, ProcessFinishedPayload{
		InstanceID: instanceID,
		Code:       code,
	})
}

// ProcessRejected публикует событие об отклонённом процессе.
func (p *Publisher) ProcessRejected(ctx context.Context, instanceID uuid.UUID, code string, action string) error {
	return p.publishEvent(ctx, RoutingKeyProcessRejected, MessageTypeProcessRejected, ProcessFinishedPayload{
		InstanceID: instanceID,
		Code:       code,
		Action:     action,
	})
}

// SignatureCompleted публикует событие о собранной подписи.
func (p *Publisher) SignatureCompleted(ctx context.Context, stepExecutionID, requirementID, signerID uuid.UUID) error {
	return p.publishEvent(ctx, RoutingKeySignatureCompleted, MessageTypeSignatureCompleted, SignatureEventPayload{
		StepExecutionID: stepExecutionID,
		RequirementID:   requirementID,
		SignerID:        &signerID,
	})
}

// SignaturePending публикует событие о разблокированном требовании:
// очередь дошла до следующего подписанта.
func (p *Publisher) SignaturePending(ctx context.Context, stepExecutionID, requirementID uuid.UUID, userID, sectorID *uuid.UUID) error {
	return p.publishEvent(ctx, RoutingKeySignaturePending, MessageTypeSignaturePending, SignatureEventPayload{
		StepExecutionID: stepExecutionID,
		RequirementID:   requirementID,
		UserID:          userID,
		SectorID:        sectorID,
	})
}

// Record публикует запись аудита.
func (p *Publisher) Record(ctx context.Context, action, resource string, resourceID, actorID uuid.UUID, details map[string]any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeAuditRecord,
		Payload: AuditPayload{
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			ActorID:    actorID,
			Details:    details,
		},
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, ExchangeAudit, RoutingKeyAudit, msg)
}
