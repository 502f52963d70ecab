package worker

import (
	"context"
	"database/sql"
	"time"

	"user_api/internal/audit"
	"user_api/internal/observability"
	"user_api/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const maxRetries = 3

func republishWithRetry(ch *amqp.Channel, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retry-count"] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

func retryCountOf(msg *amqp.Delivery) int32 {
	if msg.Headers == nil {
		return 0
	}
	if count, ok := msg.Headers["x-retry-count"].(int32); ok {
		return count
	}
	return 0
}

// StartWorker consumes user events from queueName and records each one in
// the audit table until the delivery channel closes.
func StartWorker(conn *amqp.Connection, db *sql.DB, repo audit.AuditRepositoryInterface, queueName string, id int) {
	ch, err := conn.Channel()
	if err != nil {
		logrus.Fatalf("Worker %d failed to open channel: %v", id, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		logrus.Fatalf("Worker %d failed to set QoS: %v", id, err)
	}

	msgs, err := ch.Consume(
		queueName,
		"",
		false, // manual ACK
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logrus.Fatalf("Worker %d failed to start consuming messages: %v", id, err)
		return
	}

	logrus.Infof("Worker %d started", id)

	for msg := range msgs {
		handleDelivery(ch, db, repo, &msg, queueName, id)
	}

	logrus.Infof("Worker %d stopped", id)
}

func handleDelivery(ch *amqp.Channel, db *sql.DB, repo audit.AuditRepositoryInterface, msg *amqp.Delivery, queueName string, id int) {
	observability.GlobalMetrics.QueueMessagesConsumed.WithLabelValues(queueName).Inc()

	entry, err := toAuditEntry(msg.Body)
	if err != nil {
		logrus.WithError(err).Errorf("Worker %d dropping invalid event", id)
		observability.GlobalMetrics.AuditWritesFailedTotal.WithLabelValues("invalid_payload").Inc()
		msg.Nack(false, false)
		return
	}

	retryCount := retryCountOf(msg)
	logrus.WithFields(logrus.Fields{
		"worker":   id,
		"event":    entry.EventType,
		"userId":   entry.UserID,
		"userName": entry.UserName,
		"retry":    retryCount,
	}).Info("Recording user event")

	err = utils.WithTransaction(db, func(tx *sql.Tx) error {
		_, err := repo.Insert(tx, entry)
		return err
	})
	if err == nil {
		msg.Ack(false)
		return
	}

	logrus.WithError(err).Error("Failed to record audit entry")

	if retryCount >= maxRetries {
		observability.GlobalMetrics.AuditWritesFailedTotal.WithLabelValues("max_retries").Inc()
		msg.Nack(false, false)
		return
	}

	logrus.Infof("Worker %d: requeuing event (retry %d/%d)", id, retryCount+1, maxRetries)

	if err := republishWithRetry(ch, msg, retryCount+1); err != nil {
		logrus.WithError(err).Error("Failed to republish message")
		observability.GlobalMetrics.AuditWritesFailedTotal.WithLabelValues("republish_error").Inc()
		msg.Nack(false, false)
		return
	}

	observability.GlobalMetrics.QueueMessagesPublished.WithLabelValues(queueName).Inc()
	msg.Ack(false)
}
