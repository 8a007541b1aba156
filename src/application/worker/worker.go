package worker

import (
	"audio-separator-worker/src/application/jobs/job_message"
	"audio-separator-worker/src/application/jobs/job_router"
	"audio-separator-worker/src/application/publish"
	"audio-separator-worker/src/lib/cerr"
	"context"
	"encoding/json"

	"github.com/apex/log"

	"github.com/streadway/amqp"
)

type MessageChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// QueueWorker feeds broker-delivered job requests through the same
// router the HTTP surface uses, and publishes the result envelope to
// the results queue.
type QueueWorker struct {
	channel   MessageChannel
	jobRouter job_router.JobRouter
	publisher publish.Publisher
	queueName string
}

func NewQueueWorker(channel MessageChannel, queueName string, jobRouter job_router.JobRouter, publisher publish.Publisher) QueueWorker {
	return QueueWorker{
		channel:   channel,
		queueName: queueName,
		jobRouter: jobRouter,
		publisher: publisher,
	}
}

func NewQueueWorkerFromConnection(conn *amqp.Connection, queueName string, jobRouter job_router.JobRouter, publisher publish.Publisher) (QueueWorker, error) {
	rabbitChannel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return QueueWorker{}, cerr.Wrap(err).Error("Failed to get channel")
	}

	queue, err := rabbitChannel.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		_ = rabbitChannel.Close()
		return QueueWorker{}, cerr.Wrap(err).Error("Failed to declare queue")
	}

	return NewQueueWorker(rabbitChannel, queue.Name, jobRouter, publisher), nil
}

func (q *QueueWorker) Start() error {
	log.Info("Starting queue worker")

	defer q.channel.Close()

	messageStream, err := q.channel.Consume(
		q.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		return cerr.Field("queue_name", q.queueName).
			Wrap(err).Error("Failed to start consuming from channel")
	}

	for message := range messageStream {
		logger := log.WithField("message_id", message.MessageId)
		logger.Info("Handling job message")

		if err := q.handleMessage(message); err != nil {
			err = cerr.Field("message_body", string(message.Body)).
				Wrap(err).Error("Failed to process job message")

			cerr.Log(err)

			if err = message.Nack(false, false); err != nil {
				logger.Error("Failed to nack message")
			}
		} else {
			logger.Info("Successfully processed job message")
			if err = message.Ack(false); err != nil {
				logger.Error("Failed to ack message")
			}
		}
	}

	return nil
}

func (q *QueueWorker) handleMessage(message amqp.Delivery) error {
	request := job_message.JobRequest{}
	if err := json.Unmarshal(message.Body, &request); err != nil {
		return cerr.Wrap(err).Error("Failed to unmarshal job request JSON")
	}

	output := q.jobRouter.HandleJob(context.Background(), request)

	outputBytes, err := json.Marshal(output)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to marshal job result JSON")
	}

	err = q.publisher.Publish(amqp.Publishing{
		CorrelationId: message.CorrelationId,
		Body:          outputBytes,
	})
	if err != nil {
		return cerr.Wrap(err).Error("Failed to publish job result")
	}

	return nil
}
