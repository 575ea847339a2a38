package logaudit

import (
	"encoding/json"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/rabbitmq"
)

const logConsumerAlias = "LogConsumer"

// LogSinkWorker drains the log queue into the audit table. It uses a
// dedicated stdout logger: feeding its own output back through the broker
// would loop.
type LogSinkWorker struct {
	service  *Service
	consumer rabbitmq.IRabbitmqConsumer
	logger   *logger.Logger
}

func NewLogSinkWorker(service *Service) *LogSinkWorker {
	return &LogSinkWorker{
		service:  service,
		consumer: rabbitmq.GetConsumer(rabbitmq.ConsumerAlias(logConsumerAlias)),
		logger:   logger.New().WithOutput(os.Stdout),
	}
}

func (w *LogSinkWorker) GetServiceName() string {
	return logConsumerAlias
}

func (w *LogSinkWorker) StartService() {
	w.logger.Info("Starting Log Sink Worker")

	w.consumer.StartConsuming(func(d amqp.Delivery) {
		var msg rabbitmq.LoggerMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			w.logger.Errorf(err, "Failed to unmarshal log message")
			return
		}

		if err := w.service.ProcessLogMessage(msg); err != nil {
			w.logger.Errorf(err, "Failed to save log message")
		}
	})
}
