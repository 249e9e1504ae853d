package cmd

import (
	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/notify"
	"nurse-booking/pkg/utils"

	"go.uber.org/zap"
)

// buildNotifier fans lifecycle events out to the log and to whichever of
// SendGrid and RabbitMQ are configured. The returned func releases the
// broker connection.
func buildNotifier(config *utils.Config, repo *repository.Repository, logger *zap.Logger) (notify.Dispatcher, func()) {
	dispatchers := []notify.Dispatcher{notify.NewLogDispatcher(logger)}
	closeFn := func() {}

	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    config.Email.SendGridAPIKey,
		FromEmail: config.Email.FromEmail,
		FromName:  config.Email.FromName,
	}, logger); sender != nil {
		dispatchers = append(dispatchers, notify.NewEmailDispatcher(sender, repo.User, logger))
		logger.Info("Email notifications enabled")
	}

	if config.Broker.URL != "" {
		pub, err := notify.NewAMQPPublisher(config.Broker.URL, config.Broker.Exchange)
		if err != nil {
			// Events still reach the log and email
			logger.Error("RabbitMQ unavailable, broker events disabled", zap.Error(err))
		} else {
			dispatchers = append(dispatchers, notify.NewBrokerDispatcher(pub, logger))
			closeFn = func() {
				if err := pub.Close(); err != nil {
					logger.Warn("Failed to close broker connection", zap.Error(err))
				}
			}
			logger.Info("Broker events enabled", zap.String("exchange", config.Broker.Exchange))
		}
	}

	return notify.Multi(dispatchers...), closeFn
}
