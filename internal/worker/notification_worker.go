package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/service"
)

// StartNotificationWorker registers notification handlers, drains the
// notification queue in the background and releases the sink once ctx is
// cancelled.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()

	go func() {
		notificationService.Run(ctx)
		if err := notificationService.Close(); err != nil {
			logger.Warn("closing notification sink", zap.Error(err))
			return
		}
		logger.Info("notification sink closed")
	}()
}
