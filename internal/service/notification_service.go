package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/claim-service/internal/config"
	"github.com/spec-kit/claim-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventClaimSubmitted, n.handleClaimSubmitted)
	n.dispatcher.Subscribe(events.EventClaimStatusChanged, n.handleClaimStatusChanged)
	n.dispatcher.Subscribe(events.EventClaimAttachmentAdded, n.handleClaimAttachmentAdded)
}

func (n *NotificationService) handleClaimSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimSubmitted", zap.String("claim_id", event.ClaimID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimStatusChanged", zap.String("claim_id", event.ClaimID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimAttachmentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimAttachmentAdded", zap.String("claim_id", event.ClaimID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("claim_id", event.ClaimID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("claim_id", event.ClaimID),
		zap.String("event_type", string(event.Type)))
}
