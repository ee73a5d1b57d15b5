package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/internal/whatsapp"
)

// StartStatusNotifier subscribes to WhatsApp status transitions and mails an
// alert when the session drops. Disabled when no SMTP host is configured.
func (a *Application) StartStatusNotifier() {
	smtp := a.appConfig.Smtp
	if smtp.Host == "" || smtp.To == "" {
		zap.L().Debug("status notifier disabled, smtp not configured")
		return
	}

	err := a.bus.SubscribeAsync(whatsapp.TopicStatus, func(status string) {
		if status != domain.SessionDisconnected {
			return
		}
		if err := a.sendDisconnectAlert(); err != nil {
			zap.L().Warn("failed to send disconnect alert", zap.Error(err))
		}
	}, false)
	if err != nil {
		zap.L().Error("failed to subscribe status notifier", zap.Error(err))
	}
}

func (a *Application) sendDisconnectAlert() error {
	smtp := a.appConfig.Smtp
	m := gomail.NewMessage()
	from := smtp.From
	if from == "" {
		from = smtp.Username
	}
	m.SetHeader("From", from)
	m.SetHeader("To", smtp.To)
	m.SetHeader("Subject", "[wacapture] WhatsApp session disconnected")
	m.SetBody("text/plain", fmt.Sprintf(
		"The WhatsApp capture session reported status %q at %s.\n"+
			"If it does not reconnect automatically, re-pair via the admin panel.",
		domain.SessionDisconnected, time.Now().Format(time.RFC3339)))

	d := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	return d.DialAndSend(m)
}
