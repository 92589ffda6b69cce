package notify

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// LogDeliverer writes alerts to the application log.
type LogDeliverer struct {
	log *zap.Logger
}

func NewLogDeliverer(log *zap.Logger) *LogDeliverer {
	return &LogDeliverer{log: log.Named("alerts")}
}

func (d *LogDeliverer) Enabled() bool { return true }

func (d *LogDeliverer) Deliver(_ context.Context, alert Alert) error {
	d.log.Info(alert.Title,
		zap.String("body", alert.Body),
		zap.String("task_id", alert.TaskID),
		zap.Time("at", alert.At))
	return nil
}

// MessageSender is the part of the Telegram client used for delivery.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDeliverer sends alerts to a single Telegram chat.
type TelegramDeliverer struct {
	sender MessageSender
	chatID int64
}

// NewTelegramDeliverer authorizes the bot token against the Telegram API.
func NewTelegramDeliverer(token string, chatID int64, log *zap.Logger) (*TelegramDeliverer, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info("telegram bot authorized", zap.String("account", api.Self.UserName))
	return NewTelegramDelivererWithSender(api, chatID), nil
}

func NewTelegramDelivererWithSender(sender MessageSender, chatID int64) *TelegramDeliverer {
	return &TelegramDeliverer{sender: sender, chatID: chatID}
}

// Enabled reports whether a chat is configured to receive alerts.
func (d *TelegramDeliverer) Enabled() bool { return d.chatID != 0 }

func (d *TelegramDeliverer) Deliver(_ context.Context, alert Alert) error {
	text := fmt.Sprintf("⏰ <b>%s</b>\n%s", html.EscapeString(alert.Title), html.EscapeString(alert.Body))
	msg := tgbotapi.NewMessage(d.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := d.sender.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}
