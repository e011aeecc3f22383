package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sender is the part of the Telegram client we use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts owner alerts to one Telegram chat. A nil *Notifier is disabled.
type Notifier struct {
	bot    Sender
	chatID int64
	// async=false only in tests
	async bool
}

var Default *Notifier

// NewTelegram connects the bot; empty token or chat disables notifications.
func NewTelegram(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID, async: true}, nil
}

func New(bot Sender, chatID int64, async bool) *Notifier {
	return &Notifier{bot: bot, chatID: chatID, async: async}
}

// LowMarginAlert is sent when a distribution visit falls under the margin threshold.
type LowMarginAlert struct {
	WarungName    string
	Sold          int
	UnitPrice     decimal.Decimal
	HPP           decimal.Decimal
	MarginPercent decimal.Decimal
	Profit        decimal.Decimal
}

func (a LowMarginAlert) Text() string {
	return fmt.Sprintf(
		"⚠️ Margin rendah di %s\nTerjual: %d bungkus\nHarga/unit: Rp %s\nHPP/unit: Rp %s\nMargin: %s%%\nProfit: Rp %s",
		a.WarungName, a.Sold,
		a.UnitPrice.StringFixed(0), a.HPP.StringFixed(0),
		a.MarginPercent.StringFixed(1), a.Profit.StringFixed(0),
	)
}

func (n *Notifier) LowMargin(a LowMarginAlert) {
	if n == nil {
		return
	}
	n.send(a.Text())
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	deliver := func() {
		if _, err := n.bot.Send(msg); err != nil {
			zap.L().Warn("telegram send", zap.Error(err))
		}
	}
	if n.async {
		go deliver()
		return
	}
	deliver()
}
