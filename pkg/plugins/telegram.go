package plugins

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender 发送 Telegram 消息，*tgbotapi.BotAPI 实现了该接口
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewTelegramBot 创建机器人客户端
func NewTelegramBot(cfg TelegramConfig) (*tgbotapi.BotAPI, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram.token 未配置")
	}
	if cfg.APIEndpoint != "" {
		return tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, cfg.APIEndpoint)
	}
	return tgbotapi.NewBotAPI(cfg.Token)
}

// BuildTelegram 构建 HTML 格式的通知消息
func BuildTelegram(cfg TelegramConfig, msg Message) (tgbotapi.MessageConfig, error) {
	if cfg.ChatID == 0 {
		return tgbotapi.MessageConfig{}, errors.New("telegram.chat_id 未配置")
	}
	tmpl := cfg.Template
	if tmpl == "" {
		tmpl = DefaultTelegramTemplate
	}
	out := tgbotapi.NewMessage(cfg.ChatID, msg.RenderHTML(tmpl))
	out.ParseMode = tgbotapi.ModeHTML
	return out, nil
}

// SendTelegram 构建并发送通知消息
func SendTelegram(cfg TelegramConfig, msg Message, sender TelegramSender) error {
	out, err := BuildTelegram(cfg, msg)
	if err != nil {
		return err
	}
	_, err = sender.Send(out)
	return err
}
