package plugins

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Notifier 执行内置插件
type Notifier struct {
	cfg    Config
	logger *zap.Logger

	now      func() time.Time
	system   func(ctx context.Context) SystemInfo
	locator  Locator
	mail     func(cfg MailConfig) MailSender
	telegram func(cfg TelegramConfig) (TelegramSender, error)
}

// NewNotifier 创建内置插件执行器
func NewNotifier(cfg Config, locator Locator, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		system:  LookupSystem,
		locator: locator,
		mail: func(cfg MailConfig) MailSender {
			return NewMailDialer(cfg)
		},
		telegram: func(cfg TelegramConfig) (TelegramSender, error) {
			return NewTelegramBot(cfg)
		},
	}
}

// Run 以登录记录执行指定插件
func (n *Notifier) Run(ctx context.Context, name, login string) error {
	switch name {
	case Log2File:
		path, err := AppendLogin(n.cfg.Log2File, login, n.now())
		if err != nil {
			return err
		}
		n.logger.Info("登录记录已写入", zap.String("file", path))
		return nil
	case Mail:
		msg := NewMessage(login, n.system(ctx), n.locator)
		if err := SendMail(n.cfg.Mail, msg, n.mail(n.cfg.Mail)); err != nil {
			return fmt.Errorf("发送邮件失败: %w", err)
		}
		n.logger.Info("邮件发送成功", zap.Strings("to", n.cfg.Mail.To))
		return nil
	case Telegram:
		sender, err := n.telegram(n.cfg.Telegram)
		if err != nil {
			return fmt.Errorf("创建 Telegram 机器人失败: %w", err)
		}
		msg := NewMessage(login, n.system(ctx), n.locator)
		if err := SendTelegram(n.cfg.Telegram, msg, sender); err != nil {
			return fmt.Errorf("发送 Telegram 消息失败: %w", err)
		}
		n.logger.Info("Telegram 消息发送成功", zap.Int64("chat", n.cfg.Telegram.ChatID))
		return nil
	default:
		return fmt.Errorf("未知插件: %s", name)
	}
}
