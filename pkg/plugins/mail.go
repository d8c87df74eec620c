package plugins

import (
	"errors"

	"gopkg.in/gomail.v2"
)

// MailSender 发送邮件，*gomail.Dialer 实现了该接口
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// NewMailDialer 创建 SMTP 拨号器，服务端支持时自动使用 STARTTLS
func NewMailDialer(cfg MailConfig) *gomail.Dialer {
	return gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
}

// BuildMail 构建通知邮件
func BuildMail(cfg MailConfig, msg Message) (*gomail.Message, error) {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	if from == "" {
		return nil, errors.New("mail.from 未配置")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("mail.to 未配置")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, "Watchdog SSH Login")
	m.SetHeader("To", cfg.To...)
	m.SetHeader("Subject", msg.Render(cfg.Subject))
	m.SetBody("text/plain", msg.Render(cfg.Body))
	return m, nil
}

// SendMail 构建并发送通知邮件
func SendMail(cfg MailConfig, msg Message, sender MailSender) error {
	if cfg.Host == "" {
		return errors.New("mail.host 未配置")
	}
	m, err := BuildMail(cfg, msg)
	if err != nil {
		return err
	}
	return sender.DialAndSend(m)
}
