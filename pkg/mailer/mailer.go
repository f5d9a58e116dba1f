package mailer

import (
	"gopkg.in/gomail.v2"

	"github.com/jazz-17/reservation-system/config"
)

// Message 一封待发送的邮件
type Message struct {
	To             []string
	Cc             []string
	Bcc            []string
	Subject        string
	Body           string
	AttachmentPath string
}

// Mailer 邮件发送接口
// Worker 依赖此接口；测试中以内存实现替代 SMTP
type Mailer interface {
	Send(msg *Message) error
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer 创建基于 SMTP 的 Mailer
func NewSMTPMailer(cfg *config.MailConfig) Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *smtpMailer) Send(msg *Message) error {
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		gm.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		gm.SetHeader("Bcc", msg.Bcc...)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/plain", msg.Body)
	if msg.AttachmentPath != "" {
		gm.Attach(msg.AttachmentPath)
	}

	return m.dialer.DialAndSend(gm)
}
