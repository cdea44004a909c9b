package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/hitoshi/mvcwatch/internal/model"
)

// smtpDialTimeout はSMTPサーバへの接続タイムアウト。
const smtpDialTimeout = 30 * time.Second

// SMTPConfig はSMTPChannelの接続設定。
type SMTPConfig struct {
	Server     string
	Port       int
	From       string
	Password   string
	To         string
	BookingURL string
}

// SMTPChannel は通知メールをSMTPで送信するチャネル。
// ポート465は暗黙TLS、それ以外（587など）はSTARTTLSで接続する。
type SMTPChannel struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPChannel はSMTPChannelの新しいインスタンスを生成する。
func NewSMTPChannel(cfg SMTPConfig, logger *slog.Logger) *SMTPChannel {
	return &SMTPChannel{cfg: cfg, logger: logger}
}

// Notify はChannelインターフェースを実装する。
// 候補リストを1通のメールにまとめて送信する。
func (c *SMTPChannel) Notify(ctx context.Context, candidates []model.AppointmentCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	mail := FormatMail(candidates, c.cfg.BookingURL)

	start := time.Now()
	if err := c.send(ctx, mail); err != nil {
		return model.NewNotifyFailedError(fmt.Sprintf("通知メールの送信に失敗しました: %v", err))
	}

	c.logger.Info("通知メールを送信しました",
		slog.String("to", c.cfg.To),
		slog.String("subject", mail.Subject),
		slog.Int("candidates", len(candidates)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

func (c *SMTPChannel) send(ctx context.Context, mail Mail) error {
	addr := net.JoinHostPort(c.cfg.Server, strconv.Itoa(c.cfg.Port))
	msg := buildMessage(c.cfg.From, c.cfg.To, mail)

	client, err := c.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", c.cfg.From, c.cfg.Password, c.cfg.Server)
	if err := client.Auth(auth); err != nil {
		return err
	}

	if err := client.Mail(c.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(c.cfg.To); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return nil
}

// dial はポート番号に応じて暗黙TLSとSTARTTLSを使い分ける。
func (c *SMTPChannel) dial(ctx context.Context, addr string) (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: c.cfg.Server}

	timeout := smtpDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	dialer := &net.Dialer{Timeout: timeout}

	if c.cfg.Port == 465 {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, c.cfg.Server)
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, c.cfg.Server)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func buildMessage(from, to string, mail Mail) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", mail.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			mail.Body,
	)
}
