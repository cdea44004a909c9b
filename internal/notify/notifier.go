// Package notify は見つかった予約枠の通知チャネルを提供する。
//
// チャネルはSMTP送信とログ出力の2種類があり、メール設定の有無に応じて
// 起動時に1回だけ選択される（送信処理の内部で分岐はしない）。
package notify

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hitoshi/mvcwatch/internal/config"
	"github.com/hitoshi/mvcwatch/internal/model"
)

// mailSubject は通知メールの件名。
const mailSubject = "NJ MVC REAL ID Appointment Alert!"

// Channel は通知チャネルのインターフェース。
type Channel interface {
	// Notify は候補リストを1通の通知として配信する。
	Notify(ctx context.Context, candidates []model.AppointmentCandidate) error
}

// NewChannel は設定からチャネルを選択する。
// メール設定が揃っていればSMTPChannel、欠けていればLogChannelを返す
// （設定不足はエラーではなくフォールバック）。
func NewChannel(cfg *config.Config, logger *slog.Logger) Channel {
	if cfg.MailConfigured() {
		return NewSMTPChannel(SMTPConfig{
			Server:     cfg.SMTPServer,
			Port:       cfg.SMTPPort,
			From:       cfg.EmailAddress,
			Password:   cfg.EmailPassword,
			To:         cfg.TargetEmail,
			BookingURL: cfg.TargetURL,
		}, logger)
	}

	logger.Warn("メール設定が不完全なため、通知はログ出力にフォールバックします")
	return NewLogChannel(cfg.TargetEmail, cfg.TargetURL, logger)
}

// Mail は整形済みの通知メールを表す。
type Mail struct {
	Subject string
	Body    string
}

// FormatMail は候補リストから通知メールを整形する。
//
// 本文では週末の候補を先頭に並べる（安定ソート: 各グループ内は元の順序を
// 保存する）。週末の候補には強調マーカーを付ける。入力スライスは変更しない。
func FormatMail(candidates []model.AppointmentCandidate, bookingURL string) Mail {
	ordered := make([]model.AppointmentCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].IsWeekend && !ordered[j].IsWeekend
	})

	var b strings.Builder
	b.WriteString("Found available NJ MVC REAL ID appointments:\n\n")

	for _, c := range ordered {
		weekendMarker := ""
		if c.IsWeekend {
			weekendMarker = " **(Weekend)**"
		}
		b.WriteString("--- Appointment ---\n")
		b.WriteString("Location: " + c.MatchedTarget + "\n")
		b.WriteString("Date: " + c.DateText + weekendMarker + "\n")
		b.WriteString("Time: " + c.TimeText + "\n")
		b.WriteString("\n")
	}

	b.WriteString("Check the NJ MVC website to book: " + bookingURL)

	return Mail{Subject: mailSubject, Body: b.String()}
}

// LogChannel は整形済みの通知内容をログに出力するチャネル。
// メール設定が無い環境での確認用フォールバック。
type LogChannel struct {
	to         string
	bookingURL string
	logger     *slog.Logger
}

// NewLogChannel はLogChannelの新しいインスタンスを生成する。
func NewLogChannel(to, bookingURL string, logger *slog.Logger) *LogChannel {
	return &LogChannel{to: to, bookingURL: bookingURL, logger: logger}
}

// Notify はChannelインターフェースを実装する。配信は常に成功扱い。
func (c *LogChannel) Notify(_ context.Context, candidates []model.AppointmentCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	mail := FormatMail(candidates, c.bookingURL)
	c.logger.Info("通知内容（メール未送信）",
		slog.String("to", c.to),
		slog.String("subject", mail.Subject),
		slog.String("body", mail.Body),
	)
	return nil
}
