package notify

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/mvcwatch/internal/config"
	"github.com/hitoshi/mvcwatch/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func weekdayCandidate(location string) model.AppointmentCandidate {
	return model.AppointmentCandidate{
		MatchedTarget: location,
		DateText:      "07/16/2025",
		TimeText:      "10:30 AM",
		IsWeekend:     false,
	}
}

func weekendCandidate(location string) model.AppointmentCandidate {
	return model.AppointmentCandidate{
		MatchedTarget: location,
		DateText:      "07/19/2025",
		TimeText:      "9:00 AM",
		IsWeekend:     true,
	}
}

func TestFormatMail_Subject_IsFixed(t *testing.T) {
	mail := FormatMail([]model.AppointmentCandidate{weekdayCandidate("Newark")}, "https://example.com/book")

	if mail.Subject != "NJ MVC REAL ID Appointment Alert!" {
		t.Errorf("件名が想定と異なります: %q", mail.Subject)
	}
}

func TestFormatMail_Body_ContainsCandidateFields(t *testing.T) {
	mail := FormatMail([]model.AppointmentCandidate{weekdayCandidate("Newark")}, "https://example.com/book")

	for _, want := range []string{
		"Location: Newark",
		"Date: 07/16/2025",
		"Time: 10:30 AM",
		"https://example.com/book",
	} {
		if !strings.Contains(mail.Body, want) {
			t.Errorf("本文に %q が含まれていません:\n%s", want, mail.Body)
		}
	}
	if strings.Contains(mail.Body, "(Weekend)") {
		t.Errorf("平日の候補に週末マーカーが付いています:\n%s", mail.Body)
	}
}

func TestFormatMail_WeekendCandidate_HasMarker(t *testing.T) {
	mail := FormatMail([]model.AppointmentCandidate{weekendCandidate("Bayonne")}, "https://example.com/book")

	if !strings.Contains(mail.Body, "Date: 07/19/2025 **(Weekend)**") {
		t.Errorf("週末マーカーが付いていません:\n%s", mail.Body)
	}
}

func TestFormatMail_WeekendFirst_StableWithinGroups(t *testing.T) {
	candidates := []model.AppointmentCandidate{
		weekdayCandidate("Newark"),
		weekendCandidate("Bayonne"),
		weekdayCandidate("Edison"),
		weekendCandidate("Rahway"),
	}

	mail := FormatMail(candidates, "https://example.com/book")

	order := []string{"Bayonne", "Rahway", "Newark", "Edison"}
	last := -1
	for _, name := range order {
		idx := strings.Index(mail.Body, "Location: "+name)
		if idx < 0 {
			t.Fatalf("本文に %s が含まれていません:\n%s", name, mail.Body)
		}
		if idx < last {
			t.Errorf("候補の並び順が想定と異なります（%s が前の候補より先に現れました）:\n%s", name, mail.Body)
		}
		last = idx
	}
}

func TestFormatMail_DoesNotMutateInput(t *testing.T) {
	candidates := []model.AppointmentCandidate{
		weekdayCandidate("Newark"),
		weekendCandidate("Bayonne"),
	}

	FormatMail(candidates, "https://example.com/book")

	if candidates[0].MatchedTarget != "Newark" || candidates[1].MatchedTarget != "Bayonne" {
		t.Errorf("入力スライスが変更されています: %+v", candidates)
	}
}

func TestLogChannel_Notify_WritesFormattedMail(t *testing.T) {
	var buf bytes.Buffer
	ch := NewLogChannel("dest@example.com", "https://example.com/book", newTestLogger(&buf))

	err := ch.Notify(context.Background(), []model.AppointmentCandidate{weekdayCandidate("Newark")})
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"dest@example.com", "NJ MVC REAL ID Appointment Alert!", "Location: Newark"} {
		if !strings.Contains(out, want) {
			t.Errorf("ログ出力に %q が含まれていません: %s", want, out)
		}
	}
}

func TestLogChannel_Notify_EmptyCandidates_NoOutput(t *testing.T) {
	var buf bytes.Buffer
	ch := NewLogChannel("dest@example.com", "https://example.com/book", newTestLogger(&buf))

	if err := ch.Notify(context.Background(), nil); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("候補がない場合は出力しない想定です: %s", buf.String())
	}
}

func TestNewChannel_MailConfigured_ReturnsSMTPChannel(t *testing.T) {
	cfg := &config.Config{
		SMTPServer:    "smtp.example.com",
		SMTPPort:      587,
		EmailAddress:  "from@example.com",
		EmailPassword: "secret",
		TargetEmail:   "dest@example.com",
		TargetURL:     "https://example.com/book",
	}

	var buf bytes.Buffer
	ch := NewChannel(cfg, newTestLogger(&buf))
	if _, ok := ch.(*SMTPChannel); !ok {
		t.Errorf("SMTPChannelが選択される想定です: %T", ch)
	}
}

func TestNewChannel_MailNotConfigured_FallsBackToLogChannel(t *testing.T) {
	cfg := &config.Config{TargetURL: "https://example.com/book"}

	var buf bytes.Buffer
	ch := NewChannel(cfg, newTestLogger(&buf))
	if _, ok := ch.(*LogChannel); !ok {
		t.Errorf("LogChannelが選択される想定です: %T", ch)
	}
	if !strings.Contains(buf.String(), "フォールバック") {
		t.Errorf("フォールバックの警告ログが出力される想定です: %s", buf.String())
	}
}

func TestSMTPChannel_Notify_EmptyCandidates_SkipsSend(t *testing.T) {
	var buf bytes.Buffer
	ch := NewSMTPChannel(SMTPConfig{Server: "smtp.invalid", Port: 587}, newTestLogger(&buf))

	// 候補が空なら接続を試みずに成功する。
	if err := ch.Notify(context.Background(), nil); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
}
