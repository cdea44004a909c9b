// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/mvcwatch/internal/model"
	"github.com/hitoshi/mvcwatch/internal/security"
)

// StateBackend は通知状態ストアのバッキング種別を表す。
type StateBackend string

const (
	// StateBackendMemory はプロセス内メモリのみのエフェメラルなバッキング。
	StateBackendMemory StateBackend = "memory"
	// StateBackendRedis はRedis上の単一ドキュメントによる永続バッキング。
	StateBackendRedis StateBackend = "redis"
	// StateBackendPostgres はPostgreSQL上の単一行ドキュメントによる永続バッキング。
	StateBackendPostgres StateBackend = "postgres"
)

// defaultTargetURL はNJ MVCのREAL ID予約ウィザードのURL。
const defaultTargetURL = "https://telegov.njportal.com/njmvc/AppointmentWizard/12"

// defaultCooldownHours は同一予約枠の再通知を抑制するデフォルト時間。
const defaultCooldownHours = 12

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Fetch
	TargetURL    string
	FetchTimeout time.Duration

	// Watch
	WatchAllLocations bool
	WatchLocations    []string

	// Dedup
	Cooldown time.Duration

	// Scheduling
	CheckInterval time.Duration

	// Mail
	SMTPServer    string
	SMTPPort      int
	EmailAddress  string
	EmailPassword string
	TargetEmail   string

	// State
	StateBackend  StateBackend
	RedisAddr     string
	RedisPassword string
	StateKey      string
	DatabaseURL   string

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む（存在しなくてもよい）。
// すべての項目にデフォルト値があり、数値の不正はデフォルトで補われるため、
// エラーになるのはバッキング指定と接続情報の組み合わせが矛盾する場合のみ。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.TargetURL = getEnvString("MVC_URL", defaultTargetURL)
	if err := security.ValidateTargetURL(cfg.TargetURL); err != nil {
		return nil, model.NewConfigInvalidError(fmt.Sprintf("MVC_URLが不正です: %v", err))
	}
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)

	cfg.WatchAllLocations = getEnvBool("WATCH_ALL_LOCATIONS", true)
	cfg.WatchLocations = splitList(getEnvString("WATCH_LOCATIONS", ""))
	if len(cfg.WatchLocations) == 0 {
		cfg.WatchLocations = DefaultWatchLocations()
	}

	cooldownHours := getEnvInt("COOLDOWN_HOURS", defaultCooldownHours)
	if cooldownHours <= 0 {
		// クールダウンが正の値でないとRecentlyNotifiedが常にfalseになり
		// 毎回再通知してしまうため、デフォルトに補正する。
		slog.Warn("COOLDOWN_HOURSが正の値ではないためデフォルトを使用します",
			slog.Int("value", cooldownHours),
			slog.Int("default", defaultCooldownHours),
		)
		cooldownHours = defaultCooldownHours
	}
	cfg.Cooldown = time.Duration(cooldownHours) * time.Hour
	cfg.CheckInterval = getEnvDuration("CHECK_INTERVAL", 60*time.Minute)

	cfg.SMTPServer = os.Getenv("SMTP_SERVER")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.EmailAddress = os.Getenv("EMAIL_ADDRESS")
	cfg.EmailPassword = os.Getenv("EMAIL_PASSWORD")
	cfg.TargetEmail = os.Getenv("TARGET_EMAIL")

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.StateKey = getEnvString("STATE_KEY", "mvcwatch:notified")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	backend, err := resolveStateBackend(os.Getenv("STATE_BACKEND"), cfg)
	if err != nil {
		return nil, err
	}
	cfg.StateBackend = backend

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

// resolveStateBackend はバッキング種別を決定する。
// 明示指定がない場合は接続情報の有無から推定し、
// 何も設定されていなければメモリバッキングにフォールバックする。
// 明示指定に対応する接続情報が欠けている場合はエラーを返す。
func resolveStateBackend(explicit string, cfg *Config) (StateBackend, error) {
	switch StateBackend(strings.ToLower(explicit)) {
	case StateBackendMemory:
		return StateBackendMemory, nil
	case StateBackendRedis:
		if cfg.RedisAddr == "" {
			return "", model.NewConfigInvalidError("STATE_BACKEND=redis にはREDIS_ADDRの設定が必要です")
		}
		return StateBackendRedis, nil
	case StateBackendPostgres:
		if cfg.DatabaseURL == "" {
			return "", model.NewConfigInvalidError("STATE_BACKEND=postgres にはDATABASE_URLの設定が必要です")
		}
		return StateBackendPostgres, nil
	case "":
		// 未指定: 接続情報から推定
		if cfg.RedisAddr != "" {
			return StateBackendRedis, nil
		}
		if cfg.DatabaseURL != "" {
			return StateBackendPostgres, nil
		}
		return StateBackendMemory, nil
	default:
		return "", model.NewConfigInvalidError(fmt.Sprintf("未知のSTATE_BACKENDです: %s", explicit))
	}
}

// MailConfigured はメール送信に必要な設定がすべて揃っているかを返す。
// 揃っていない場合、通知はログ出力チャネルにフォールバックする。
func (c *Config) MailConfigured() bool {
	return c.SMTPServer != "" && c.SMTPPort > 0 &&
		c.EmailAddress != "" && c.EmailPassword != "" && c.TargetEmail != ""
}

// Durable は通知状態がプロセスをまたいで保持されるバッキングかを返す。
func (c *Config) Durable() bool {
	return c.StateBackend != StateBackendMemory
}

// ActiveTargets は監視対象の正規名リストを返す。
// WatchAllLocationsがtrueの場合は既知の全拠点、falseの場合は明示リストを返す。
// 返り値の順序が監視リスト順のタイブレークとしてそのまま使用される。
func (c *Config) ActiveTargets() []string {
	if c.WatchAllLocations {
		return AllKnownLocations()
	}
	return c.WatchLocations
}

// splitList はカンマ区切りの設定値をトリムして分割する。空要素は捨てる。
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
