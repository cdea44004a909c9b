package model

import "fmt"

// WatchError はコンポーネント境界で種別判定可能なエラーを表す。
// 呼び出し側はログの文面ではなくCodeで分岐する。
type WatchError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *WatchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is はerrors.Isでのコード一致判定を可能にする。
// 個別のメッセージを持つインスタンスも同一コードのセンチネルにマッチする。
func (e *WatchError) Is(target error) bool {
	t, ok := target.(*WatchError)
	return ok && t.Code == e.Code
}

// 定義済みエラーコード
const (
	// ErrCodeStructureNotFound は埋め込みデータのマーカーが見つからないことを示す。
	// 取得元ページのレイアウト変更を意味するため、人手での確認が必要になる。
	ErrCodeStructureNotFound = "STRUCTURE_NOT_FOUND"
	// ErrCodeMalformedData は埋め込みデータ本体の解析に失敗したことを示す。
	ErrCodeMalformedData = "MALFORMED_DATA"
	// ErrCodeFetchFailed はページ取得の失敗（タイムアウト含む）を示す。
	ErrCodeFetchFailed = "FETCH_FAILED"
	// ErrCodeStateUnavailable は永続ストアへのアクセス失敗を示す。
	ErrCodeStateUnavailable = "STATE_UNAVAILABLE"
	// ErrCodeNotifyFailed は通知チャネルでの配信失敗を示す。
	ErrCodeNotifyFailed = "NOTIFY_FAILED"
	// ErrCodeConfigInvalid は設定値の不備を示す。
	ErrCodeConfigInvalid = "CONFIG_INVALID"
)

// errors.Isでの種別判定に使用するセンチネル。
var (
	ErrStructureNotFound = &WatchError{Code: ErrCodeStructureNotFound, Message: "埋め込みデータのマーカーが見つかりません"}
	ErrMalformedData     = &WatchError{Code: ErrCodeMalformedData, Message: "埋め込みデータの解析に失敗しました"}
	ErrFetchFailed       = &WatchError{Code: ErrCodeFetchFailed, Message: "ページの取得に失敗しました"}
	ErrStateUnavailable  = &WatchError{Code: ErrCodeStateUnavailable, Message: "通知状態ストアへのアクセスに失敗しました"}
)

// NewStructureNotFoundError はマーカー未検出エラーを生成する。
func NewStructureNotFoundError(marker string) *WatchError {
	return &WatchError{
		Code:    ErrCodeStructureNotFound,
		Message: fmt.Sprintf("埋め込みデータのマーカーが見つかりません: %s（ページ構造が変更された可能性があります）", marker),
	}
}

// NewMalformedDataError はデータ解析失敗エラーを生成する。
func NewMalformedDataError(reason string) *WatchError {
	return &WatchError{
		Code:    ErrCodeMalformedData,
		Message: fmt.Sprintf("埋め込みデータの解析に失敗しました: %s", reason),
	}
}

// NewFetchFailedError はページ取得失敗エラーを生成する。
func NewFetchFailedError(reason string) *WatchError {
	return &WatchError{
		Code:    ErrCodeFetchFailed,
		Message: fmt.Sprintf("ページの取得に失敗しました: %s", reason),
	}
}

// NewStateUnavailableError は永続ストアのアクセス失敗エラーを生成する。
func NewStateUnavailableError(reason string) *WatchError {
	return &WatchError{
		Code:    ErrCodeStateUnavailable,
		Message: fmt.Sprintf("通知状態ストアへのアクセスに失敗しました: %s", reason),
	}
}

// NewNotifyFailedError は通知配信失敗エラーを生成する。
func NewNotifyFailedError(reason string) *WatchError {
	return &WatchError{
		Code:    ErrCodeNotifyFailed,
		Message: fmt.Sprintf("通知の配信に失敗しました: %s", reason),
	}
}

// NewConfigInvalidError は設定不備エラーを生成する。
func NewConfigInvalidError(reason string) *WatchError {
	return &WatchError{
		Code:    ErrCodeConfigInvalid,
		Message: fmt.Sprintf("設定が不正です: %s", reason),
	}
}
