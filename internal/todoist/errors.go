package todoist

import (
	"errors"
	"fmt"
)

// API呼び出しの失敗種別。呼び出し側は errors.Is / errors.As で判別します。
var (
	// ErrAuth はAPIトークンが無効な場合 (HTTP 401/403) に返されます。
	ErrAuth = errors.New("todoist: invalid API token")
	// ErrNotFound は指定されたプロジェクトまたはタスクが存在しない場合に返されます。
	ErrNotFound = errors.New("todoist: resource not found")
)

// TransientError は一時的な障害 (ネットワークエラー・HTTP 5xx・レート制限) を表します。
// 呼び出し側はリトライ可能として扱えますが、クライアント自身はリトライしません。
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("todoist: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
