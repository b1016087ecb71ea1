package gitclient

import "fmt"

// SyncError はGitリポジトリの同期操作の失敗を表すエラーです。
// Op には失敗した操作名 (clone, pull, status, commit, push など) が入ります。
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("git操作 (%s) に失敗しました: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
