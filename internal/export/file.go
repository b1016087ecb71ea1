package export

import (
	"fmt"
	"os"
)

// WriteError はエクスポートファイルの書き込み失敗を表すエラーです。
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("エクスポートファイルの書き込みに失敗しました (%s): %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteFile は文書を path へ書き込みます。既存の内容は切り詰めて上書きします。
// 親ディレクトリが存在しない場合もエラーになります (暗黙のディレクトリ作成は行いません)。
func WriteFile(path string, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
