package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvTodoistToken は設定ファイルの todoistToken を上書きする環境変数名です。
// トークンを設定ファイルに書きたくない運用（CI など）のために用意しています。
const EnvTodoistToken = "TODOIST_API_TOKEN"

// SyncConfig は同期の実行に必要なすべての設定を含みます。
// この構造体は、設定ファイルから各サービスへ設定を渡すための共通のデータモデルです。
// 一度読み込んだ後は変更されません。
type SyncConfig struct {
	// --- 必須項目 ---
	GitRepositoryURL string    `yaml:"gitRepositoryUrl"` // エクスポート先GitリポジトリのURL (SSH/HTTPS)
	GitName          string    `yaml:"gitName"`          // コミットに使用するユーザー名
	GitEmail         string    `yaml:"gitEmail"`         // コミットに使用するメールアドレス
	TodoistToken     string    `yaml:"todoistToken"`     // Todoist APIトークン
	TodoistProjectID ProjectID `yaml:"todoistProjectId"` // 同期対象のプロジェクトID
	ExportPath       string    `yaml:"exportPath"`       // リポジトリ内のエクスポート先相対パス
	CommitMessage    string    `yaml:"commitMessage"`    // コミットメッセージ

	// --- 任意項目 ---
	SSHKeyPath       string `yaml:"sshKeyPath"`       // Git SSH認証に使用する秘密鍵のパス
	SkipHostKeyCheck bool   `yaml:"skipHostKeyCheck"` // SSHホストキー検証をスキップするか
	SlackWebhookURL  string `yaml:"slackWebhookUrl"`  // 設定時のみ同期結果をSlackへ通知
}

// ProjectID は設定ファイル上で文字列・数値のどちらでも指定できるプロジェクトIDです。
// どちらで書かれていても内部では文字列として扱います。
type ProjectID string

// UnmarshalYAML は yaml.Unmarshaler インターフェースを満たします。
func (p *ProjectID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("todoistProjectId は文字列または数値である必要があります (line %d)", value.Line)
	}
	*p = ProjectID(value.Value)
	return nil
}

// String は ProjectID を通常の文字列として返します。
func (p ProjectID) String() string {
	return string(p)
}

// Error は設定ファイルの読み込み・検証の失敗を表すエラー型です。
// 必須キーの不足は Missing に、それ以外の失敗は Err にまとめられます。
type Error struct {
	Path    string   // 対象の設定ファイルパス
	Missing []string // 不足している必須キー (検証失敗時のみ)
	Err     error    // 元のエラー (ファイルIO・YAMLパースなど)
}

func (e *Error) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("設定ファイル %s に必須キーが不足しています: %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("設定ファイル %s の読み込みに失敗しました: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Load は指定されたYAMLファイルを読み込み、検証済みの SyncConfig を返します。
// ファイルの読み込み以外の副作用はありません (環境変数 TODOIST_API_TOKEN の参照を除く)。
func Load(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	var cfg SyncConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	// 未知のキーを拒否する。必須キーのタイプミスを「キー不足」ではなく
	// パースエラーとして即座に検出するため。
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	// 環境変数のトークンが設定されている場合はそちらを優先する
	if token := os.Getenv(EnvTodoistToken); token != "" {
		cfg.TodoistToken = token
	}

	if err := cfg.validate(path); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate は必須キーの存在と値の妥当性をチェックします。
// 不足キーは一度の実行ですべて報告します。
func (c *SyncConfig) validate(path string) error {
	required := map[string]string{
		"gitRepositoryUrl": c.GitRepositoryURL,
		"gitName":          c.GitName,
		"gitEmail":         c.GitEmail,
		"todoistToken":     c.TodoistToken,
		"todoistProjectId": c.TodoistProjectID.String(),
		"exportPath":       c.ExportPath,
		"commitMessage":    c.CommitMessage,
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &Error{Path: path, Missing: missing}
	}

	// exportPath はクローンしたリポジトリの内側を指す必要がある
	if !filepath.IsLocal(c.ExportPath) {
		return &Error{Path: path, Err: fmt.Errorf("exportPath はリポジトリ内の相対パスである必要があります: %s", c.ExportPath)}
	}

	return nil
}
