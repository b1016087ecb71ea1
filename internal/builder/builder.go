package builder

import (
	"fmt"
	"log/slog"
	"os"

	"todoist-git-sync-go/internal/config"
	"todoist-git-sync-go/internal/export"
	"todoist-git-sync-go/internal/gitclient"
	"todoist-git-sync-go/internal/notify"
	"todoist-git-sync-go/internal/runner"
	"todoist-git-sync-go/internal/todoist"
)

// BuildSyncRunner は、必要な依存関係をすべて構築し、
// 実行可能な SyncRunner のインスタンスを返します。
// localPath が空の場合は一時作業ディレクトリを作成し、返される cleanup で削除します。
// localPath が指定されている場合はそのディレクトリを再利用し、cleanup は何もしません。
func BuildSyncRunner(cfg config.SyncConfig, localPath string) (*runner.SyncRunner, func(), error) {
	// 1. 作業ディレクトリの決定
	persistent := localPath != ""
	cleanup := func() {}
	if !persistent {
		tempDir, err := os.MkdirTemp("", "todoist-git-sync-")
		if err != nil {
			return nil, nil, fmt.Errorf("一時作業ディレクトリの作成に失敗しました: %w", err)
		}
		localPath = tempDir
		cleanup = func() {
			if err := os.RemoveAll(tempDir); err != nil {
				slog.Warn("一時作業ディレクトリの削除に失敗しました。", "path", tempDir, "error", err)
			}
		}
		slog.Debug("一時作業ディレクトリを作成しました。", "path", tempDir)
	}

	// 2. Todoist Service の構築
	todoistService := todoist.NewClient(cfg.TodoistToken)
	slog.Debug("Todoist Service を構築しました。", "project_id", string(cfg.TodoistProjectID))

	// 3. Git Service の構築
	// 一時ディレクトリへの使い捨てクローンはシャロー (深さ1) で十分。
	// 永続ディレクトリを再利用する場合は pull で更新できるように全履歴を取得する。
	gitOpts := []gitclient.Option{
		gitclient.WithSSHKey(cfg.SSHKeyPath),
		gitclient.WithInsecureSkipHostKeyCheck(cfg.SkipHostKeyCheck),
	}
	if persistent {
		gitOpts = append(gitOpts, gitclient.WithCloneDepth(0))
	}
	gitService := gitclient.NewClient(localPath, cfg.GitName, cfg.GitEmail, gitOpts...)
	slog.Debug("Git Service を構築しました。",
		slog.String("local_path", localPath),
		slog.Bool("persistent", persistent),
	)

	// 4. Renderer の構築
	renderer, err := export.NewRenderer()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("Renderer の構築に失敗しました: %w", err)
	}
	slog.Debug("Renderer を構築しました。")

	// 5. Notifier の構築 (Webhook URL が設定されている場合のみ)
	var notifier notify.Service
	if cfg.SlackWebhookURL != "" {
		notifier = notify.NewSlackClient(cfg.SlackWebhookURL)
		slog.Debug("Slack Notifier を構築しました。")
	}

	// 6. 依存関係を注入して Runner を組み立てる
	syncRunner := runner.NewSyncRunner(
		todoistService,
		gitService,
		renderer,
		notifier,
		localPath,
	)

	slog.Debug("SyncRunner の構築が完了しました。")
	return syncRunner, cleanup, nil
}
