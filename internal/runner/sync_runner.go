package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"todoist-git-sync-go/internal/config"
	"todoist-git-sync-go/internal/export"
	"todoist-git-sync-go/internal/gitclient"
	"todoist-git-sync-go/internal/notify"
	"todoist-git-sync-go/internal/todoist"
)

// SyncRunner はTodoistからGitリポジトリへの同期のビジネスロジックを実行します。
// 必要な依存関係（サービス）をフィールドとして保持します。
type SyncRunner struct {
	todoistService todoist.Service
	gitService     gitclient.Service
	renderer       *export.Renderer
	notifier       notify.Service // 任意。nil の場合は通知しない。
	localPath      string
}

// Result は同期1回分の実行結果です。
type Result struct {
	ProjectName    string
	OpenTasks      int
	CompletedTasks int
	Committed      bool
}

// NewSyncRunner は SyncRunner の新しいインスタンスを生成します。
// 依存関係はコンストラクタ経由で注入されます。
func NewSyncRunner(
	todoistService todoist.Service,
	gitService gitclient.Service,
	renderer *export.Renderer,
	notifier notify.Service,
	localPath string,
) *SyncRunner {
	return &SyncRunner{
		todoistService: todoistService,
		gitService:     gitService,
		renderer:       renderer,
		notifier:       notifier,
		localPath:      localPath,
	}
}

// Run は同期を1回実行します。
// Todoistへの読み取りをすべて終えてからGit操作へ進み、途中で失敗した場合は
// その時点で中断します。リモートに変更が及ぶのは最後のプッシュのみです。
func (r *SyncRunner) Run(ctx context.Context, cfg config.SyncConfig) (*Result, error) {
	projectID := string(cfg.TodoistProjectID)

	// 1. プロジェクト情報の取得
	slog.Info("1. Todoistプロジェクト情報の取得を開始します。", "project_id", projectID)
	project, err := r.todoistService.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト情報の取得に失敗しました: %w", err)
	}

	// 2. 未完了タスクの取得 (APIの返却順を保持)
	slog.Info("2. 未完了タスクの取得を開始します。", "project", project.Name)
	openTasks, err := r.todoistService.ListOpenTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("未完了タスクの取得に失敗しました: %w", err)
	}

	// 3. 完了タスクの取得 (完了日時の昇順)
	slog.Info("3. 完了タスクの取得を開始します。")
	completedTasks, err := r.todoistService.ListCompletedTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("完了タスクの取得に失敗しました: %w", err)
	}
	slog.Info("タスクの取得が完了しました。", "open", len(openTasks), "completed", len(completedTasks))

	// 4. ロードマップ文書の組み立て (純粋な変換。この先は外部への書き込みを伴う)
	slog.Info("4. ロードマップ文書を組み立てます。")
	document, err := r.renderer.Render(project, openTasks, completedTasks)
	if err != nil {
		return nil, fmt.Errorf("文書の生成に失敗しました: %w", err)
	}

	// 5. Gitリポジトリのセットアップ
	slog.Info("5. Gitリポジトリのセットアップを開始します。", "url", cfg.GitRepositoryURL)
	repo, err := r.gitService.CloneOrUpdate(ctx, cfg.GitRepositoryURL)
	if err != nil {
		return nil, fmt.Errorf("リポジトリのセットアップに失敗しました: %w", err)
	}

	// 6. エクスポートファイルの書き込み
	exportPath := filepath.Join(r.localPath, cfg.ExportPath)
	slog.Info("6. エクスポートファイルを書き込みます。", "path", exportPath)
	if err := export.WriteFile(exportPath, document); err != nil {
		return nil, fmt.Errorf("エクスポート処理に失敗しました: %w", err)
	}

	result := &Result{
		ProjectName:    project.Name,
		OpenTasks:      len(openTasks),
		CompletedTasks: len(completedTasks),
	}

	// 7. 変更確認 (内容が前回と同じならコミットもプッシュもしない)
	slog.Info("7. 変更の有無を確認します。")
	hasChanges, err := r.gitService.HasChanges(repo)
	if err != nil {
		return nil, fmt.Errorf("変更確認に失敗しました: %w", err)
	}
	if !hasChanges {
		slog.Info("内容に変更がないため、コミットとプッシュをスキップします。")
		return result, nil
	}

	// 8. コミットとプッシュ
	slog.Info("8. コミットとプッシュを実行します。", "message", cfg.CommitMessage)
	if err := r.gitService.CommitAndPush(ctx, repo, cfg.ExportPath, cfg.CommitMessage); err != nil {
		return nil, fmt.Errorf("リポジトリへの反映に失敗しました: %w", err)
	}
	result.Committed = true

	// 9. 通知 (ベストエフォート。失敗しても同期自体は成功扱い)
	r.notifySyncCompleted(cfg, result)

	return result, nil
}

// notifySyncCompleted は設定されていれば同期完了を通知します。
// プッシュ完了後の付帯処理のため、失敗は警告ログに留めます。
func (r *SyncRunner) notifySyncCompleted(cfg config.SyncConfig, result *Result) {
	if r.notifier == nil {
		return
	}

	slog.Info("Slackへ同期完了を通知します。")
	err := r.notifier.NotifySyncCompleted(notify.SyncResult{
		ProjectName:    result.ProjectName,
		RepositoryURL:  cfg.GitRepositoryURL,
		OpenTasks:      result.OpenTasks,
		CompletedTasks: result.CompletedTasks,
	})
	if err != nil {
		slog.Warn("Slackへの通知に失敗しました。", "error", err)
	}
}
