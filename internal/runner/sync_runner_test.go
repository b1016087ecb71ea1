package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoist-git-sync-go/internal/config"
	"todoist-git-sync-go/internal/export"
	"todoist-git-sync-go/internal/gitclient"
	"todoist-git-sync-go/internal/notify"
	"todoist-git-sync-go/internal/todoist"
)

func testConfig() config.SyncConfig {
	return config.SyncConfig{
		GitRepositoryURL: "git@github.com:owner/repo.git",
		GitName:          "CI Bot",
		GitEmail:         "ci@example.com",
		TodoistToken:     "test-token",
		TodoistProjectID: "42",
		ExportPath:       "ROADMAP.md",
		CommitMessage:    "Update roadmap",
	}
}

func testRenderer(t *testing.T) *export.Renderer {
	t.Helper()
	renderer, err := export.NewRenderer(export.WithClock(func() time.Time {
		return time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return renderer
}

// happyPathMocks は全ステップが成功するモック一式と呼び出し履歴を返します。
func happyPathMocks(t *testing.T, localPath string, calls *[]string) (*mockTodoistService, *mockGitService) {
	t.Helper()
	repo, err := git.PlainInit(localPath, false)
	require.NoError(t, err)

	todoistMock := &mockTodoistService{
		GetProjectFunc: func(ctx context.Context, projectID string) (todoist.Project, error) {
			*calls = append(*calls, "project")
			assert.Equal(t, "42", projectID)
			return todoist.Project{ID: "42", Name: "Demo", URL: "https://todoist.com/showProject?id=42"}, nil
		},
		ListOpenTasksFunc: func(ctx context.Context, projectID string) ([]todoist.TaskInfo, error) {
			*calls = append(*calls, "open")
			return []todoist.TaskInfo{
				{ID: "1", URL: "u1", Title: "Buy milk", Priority: 1},
			}, nil
		},
		ListCompletedTasksFunc: func(ctx context.Context, projectID string) ([]todoist.TaskInfo, error) {
			*calls = append(*calls, "completed")
			return []todoist.TaskInfo{
				{ID: "2", URL: "u2", Title: "Pay rent", Completed: true, Priority: 1},
			}, nil
		},
	}
	gitMock := &mockGitService{
		CloneOrUpdateFunc: func(ctx context.Context, repositoryURL string) (*git.Repository, error) {
			*calls = append(*calls, "clone")
			return repo, nil
		},
		HasChangesFunc: func(repo *git.Repository) (bool, error) {
			*calls = append(*calls, "status")
			return true, nil
		},
		CommitAndPushFunc: func(ctx context.Context, repo *git.Repository, exportPath, message string) error {
			*calls = append(*calls, "push")
			assert.Equal(t, "ROADMAP.md", exportPath)
			assert.Equal(t, "Update roadmap", message)
			return nil
		},
	}
	return todoistMock, gitMock
}

func TestRunHappyPath(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)

	var notified []notify.SyncResult
	notifyMock := &mockNotifyService{
		NotifySyncCompletedFunc: func(result notify.SyncResult) error {
			notified = append(notified, result)
			return nil
		},
	}

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), notifyMock, localPath)
	result, err := r.Run(context.Background(), testConfig())

	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.Equal(t, "Demo", result.ProjectName)
	assert.Equal(t, 1, result.OpenTasks)
	assert.Equal(t, 1, result.CompletedTasks)

	// Todoistの読み取りがすべて終わってからGit操作へ進む
	assert.Equal(t, []string{"project", "open", "completed", "clone", "status", "push"}, calls)

	content, err := os.ReadFile(filepath.Join(localPath, "ROADMAP.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Roadmap")
	assert.Contains(t, string(content), "- [ ] Buy milk [🔗][1]")
	assert.Contains(t, string(content), "- [x] Pay rent [🔗][2]")

	require.Len(t, notified, 1)
	assert.Equal(t, "Demo", notified[0].ProjectName)
	assert.Equal(t, "git@github.com:owner/repo.git", notified[0].RepositoryURL)
}

func TestRunSkipsCommitWhenUnchanged(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)
	gitMock.HasChangesFunc = func(repo *git.Repository) (bool, error) {
		calls = append(calls, "status")
		return false, nil
	}

	var notified int
	notifyMock := &mockNotifyService{
		NotifySyncCompletedFunc: func(result notify.SyncResult) error {
			notified++
			return nil
		},
	}

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), notifyMock, localPath)
	result, err := r.Run(context.Background(), testConfig())

	require.NoError(t, err)
	assert.False(t, result.Committed)
	// コミットもプッシュも通知も行われない
	assert.Equal(t, []string{"project", "open", "completed", "clone", "status"}, calls)
	assert.Zero(t, notified)
}

func TestRunAbortsOnAuthError(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)
	todoistMock.GetProjectFunc = func(ctx context.Context, projectID string) (todoist.Project, error) {
		calls = append(calls, "project")
		return todoist.Project{}, todoist.ErrAuth
	}

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), nil, localPath)
	_, err := r.Run(context.Background(), testConfig())

	assert.ErrorIs(t, err, todoist.ErrAuth)
	// Git操作もファイル書き込みも始まっていない
	assert.Equal(t, []string{"project"}, calls)
	_, statErr := os.Stat(filepath.Join(localPath, "ROADMAP.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunAbortsOnTransientTaskError(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)
	todoistMock.ListCompletedTasksFunc = func(ctx context.Context, projectID string) ([]todoist.TaskInfo, error) {
		calls = append(calls, "completed")
		return nil, &todoist.TransientError{Err: errors.New("connection reset")}
	}

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), nil, localPath)
	_, err := r.Run(context.Background(), testConfig())

	var transient *todoist.TransientError
	assert.ErrorAs(t, err, &transient)
	assert.Equal(t, []string{"project", "open", "completed"}, calls)
}

func TestRunWriteFailure(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)

	cfg := testConfig()
	// 親ディレクトリが存在しないパスへの書き込みは失敗する
	cfg.ExportPath = "docs/ROADMAP.md"

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), nil, localPath)
	_, err := r.Run(context.Background(), cfg)

	var writeErr *export.WriteError
	assert.ErrorAs(t, err, &writeErr)
	// 書き込み失敗以降の変更確認には進まない
	assert.Equal(t, []string{"project", "open", "completed", "clone"}, calls)
}

func TestRunPushFailureReturnsSyncError(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)
	gitMock.CommitAndPushFunc = func(ctx context.Context, repo *git.Repository, exportPath, message string) error {
		calls = append(calls, "push")
		return &gitclient.SyncError{Op: "push", Err: errors.New("non-fast-forward update")}
	}

	var notified int
	notifyMock := &mockNotifyService{
		NotifySyncCompletedFunc: func(result notify.SyncResult) error {
			notified++
			return nil
		},
	}

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), notifyMock, localPath)
	_, err := r.Run(context.Background(), testConfig())

	var syncErr *gitclient.SyncError
	assert.ErrorAs(t, err, &syncErr)
	assert.Zero(t, notified)
}

func TestRunWithoutNotifier(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), nil, localPath)
	result, err := r.Run(context.Background(), testConfig())

	require.NoError(t, err)
	assert.True(t, result.Committed)
}

func TestRunNotifyFailureDoesNotFailRun(t *testing.T) {
	localPath := t.TempDir()
	var calls []string
	todoistMock, gitMock := happyPathMocks(t, localPath, &calls)
	notifyMock := &mockNotifyService{
		NotifySyncCompletedFunc: func(result notify.SyncResult) error {
			return errors.New("webhook unreachable")
		},
	}

	r := NewSyncRunner(todoistMock, gitMock, testRenderer(t), notifyMock, localPath)
	result, err := r.Run(context.Background(), testConfig())

	// 通知はベストエフォートであり、同期の成否に影響しない
	require.NoError(t, err)
	assert.True(t, result.Committed)
}
