package runner

import (
	"context"

	"github.com/go-git/go-git/v5"

	"todoist-git-sync-go/internal/notify"
	"todoist-git-sync-go/internal/todoist"
)

// mockTodoistService は todoist.Service のテスト用実装です。
// 各メソッドの挙動はFuncフィールドで差し替えます。
type mockTodoistService struct {
	GetProjectFunc         func(ctx context.Context, projectID string) (todoist.Project, error)
	ListOpenTasksFunc      func(ctx context.Context, projectID string) ([]todoist.TaskInfo, error)
	ListCompletedTasksFunc func(ctx context.Context, projectID string) ([]todoist.TaskInfo, error)
	GetTaskFunc            func(ctx context.Context, taskID string) (todoist.Task, error)
}

func (m *mockTodoistService) GetProject(ctx context.Context, projectID string) (todoist.Project, error) {
	if m.GetProjectFunc != nil {
		return m.GetProjectFunc(ctx, projectID)
	}
	return todoist.Project{}, nil
}

func (m *mockTodoistService) ListOpenTasks(ctx context.Context, projectID string) ([]todoist.TaskInfo, error) {
	if m.ListOpenTasksFunc != nil {
		return m.ListOpenTasksFunc(ctx, projectID)
	}
	return nil, nil
}

func (m *mockTodoistService) ListCompletedTasks(ctx context.Context, projectID string) ([]todoist.TaskInfo, error) {
	if m.ListCompletedTasksFunc != nil {
		return m.ListCompletedTasksFunc(ctx, projectID)
	}
	return nil, nil
}

func (m *mockTodoistService) GetTask(ctx context.Context, taskID string) (todoist.Task, error) {
	if m.GetTaskFunc != nil {
		return m.GetTaskFunc(ctx, taskID)
	}
	return todoist.Task{}, nil
}

// mockGitService は gitclient.Service のテスト用実装です。
type mockGitService struct {
	CloneOrUpdateFunc func(ctx context.Context, repositoryURL string) (*git.Repository, error)
	HasChangesFunc    func(repo *git.Repository) (bool, error)
	CommitAndPushFunc func(ctx context.Context, repo *git.Repository, exportPath, message string) error
}

func (m *mockGitService) CloneOrUpdate(ctx context.Context, repositoryURL string) (*git.Repository, error) {
	if m.CloneOrUpdateFunc != nil {
		return m.CloneOrUpdateFunc(ctx, repositoryURL)
	}
	return nil, nil
}

func (m *mockGitService) HasChanges(repo *git.Repository) (bool, error) {
	if m.HasChangesFunc != nil {
		return m.HasChangesFunc(repo)
	}
	return false, nil
}

func (m *mockGitService) CommitAndPush(ctx context.Context, repo *git.Repository, exportPath, message string) error {
	if m.CommitAndPushFunc != nil {
		return m.CommitAndPushFunc(ctx, repo, exportPath, message)
	}
	return nil
}

// mockNotifyService は notify.Service のテスト用実装です。
type mockNotifyService struct {
	NotifySyncCompletedFunc func(result notify.SyncResult) error
}

func (m *mockNotifyService) NotifySyncCompleted(result notify.SyncResult) error {
	if m.NotifySyncCompletedFunc != nil {
		return m.NotifySyncCompletedFunc(result)
	}
	return nil
}
