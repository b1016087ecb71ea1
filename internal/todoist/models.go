package todoist

import (
	"fmt"
	"strings"
	"time"
)

// Task は Todoist REST API が返すタスクのワイヤ表現です。
type Task struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Description string `json:"description"`
	IsCompleted bool   `json:"is_completed"`
	Priority    int    `json:"priority"` // 1 (通常) 〜 4 (最高)
	Order       int    `json:"order"`    // プロジェクト内での並び順ヒント
	ParentID    string `json:"parent_id"`
	URL         string `json:"url"`
	Due         *Due   `json:"due"`
}

// Due はタスクの期限情報です。Datetime は時刻付き期限のときのみ設定されます。
type Due struct {
	Date     string `json:"date"`     // 例: 2026-08-23
	Datetime string `json:"datetime"` // 例: 2026-08-23T18:00:00Z
}

// Project は Todoist のプロジェクト情報です。
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// completedItem は Sync API (completed/get_all) が返す完了タスクの1件分です。
// タスク本体の情報は別途 REST API で取得し直す必要があります。
type completedItem struct {
	TaskID      string `json:"task_id"`
	CompletedAt string `json:"completed_at"`
}

// completedResponse は completed/get_all のレスポンス全体です。
type completedResponse struct {
	Items []completedItem `json:"items"`
}

// TaskInfo は1件のタスクを正規化したドメインモデルです。
// APIのワイヤ表現から必要な項目だけを取り出し、期限を time.Time に解決します。
type TaskInfo struct {
	ID          string
	URL         string
	Title       string
	Description string // 空文字は説明なし
	DueAt       *time.Time
	Completed   bool
	Priority    int
}

const (
	dueDateTimeLayout = "2006-01-02T15:04:05"
	dueDateLayout     = "2006-01-02"
)

// NewTaskInfo はワイヤ表現のタスクを TaskInfo に変換します。
func NewTaskInfo(task Task) (TaskInfo, error) {
	dueAt, err := parseDue(task.Due)
	if err != nil {
		return TaskInfo{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	return TaskInfo{
		ID:          task.ID,
		URL:         task.URL,
		Title:       task.Content,
		Description: task.Description,
		DueAt:       dueAt,
		Completed:   task.IsCompleted,
		Priority:    task.Priority,
	}, nil
}

// newTaskInfos は順序を保ったままワイヤ表現のタスク列を変換します。
func newTaskInfos(tasks []Task) ([]TaskInfo, error) {
	infos := make([]TaskInfo, 0, len(tasks))
	for _, task := range tasks {
		info, err := NewTaskInfo(task)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// parseDue は期限を解釈します。時刻付きの Datetime (末尾の Z は無視して
// ローカル時刻として扱う) を優先し、無ければ Date を使います。
func parseDue(due *Due) (*time.Time, error) {
	if due == nil {
		return nil, nil
	}
	if due.Datetime != "" {
		t, err := time.Parse(dueDateTimeLayout, strings.TrimSuffix(due.Datetime, "Z"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse due datetime %q: %w", due.Datetime, err)
		}
		return &t, nil
	}
	t, err := time.Parse(dueDateLayout, due.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse due date %q: %w", due.Date, err)
	}
	return &t, nil
}
