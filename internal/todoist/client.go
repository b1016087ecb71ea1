package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// defaultBaseURL は Todoist API のベースURLです。REST・Sync 両方のエンドポイントを含みます。
	defaultBaseURL = "https://api.todoist.com"

	// defaultHTTPTimeout はHTTPクライアント既定のタイムアウトです。
	// コア自身はタイムアウトポリシーを持たず、クライアント任せにします。
	defaultHTTPTimeout = 30 * time.Second

	// defaultHydrationInterval は完了タスクを1件ずつ取得する際の呼び出し間隔です。
	// APIのレート制限を避けるためのペーシングであり、リトライではありません。
	defaultHydrationInterval = 500 * time.Millisecond
)

// Service は Todoist API との通信機能の抽象化を提供し、DIで使用されます。
type Service interface {
	// GetProject は指定されたプロジェクトのメタ情報を取得します。
	GetProject(ctx context.Context, projectID string) (Project, error)
	// ListOpenTasks はプロジェクトの未完了タスクをAPIの返却順のまま返します。
	ListOpenTasks(ctx context.Context, projectID string) ([]TaskInfo, error)
	// ListCompletedTasks はプロジェクトの完了タスクを完了日時の昇順で返します。
	ListCompletedTasks(ctx context.Context, projectID string) ([]TaskInfo, error)
	// GetTask は1件のタスクを取得します。
	GetTask(ctx context.Context, taskID string) (Task, error)
}

// Client は Service インターフェースを実装する具体的な構造体です。
type Client struct {
	baseURL           string
	token             string
	httpClient        *http.Client
	hydrationInterval time.Duration
}

// Option はClientの初期化オプションを設定するための関数です。
type Option func(*Client)

// WithBaseURL はAPIのベースURLを上書きするオプションです。主にテストで使用します。
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient は内部で使用するHTTPクライアントを差し替えるオプションです。
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHydrationInterval は完了タスク取得時の呼び出し間隔を上書きするオプションです。
func WithHydrationInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.hydrationInterval = interval
	}
}

// NewClient はClientを初期化します。
// Serviceインターフェースを返します。
func NewClient(token string, opts ...Option) Service {
	client := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			// ネットワークのハングアップを防ぐためのタイムアウト
			Timeout: defaultHTTPTimeout,
		},
		hydrationInterval: defaultHydrationInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GetProject は GET /rest/v2/projects/{id} を呼び出します。
func (c *Client) GetProject(ctx context.Context, projectID string) (Project, error) {
	var project Project
	path := "/rest/v2/projects/" + url.PathEscape(projectID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &project); err != nil {
		return Project{}, fmt.Errorf("failed to fetch project %s: %w", projectID, err)
	}
	return project, nil
}

// ListOpenTasks は GET /rest/v2/tasks?project_id= を呼び出します。
// 返却順はAPIのレスポンス順のままで、並べ替えは一切行いません。
func (c *Client) ListOpenTasks(ctx context.Context, projectID string) ([]TaskInfo, error) {
	var tasks []Task
	query := url.Values{"project_id": {projectID}}
	path := "/rest/v2/tasks?" + query.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, fmt.Errorf("failed to list tasks of project %s: %w", projectID, err)
	}
	return newTaskInfos(tasks)
}

// GetTask は GET /rest/v2/tasks/{id} を呼び出します。
func (c *Client) GetTask(ctx context.Context, taskID string) (Task, error) {
	var task Task
	path := "/rest/v2/tasks/" + url.PathEscape(taskID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &task); err != nil {
		return Task{}, fmt.Errorf("failed to fetch task %s: %w", taskID, err)
	}
	return task, nil
}

// ListCompletedTasks は Sync API の completed/get_all で完了タスクの一覧を取得し、
// 1件ずつ REST API で詳細を取得し直して返します。返却順は完了日時の昇順です。
// 完了後に削除されたタスク (REST 側が 404 を返すもの) は黙ってスキップします。
func (c *Client) ListCompletedTasks(ctx context.Context, projectID string) ([]TaskInfo, error) {
	form := url.Values{"project_id": {projectID}}
	var completed completedResponse
	if err := c.doJSON(ctx, http.MethodPost, "/sync/v9/completed/get_all", form, &completed); err != nil {
		return nil, fmt.Errorf("failed to list completed tasks of project %s: %w", projectID, err)
	}

	items, err := sortByCompletedAt(completed.Items)
	if err != nil {
		return nil, err
	}

	slog.Info("完了タスクの詳細を取得します。", "project_id", projectID, "count", len(items))

	infos := make([]TaskInfo, 0, len(items))
	for i, item := range items {
		// レート制限対策のペーシング (初回は待たない)
		if i > 0 {
			select {
			case <-time.After(c.hydrationInterval):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		task, err := c.GetTask(ctx, item.TaskID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				slog.Debug("完了タスクが見つからないためスキップします。", "task_id", item.TaskID)
				continue
			}
			return nil, err
		}
		slog.Debug("完了タスクを取得しました。", "task_id", item.TaskID, "index", i+1, "total", len(items))

		info, err := NewTaskInfo(task)
		if err != nil {
			return nil, err
		}
		// Sync API 側の完了フラグを信頼する。REST 側の詳細が万一 false を
		// 返しても、このリストに載っている時点で完了済みである。
		info.Completed = true
		infos = append(infos, info)
	}
	return infos, nil
}

// sortByCompletedAt は完了日時の昇順に並べた completedItem のコピーを返します。
func sortByCompletedAt(items []completedItem) ([]completedItem, error) {
	type timedItem struct {
		item completedItem
		at   time.Time
	}
	timed := make([]timedItem, 0, len(items))
	for _, item := range items {
		at, err := time.Parse(dueDateTimeLayout, strings.TrimSuffix(item.CompletedAt, "Z"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at %q of task %s: %w", item.CompletedAt, item.TaskID, err)
		}
		timed = append(timed, timedItem{item: item, at: at})
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].at.Before(timed[j].at)
	})
	sorted := make([]completedItem, len(timed))
	for i, entry := range timed {
		sorted[i] = entry.item
	}
	return sorted, nil
}

// doJSON はAPIを1回呼び出し、レスポンスJSONを out にデコードします。
// form が nil でない場合はフォームエンコードのPOSTボディとして送信します。
func (c *Client) doJSON(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// トランスポート層の失敗はすべて一時的エラーとして扱う
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if err := statusToError(resp.StatusCode, respBody); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// statusToError はHTTPステータスコードをエラー種別へ対応付けます。
func statusToError(statusCode int, body []byte) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrAuth, statusCode)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w (status %d)", ErrNotFound, statusCode)
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return &TransientError{Err: fmt.Errorf("todoist API returned status %d: %s", statusCode, trimBody(body))}
	default:
		return fmt.Errorf("todoist API returned unexpected status %d: %s", statusCode, trimBody(body))
	}
}

// trimBody はエラーメッセージへ載せるレスポンスボディを短く整えます。
func trimBody(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
