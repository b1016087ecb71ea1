package export

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"todoist-git-sync-go/internal/todoist"
)

// --- テンプレートのリソース定義 (go:embed) ---

//go:embed roadmap.md
var roadmapTemplate string

// documentData はロードマップのテンプレートに渡すデータ構造です。
// タスク行は事前に整形済みの文字列として渡します。
type documentData struct {
	ProjectName string
	ProjectURL  string
	Completed   []string
	Overdue     []weekSection
	Future      []weekSection
	Backlog     []string
	Refs        []string
}

// weekSection は週単位の見出しとその週のタスク行です。
type weekSection struct {
	Heading string
	Lines   []string
}

// Renderer はプロジェクトとタスクの一覧から決定的なMarkdown文書を組み立てます。
type Renderer struct {
	tmpl *template.Template
	now  func() time.Time
}

// RendererOption はRendererの初期化オプションを設定するための関数です。
type RendererOption func(*Renderer)

// WithClock は現在時刻の取得方法を差し替えるオプションです。主にテストで使用します。
// 現在時刻は「今週」の判定 (期限切れ/将来の振り分け) にのみ使用されます。
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer はRendererを初期化します。
// 埋め込みテンプレートの解析に失敗した場合はエラーを返します。
func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	tmpl, err := template.New("roadmap").Parse(roadmapTemplate)
	if err != nil {
		return nil, fmt.Errorf("ロードマップテンプレートの解析に失敗しました: %w", err)
	}

	renderer := &Renderer{
		tmpl: tmpl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(renderer)
	}
	return renderer, nil
}

// Render は文書全体を文字列として返します。
// 入力が同じであれば常に同じ文字列を返します。並べ替えは行わず、
// openTasks はAPIの返却順、completedTasks は完了日時の昇順であることを前提とします。
func (r *Renderer) Render(project todoist.Project, openTasks, completedTasks []todoist.TaskInfo) (string, error) {
	data := r.buildDocumentData(project, openTasks, completedTasks)

	var sb strings.Builder
	if err := r.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("ロードマップの組み立てに失敗しました: %w", err)
	}
	return sb.String(), nil
}

// buildDocumentData はタスクを各セクションへ振り分け、テンプレート用のデータを組み立てます。
func (r *Renderer) buildDocumentData(project todoist.Project, openTasks, completedTasks []todoist.TaskInfo) documentData {
	// 1. 期日の有無で未完了タスクを二分する (入力順は維持)
	var scheduled, backlog []todoist.TaskInfo
	for _, task := range openTasks {
		if task.DueAt != nil {
			scheduled = append(scheduled, task)
		} else {
			backlog = append(backlog, task)
		}
	}

	// 2. 期日付きタスクを週単位にまとめ、今週を境に振り分ける (今週は将来側)
	currentWeek := weekStart(r.now())
	var overdue, future []weekSection
	for _, group := range groupByWeek(scheduled) {
		section := weekSection{
			Heading: group.heading(),
			Lines:   renderTaskLines(group.tasks),
		}
		if group.start.Before(currentWeek) {
			overdue = append(overdue, section)
		} else {
			future = append(future, section)
		}
	}

	// 3. 脚注のリンク定義は完了タスク、未完了タスクの順
	refs := make([]string, 0, len(completedTasks)+len(openTasks))
	for _, task := range completedTasks {
		refs = append(refs, renderTaskRef(task))
	}
	for _, task := range openTasks {
		refs = append(refs, renderTaskRef(task))
	}

	return documentData{
		ProjectName: project.Name,
		ProjectURL:  project.URL,
		Completed:   renderTaskLines(completedTasks),
		Overdue:     overdue,
		Future:      future,
		Backlog:     renderTaskLines(backlog),
		Refs:        refs,
	}
}

// renderTaskLines はタスクの並びを整形済みの行の並びへ変換します。
func renderTaskLines(tasks []todoist.TaskInfo) []string {
	lines := make([]string, 0, len(tasks))
	for _, task := range tasks {
		lines = append(lines, renderTaskLine(task))
	}
	return lines
}
