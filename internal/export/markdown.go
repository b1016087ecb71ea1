package export

import (
	"fmt"
	"strings"
	"time"

	"todoist-git-sync-go/internal/todoist"
)

// ----------------------------------------------------------------
// タスク1件分のMarkdown整形
// ----------------------------------------------------------------

// renderTaskLine はタスク1件をチェックリストの1行に整形します。
// 形式: "- [x] タイトル ❗ [🔗][id]" + 説明 (ある場合は強制改行の後に4スペース字下げ)。
func renderTaskLine(task todoist.TaskInfo) string {
	marker := " "
	if task.Completed {
		marker = "x"
	}

	priority := ""
	switch {
	case task.Priority >= 4:
		priority = " ❗"
	case task.Priority >= 2:
		priority = " ❕"
	}

	description := ""
	if task.Description != "" {
		description = "  \n" + indent(task.Description, "    ")
	}

	return fmt.Sprintf("- [%s] %s%s [🔗][%s]%s\n", marker, task.Title, priority, task.ID, description)
}

// renderTaskRef はタスクの脚注形式のリンク定義 ("[id]: url") を1行返します。
func renderTaskRef(task todoist.TaskInfo) string {
	return fmt.Sprintf("[%s]: %s\n", task.ID, task.URL)
}

// indent は text の各行の先頭に prefix を付与します。
// 空白のみの行には付与しません。
func indent(text, prefix string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.TrimSpace(line) != "" {
			sb.WriteString(prefix)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// ----------------------------------------------------------------
// 週単位のグルーピング
// ----------------------------------------------------------------

// weekGroup は同じ週に属する連続したタスクのまとまりです。
type weekGroup struct {
	start time.Time
	tasks []todoist.TaskInfo
}

// weekStart は t が属する週の月曜日を返します。
// タイムゾーンに依存しない比較のため、暦日のみを保持したUTC深夜0時に正規化します。
func weekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// groupByWeek は期日付きタスクの並びを、入力順のまま週単位のまとまりへ分割します。
// 並べ替えは行わないため、同じ週が離れた位置に現れた場合は別のまとまりになります。
func groupByWeek(tasks []todoist.TaskInfo) []weekGroup {
	var groups []weekGroup
	for _, task := range tasks {
		start := weekStart(*task.DueAt)
		if n := len(groups); n > 0 && groups[n-1].start.Equal(start) {
			groups[n-1].tasks = append(groups[n-1].tasks, task)
			continue
		}
		groups = append(groups, weekGroup{start: start, tasks: []todoist.TaskInfo{task}})
	}
	return groups
}

// heading は "From YYYY/MM/DD to YYYY/MM/DD" 形式の見出し (月曜〜日曜) を返します。
func (g weekGroup) heading() string {
	end := g.start.AddDate(0, 0, 6)
	return fmt.Sprintf("From %s to %s", g.start.Format("2006/01/02"), end.Format("2006/01/02"))
}
