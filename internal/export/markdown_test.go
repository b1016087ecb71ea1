package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoist-git-sync-go/internal/todoist"
)

func TestRenderTaskLine(t *testing.T) {
	tests := []struct {
		name string
		task todoist.TaskInfo
		want string
	}{
		{
			name: "未完了の通常タスク",
			task: todoist.TaskInfo{ID: "1", Title: "Buy milk", Priority: 1},
			want: "- [ ] Buy milk [🔗][1]\n",
		},
		{
			name: "完了タスク",
			task: todoist.TaskInfo{ID: "2", Title: "Pay rent", Completed: true, Priority: 1},
			want: "- [x] Pay rent [🔗][2]\n",
		},
		{
			name: "最高優先度",
			task: todoist.TaskInfo{ID: "3", Title: "Fire", Priority: 4},
			want: "- [ ] Fire ❗ [🔗][3]\n",
		},
		{
			name: "中優先度",
			task: todoist.TaskInfo{ID: "4", Title: "Soon", Priority: 2},
			want: "- [ ] Soon ❕ [🔗][4]\n",
		},
		{
			name: "説明付き",
			task: todoist.TaskInfo{ID: "5", Title: "Plan", Priority: 1, Description: "line one\nline two"},
			want: "- [ ] Plan [🔗][5]  \n    line one\n    line two\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderTaskLine(tt.task))
		})
	}
}

func TestRenderTaskRef(t *testing.T) {
	task := todoist.TaskInfo{ID: "9", URL: "https://todoist.com/showTask?id=9"}
	assert.Equal(t, "[9]: https://todoist.com/showTask?id=9\n", renderTaskRef(task))
}

func TestIndentSkipsBlankLines(t *testing.T) {
	assert.Equal(t, "    a\n\n    b", indent("a\n\nb", "    "))
}

func TestWeekStart(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	// 月曜日はそのまま
	assert.Equal(t, monday, weekStart(time.Date(2024, 3, 4, 23, 59, 0, 0, time.UTC)))
	// 日曜日は同じ週の月曜日へ
	assert.Equal(t, monday, weekStart(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	// 翌月曜日は次の週
	assert.Equal(t, monday.AddDate(0, 0, 7), weekStart(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)))

	// タイムゾーンが違っても同じ暦日なら同じ週になる
	jst := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, monday, weekStart(time.Date(2024, 3, 4, 1, 0, 0, 0, jst)))
}

func TestGroupByWeek(t *testing.T) {
	weekA := timePtr(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	weekB := timePtr(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC))
	tasks := []todoist.TaskInfo{
		{ID: "1", DueAt: weekA},
		{ID: "2", DueAt: weekA},
		{ID: "3", DueAt: weekB},
		{ID: "4", DueAt: weekA},
	}

	groups := groupByWeek(tasks)

	// 連続した週だけがまとまる。離れた同じ週は別のまとまりになる。
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].tasks, 2)
	assert.Equal(t, "1", groups[0].tasks[0].ID)
	assert.Equal(t, "2", groups[0].tasks[1].ID)
	assert.Equal(t, "3", groups[1].tasks[0].ID)
	assert.Equal(t, "4", groups[2].tasks[0].ID)
	assert.Equal(t, "From 2024/03/04 to 2024/03/10", groups[0].heading())
	assert.Equal(t, "From 2024/03/11 to 2024/03/17", groups[1].heading())
}
