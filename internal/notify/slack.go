package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// SyncResult は同期1回分の通知内容です。
type SyncResult struct {
	ProjectName    string
	RepositoryURL  string
	OpenTasks      int
	CompletedTasks int
}

// Service は同期完了の通知機能の抽象化を提供します。
type Service interface {
	// NotifySyncCompleted は同期の完了を通知します。
	NotifySyncCompleted(result SyncResult) error
}

// SlackClient は Incoming Webhook 経由で Slack へ通知するクライアントです。
type SlackClient struct {
	WebhookURL string
	httpClient *http.Client
}

// NewSlackClient は SlackClient を初期化します。Serviceインターフェースを返します。
func NewSlackClient(webhookURL string) Service {
	return &SlackClient{
		WebhookURL: webhookURL,
		httpClient: &http.Client{
			// ネットワークのハングアップを防ぐため、10秒のタイムアウトを設定
			Timeout: 10 * time.Second,
		},
	}
}

// sshRepoPathPattern は SSH形式URL (git@host:owner/repo.git) から owner/repo を取り出します。
var sshRepoPathPattern = regexp.MustCompile(`:([a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+?)(?:\.git)?$`)

// extractRepoPath は、HTTP/HTTPSまたはSSH形式のGit URLから 'owner/repo' 形式のパスを抽出します。
func extractRepoPath(gitCloneURL string) string {
	if strings.HasPrefix(gitCloneURL, "git@") {
		if matches := sshRepoPathPattern.FindStringSubmatch(gitCloneURL); len(matches) == 2 {
			return matches[1]
		}
	}

	parsedURL, err := url.Parse(gitCloneURL)
	if err == nil && parsedURL.Host != "" {
		path := strings.TrimSuffix(parsedURL.Path, ".git")
		var parts []string
		for _, part := range strings.Split(path, "/") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) >= 2 {
			return parts[len(parts)-2] + "/" + parts[len(parts)-1]
		}
		if len(parts) == 1 {
			return parts[0]
		}
	}

	// どちらにもマッチしない場合のプレースホルダー
	return "リポジトリ"
}

// NotifySyncCompleted は同期完了のメッセージを Slack チャンネルに投稿します。
func (c *SlackClient) NotifySyncCompleted(result SyncResult) error {
	repoPath := extractRepoPath(result.RepositoryURL)

	// 通知用の代替テキスト (Block Kit非対応クライアント向け)
	notificationText := fmt.Sprintf(
		"✅ ロードマップ同期完了: %s (%s)",
		result.ProjectName,
		repoPath,
	)

	headerBlock := slack.NewHeaderBlock(
		slack.NewTextBlockObject("plain_text", "📋 Todoist Roadmap Sync", true, false),
	)

	sectionText := fmt.Sprintf(
		"*%s* のロードマップを `%s` へ同期しました。\n未完了タスク: %d件 / 完了タスク: %d件",
		result.ProjectName,
		repoPath,
		result.OpenTasks,
		result.CompletedTasks,
	)
	sectionBlock := slack.NewSectionBlock(
		slack.NewTextBlockObject("mrkdwn", sectionText, false, false),
		nil,
		nil,
	)

	msg := slack.WebhookMessage{
		Text: notificationText,
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{headerBlock, sectionBlock},
		},
	}

	jsonPayload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	resp, err := c.httpClient.Post(c.WebhookURL, "application/json", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to post to Slack: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("Slack APIレスポンスのクローズに失敗しました。", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack API returned non-OK status code: %s", resp.Status)
	}

	return nil
}
