package gitclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Service はGitリポジトリ操作の抽象化を提供します。
type Service interface {
	// CloneOrUpdate はリポジトリをクローンまたは更新し、go-gitリポジトリオブジェクトを返します。
	CloneOrUpdate(ctx context.Context, repositoryURL string) (*git.Repository, error)
	// HasChanges はワークツリーに未コミットの変更 (未追跡ファイルを含む) があるか確認します。
	HasChanges(repo *git.Repository) (bool, error)
	// CommitAndPush はエクスポートファイルをステージしてコミットし、リモートへプッシュします。
	CommitAndPush(ctx context.Context, repo *git.Repository, exportPath, message string) error
}

// Client は Service インターフェースを実装する具体的な構造体です。
type Client struct {
	LocalPath                string
	SSHKeyPath               string
	CommitterName            string
	CommitterEmail           string
	CloneDepth               int
	InsecureSkipHostKeyCheck bool
	now                      func() time.Time
	auth                     transport.AuthMethod // auth.go で設定される認証メソッド
}

// Option はClientの初期化オプションを設定するための関数です。
type Option func(*Client)

// WithSSHKey はSSH認証に使う秘密鍵ファイルのパスを設定するオプションです。
func WithSSHKey(sshKeyPath string) Option {
	return func(gc *Client) {
		gc.SSHKeyPath = sshKeyPath
	}
}

// WithInsecureSkipHostKeyCheck はSSHホストキーチェックをスキップするオプションを設定します。
func WithInsecureSkipHostKeyCheck(skip bool) Option {
	return func(gc *Client) {
		gc.InsecureSkipHostKeyCheck = skip
	}
}

// WithCloneDepth はクローンの深さを設定するオプションです。0 で全履歴を取得します。
func WithCloneDepth(depth int) Option {
	return func(gc *Client) {
		gc.CloneDepth = depth
	}
}

// WithClock はコミット日時の取得方法を差し替えるオプションです。主にテストで使用します。
func WithClock(now func() time.Time) Option {
	return func(gc *Client) {
		gc.now = now
	}
}

// NewClient はClientを初期化します。
// Serviceインターフェースを返します。既定ではシャロークローン (深さ1) を行います。
func NewClient(localPath, committerName, committerEmail string, opts ...Option) Service {
	client := &Client{
		LocalPath:      localPath,
		CommitterName:  committerName,
		CommitterEmail: committerEmail,
		CloneDepth:     1,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// CloneOrUpdate はリポジトリをクローンするか、既に存在する場合は go-git pull で更新します。
// 成功時には、コミッター情報が設定済みのリポジトリを返します。
func (c *Client) CloneOrUpdate(ctx context.Context, repositoryURL string) (*git.Repository, error) {
	localPath := c.LocalPath

	// 認証情報の取得と保持 (クローンとプッシュの両方で使用する)
	auth, err := c.getAuthMethod(repositoryURL)
	if err != nil {
		return nil, &SyncError{Op: "auth", Err: err}
	}
	c.auth = auth

	var repo *git.Repository

	if c.repoNeedsReclone(repositoryURL, localPath) {
		repo, err = c.recloneRepository(ctx, repositoryURL, localPath)
		if err != nil {
			return nil, &SyncError{Op: "clone", Err: err}
		}
	} else {
		repo, err = git.PlainOpen(localPath)
		if err != nil {
			return nil, &SyncError{Op: "open", Err: fmt.Errorf("既存リポジトリのオープンに失敗しました: %w", err)}
		}

		if pullErr := c.updateExistingRepository(ctx, repo); pullErr != nil {
			if !errors.Is(pullErr, errRecloneRequired) {
				return nil, &SyncError{Op: "pull", Err: pullErr}
			}
			slog.Info("リカバリのための再クローンを開始します...")
			repo, err = c.recloneRepository(ctx, repositoryURL, localPath)
			if err != nil {
				return nil, &SyncError{Op: "clone", Err: err}
			}
		}
	}

	if err := c.setCommitterIdentity(repo); err != nil {
		return nil, &SyncError{Op: "config", Err: err}
	}

	return repo, nil
}

// HasChanges はワークツリーの状態を調べ、未コミットの変更があるかを返します。
// エクスポートファイルの書き込み後にツリーがクリーンなままであれば、
// 直近のコミットと内容が一致していることを意味します。
func (c *Client) HasChanges(repo *git.Repository) (bool, error) {
	w, err := repo.Worktree()
	if err != nil {
		return false, &SyncError{Op: "status", Err: fmt.Errorf("ワークツリーの取得に失敗しました: %w", err)}
	}

	status, err := w.Status()
	if err != nil {
		return false, &SyncError{Op: "status", Err: fmt.Errorf("ワークツリー状態の取得に失敗しました: %w", err)}
	}

	return !status.IsClean(), nil
}

// CommitAndPush はエクスポートファイルをステージしてコミットし、origin へプッシュします。
// exportPath はリポジトリルートからの相対パスです。
func (c *Client) CommitAndPush(ctx context.Context, repo *git.Repository, exportPath, message string) error {
	hash, err := c.commitExport(repo, exportPath, message)
	if err != nil {
		return &SyncError{Op: "commit", Err: err}
	}
	slog.Info("コミットを作成しました。", "hash", hash.String(), "message", message)

	if err := c.push(ctx, repo); err != nil {
		return &SyncError{Op: "push", Err: err}
	}
	slog.Info("リモートへのプッシュに成功しました。")
	return nil
}

// commitExport はエクスポートファイルをステージし、設定済みのコミッター情報でコミットします。
func (c *Client) commitExport(repo *git.Repository, exportPath, message string) (plumbing.Hash, error) {
	w, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("ワークツリーの取得に失敗しました: %w", err)
	}

	if _, err := w.Add(exportPath); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("エクスポートファイルのステージに失敗しました: %w", err)
	}

	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.CommitterName,
			Email: c.CommitterEmail,
			When:  c.now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("コミットの作成に失敗しました: %w", err)
	}
	return hash, nil
}

// push は origin へプッシュします。認証失敗や non-fast-forward の拒否はエラーになります。
func (c *Client) push(ctx context.Context, repo *git.Repository) error {
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       c.auth,
		Progress:   io.Discard,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("リモートへのプッシュに失敗しました: %w", err)
	}
	return nil
}
