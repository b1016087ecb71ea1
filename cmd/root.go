package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"todoist-git-sync-go/internal/builder"
	"todoist-git-sync-go/internal/config"
)

// フラグ変数 (init で RootCmd にバインドされます)
var (
	configPath string
	localPath  string
	verbose    bool
)

// SyncConfig は initAppPreRunE で読み込まれた設定です。RunE から参照されます。
var SyncConfig config.SyncConfig

// RootCmd はアプリケーションのベースコマンド（"todoist-git-sync-go" 本体）です。
// サブコマンドは持たず、実行するとそのまま同期を1回行います。
var RootCmd = &cobra.Command{
	Use:   "todoist-git-sync-go",
	Short: "TodoistのタスクをGitリポジトリ上のMarkdownへ同期するCLIツール",
	Long: `このツールは、Todoistプロジェクトのタスク一覧を取得してロードマップ形式のMarkdownに変換し、設定されたGitリポジトリへコミット・プッシュします。

前回の同期から内容に変更がない場合、コミットもプッシュも行いません。`,
	SilenceUsage:      true,
	PersistentPreRunE: initAppPreRunE,
	RunE:              runSync,
}

// Execute はルートコマンドを実行し、アプリケーションを起動します。
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// エラー発生時にエラーメッセージを出力し、終了コード1で終了
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml",
		"設定ファイル (YAML) のパス")
	RootCmd.Flags().StringVarP(&localPath, "local-path", "p", "",
		"リポジトリのクローン先/作業ディレクトリ (省略時は一時ディレクトリを使用し、終了時に削除します)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"デバッグログを出力します。")
}

// initAppPreRunE はコマンド実行前の共通初期化を行います。
// ロガーをセットアップし、設定ファイルを読み込みます。
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	SyncConfig = *cfg
	slog.Debug("設定ファイルを読み込みました。", "path", configPath)
	return nil
}

// runSync は同期を1回実行し、結果を標準出力に出力します。
func runSync(cmd *cobra.Command, args []string) error {
	syncRunner, cleanup, err := builder.BuildSyncRunner(SyncConfig, localPath)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := syncRunner.Run(cmd.Context(), SyncConfig)
	if err != nil {
		return err
	}

	if result.Committed {
		fmt.Printf("✅ 同期が完了しました: %s (未完了 %d件 / 完了 %d件)\n",
			result.ProjectName, result.OpenTasks, result.CompletedTasks)
	} else {
		fmt.Printf("✅ 変更はありません: %s (コミットをスキップしました)\n", result.ProjectName)
	}
	return nil
}
