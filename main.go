package main

import "todoist-git-sync-go/cmd"

// main はプログラムのエントリポイントです。
// 全ての CLI ロジックを cmd パッケージに委譲します。
func main() {
	cmd.Execute()
}
