package model

// SweepResult はクリーンアップバッチの実行結果を表す構造体です
// Step Functionsへのタスク成功通知にそのまま載せます
type SweepResult struct {
	DeletedCount int64  `json:"deleted_count"`
	Cutoff       string `json:"cutoff"`
}
