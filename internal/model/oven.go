package model

// オーブンの稼働状態
const (
	OvenStatusActive      = "active"
	OvenStatusMaintenance = "maintenance"
)

// Oven は予約対象の共有オーブンを表す構造体です
// 登録や状態切替は管理画面側の責務で、予約エンジンからは読み取り専用です
type Oven struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Status string `db:"status" json:"status"` // active, maintenance
}
