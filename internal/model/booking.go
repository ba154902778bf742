package model

import (
	"fmt"
	"time"
)

// Booking はオーブンの予約を表す構造体です
// 予約区間は半開区間 [StartTime, EndTime) として扱います
type Booking struct {
	ID        string    `db:"id" json:"id"`
	OvenID    string    `db:"oven_id" json:"oven_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActiveAt は、指定時刻においてこの予約がまだ終了していないかを返します
func (b *Booking) ActiveAt(now time.Time) bool {
	return !b.EndTime.Before(now)
}

// ValidateInterval は予約区間の妥当性を検証します
// 開始が終了より前であること、予約時間が最大時間を超えないことを確認します
func ValidateInterval(start, end time.Time, maxDuration time.Duration) error {
	if !start.Before(end) {
		return fmt.Errorf("start time %v must be before end time %v", start, end)
	}
	if end.Sub(start) > maxDuration {
		return fmt.Errorf("booking duration %v exceeds maximum %v", end.Sub(start), maxDuration)
	}
	return nil
}

// ComposeTitle は表示用ラベルを「タイトル (by ユーザー名)」形式で組み立てます
func ComposeTitle(title, userName string) string {
	return fmt.Sprintf("%s (by %s)", title, userName)
}
