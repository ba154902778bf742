package booking

import (
	"time"

	"github.com/ovenlab/booking/internal/model"
)

// HasConflict は候補区間 [start, end) が既存予約と重複するかを判定します
// existingはストアが「終了時刻がstartより後」で事前に絞り込んだ候補集合で、
// 残る条件は既存予約の開始がendより前かどうかだけです
// excludeIDは編集中の予約自身を判定から除外するために使います(作成時は空文字)
//
// 隣接は重複ではありません: end == 既存のstart はちょうど入れ替わりで許容されます
// 候補数は1オーブンあたり高々数十件の想定で線形走査にしています
// 予約密度が大きく伸びた場合は区間木への置き換えが選択肢になります
func HasConflict(start, end time.Time, existing []model.Booking, excludeID string) bool {
	for _, b := range existing {
		if b.ID == excludeID {
			continue
		}
		if b.StartTime.Before(end) {
			return true
		}
	}
	return false
}
