package booking

import (
	"time"

	"github.com/ovenlab/booking/internal/model"
)

// Authorize は既存予約の編集・キャンセルの可否を判定します
// 規則は順に評価します:
//
//	(a) 特権者は常に許可
//	(b) 所有者以外は拒否
//	(c) 所有者でも作成からgraceを超えていれば猶予切れ
//	(d) それ以外は許可
//
// 現在時刻は引数で受け取り、壁時計には依存しません
func Authorize(actorID string, actorIsAdmin bool, b *model.Booking, now time.Time, grace time.Duration) error {
	if actorIsAdmin {
		return nil
	}
	if b.UserID != actorID {
		return ErrForbidden
	}
	if now.Sub(b.CreatedAt) > grace {
		return ErrGracePeriodExpired
	}
	return nil
}
