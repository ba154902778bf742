package booking

import "errors"

// 予約調停の結果として呼び出し側に返すエラー群です
// errors.Is で判別できるよう、ラップしても番兵エラーを保持します
var (
	// ErrInvalidInterval は開始・終了の順序または最大時間の違反です
	ErrInvalidInterval = errors.New("invalid booking interval")

	// ErrQuotaExceeded は未終了予約数の上限超過です
	ErrQuotaExceeded = errors.New("active booking limit reached")

	// ErrSlotConflict は既存予約との時間帯の重複です
	ErrSlotConflict = errors.New("time slot conflicts with an existing booking")

	// ErrNotFound は対象の予約が存在しないことを表します
	ErrNotFound = errors.New("booking not found")

	// ErrForbidden は所有者でも特権者でもない操作の拒否です
	ErrForbidden = errors.New("not authorized to modify this booking")

	// ErrGracePeriodExpired は所有者の編集猶予時間の超過です
	ErrGracePeriodExpired = errors.New("edit grace period has expired")

	// ErrOvenUnavailable はメンテナンス中オーブンへの新規予約の拒否です
	ErrOvenUnavailable = errors.New("oven is under maintenance")

	// ErrStorageTransient はストレージ層の一時的な障害です
	// 呼び出し側でのリトライが可能です
	ErrStorageTransient = errors.New("storage temporarily unavailable")
)
