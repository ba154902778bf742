package booking

// CheckQuota は未終了予約数が上限に達しているかを判定します
// activeCountはトランザクション内の確定読み取りで得た件数であることが前提です
// 古いスナップショットで数えると上限未満のユーザーを誤って拒否し得るため、
// 事前チェックでの判定は行いません
func CheckQuota(activeCount, max int) error {
	if activeCount >= max {
		return ErrQuotaExceeded
	}
	return nil
}
