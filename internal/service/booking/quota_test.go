package booking

import (
	"errors"
	"testing"
)

func TestCheckQuota(t *testing.T) {
	tests := []struct {
		name        string
		activeCount int
		max         int
		wantErr     error
		description string
	}{
		{
			name:        "予約なし",
			activeCount: 0,
			max:         2,
			wantErr:     nil,
			description: "未終了予約がなければ許可されること",
		},
		{
			name:        "上限未満",
			activeCount: 1,
			max:         2,
			wantErr:     nil,
			description: "上限に達していなければ許可されること",
		},
		{
			name:        "上限ちょうど",
			activeCount: 2,
			max:         2,
			wantErr:     ErrQuotaExceeded,
			description: "上限に達していれば拒否されること",
		},
		{
			name:        "上限超過",
			activeCount: 3,
			max:         2,
			wantErr:     ErrQuotaExceeded,
			description: "上限を超えていれば拒否されること",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckQuota(tt.activeCount, tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckQuota(%d, %d) = %v, want %v: %s", tt.activeCount, tt.max, err, tt.wantErr, tt.description)
			}
		})
	}
}
