package statebus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldExpire(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt string
		want      bool
	}{
		{"empty never expires", "", false},
		{"unparseable fails open", "not-a-time", false},
		{"future not expired", "2026-08-31T10:00:05Z", false},
		{"past expired", "2026-08-31T09:59:59Z", true},
		{"boundary counts as expired", "2026-08-31T10:00:00Z", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Record{State: StateTalking, ExpiresAt: tt.expiresAt}
			require.Equal(t, tt.want, ShouldExpire(rec, now))
		})
	}
}
