package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHumanize(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{25 * time.Hour, "1 day ago"},
		{8 * day, "2024-05-02T12:00:00Z"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Humanize(fixedNow.Add(-tt.ago), fixedNow))
	}
}

func TestHumanize_ParsesBack(t *testing.T) {
	p := newTestParser()

	for _, ago := range []time.Duration{2 * time.Minute, 5 * time.Hour, 3 * day, 10 * day} {
		got, ok := p.Parse(Humanize(fixedNow.Add(-ago), fixedNow))
		assert.True(t, ok)
		assert.WithinDuration(t, fixedNow.Add(-ago), got, time.Minute)
	}
}
