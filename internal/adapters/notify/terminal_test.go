package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/bnema/condenser/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalNotify(t *testing.T) {
	t.Parallel()

	notification := domain.Notification{
		Craving: "Rain",
		Kind:    domain.CollectionOffers,
		Title:   "Rain",
		Body:    "2 new offers",
		Urgency: domain.UrgencyMedium,
		Count:   2,
	}

	testCases := []struct {
		name     string
		channels domain.ChannelSettings
		wantLine bool
		wantBell bool
	}{
		{name: "silent", channels: domain.ChannelSettings{}},
		{name: "in app only", channels: domain.ChannelSettings{InApp: true}, wantLine: true},
		{name: "systray", channels: domain.ChannelSettings{Systray: true, InApp: true}, wantLine: true, wantBell: true},
		{name: "os", channels: domain.ChannelSettings{OS: true}, wantLine: true, wantBell: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			err := NewTerminal(&out, nil).Notify(context.Background(), notification, tc.channels)
			require.NoError(t, err)

			if !tc.wantLine {
				assert.Empty(t, out.String())
				return
			}
			assert.Contains(t, out.String(), "2 new offers")
			assert.Equal(t, tc.wantBell, bytes.HasPrefix(out.Bytes(), []byte(bell)))
		})
	}
}

func TestTerminalNotifyCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := NewTerminal(&out, nil).Notify(ctx, domain.Notification{}, domain.ChannelSettings{InApp: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
