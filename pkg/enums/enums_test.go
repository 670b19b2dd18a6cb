package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" Android ")
	require.NoError(t, err)
	assert.Equal(t, PlatformAndroid, p)

	_, err = ParsePlatform("blackberry")
	require.Error(t, err)

	assert.True(t, PlatformWeb.IsValid())
	assert.False(t, Platform("desktop").IsValid())
}

func TestParseNotificationStatus(t *testing.T) {
	s, err := ParseNotificationStatus("delivered")
	require.NoError(t, err)
	assert.Equal(t, NotificationStatusDelivered, s)

	_, err = ParseNotificationStatus("DELIVERED")
	require.Error(t, err)
}

func TestParseTargetKind(t *testing.T) {
	for _, raw := range []string{"user", "tokens", "topic", "platform", "all"} {
		k, err := ParseTargetKind(raw)
		require.NoError(t, err)
		assert.True(t, k.IsValid())
	}
	_, err := ParseTargetKind("everyone")
	require.Error(t, err)
}
