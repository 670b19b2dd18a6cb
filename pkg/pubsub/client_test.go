package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pushrelay-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	c := &Client{projectID: "relay-prod"}

	assert.Equal(t, "projects/relay-prod/subscriptions/push-send", c.resourceName("subscriptions", " push-send "))
	assert.Equal(t, "projects/other/subscriptions/x", c.resourceName("subscriptions", "projects/other/subscriptions/x"))
	assert.Equal(t, "projects/relay-prod/topics/push-send", c.resourceName("topics", "push-send"))
	assert.Empty(t, c.resourceName("topics", ""))
	assert.Empty(t, (&Client{}).resourceName("subscriptions", "push-send"))
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.SendSubscription())
	assert.Nil(t, c.SendPublisher())
	require.Error(t, c.Ping(t.Context()))
	require.NoError(t, c.Close())
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(t.Context(), config.GCPConfig{ProjectID: "  "}, config.PubSubConfig{}, RoleConsumer, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "consumer", RoleConsumer.String())
	assert.Equal(t, "producer", RoleProducer.String())
}

func TestClientOptions(t *testing.T) {
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/sa.json"}), 1)
	assert.Empty(t, clientOptions(config.GCPConfig{}))
}
