package topics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
)

type deviceLookup struct {
	db *gorm.DB
}

func (d deviceLookup) FindByToken(ctx context.Context, token string) (*models.DeviceToken, error) {
	var device models.DeviceToken
	if err := d.db.WithContext(ctx).Where("token = ?", token).First(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

type recordingSyncer struct {
	subscribed   []string
	unsubscribed []string
	err          error
}

func (r *recordingSyncer) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	r.subscribed = append(r.subscribed, topic)
	return r.err
}

func (r *recordingSyncer) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	r.unsubscribed = append(r.unsubscribed, topic)
	return r.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setup(t *testing.T, syncer MembershipSyncer) (Service, *gorm.DB, *clock) {
	t.Helper()
	conn := dbtest.Open(t)
	c := &clock{now: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)}
	params := ServiceParams{
		Repository: NewRepository(conn),
		Devices:    deviceLookup{db: conn},
		Now:        c.Now,
	}
	if syncer != nil {
		params.Syncer = syncer
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc, conn, c
}

func seedDevice(t *testing.T, conn *gorm.DB, token string) *models.DeviceToken {
	t.Helper()
	device := &models.DeviceToken{Token: token, Platform: enums.PlatformAndroid, IsActive: true, LastUsedAt: time.Now().UTC()}
	require.NoError(t, conn.Create(device).Error)
	return device
}

func TestSubscribeCreatesTopicAndSubscription(t *testing.T) {
	syncer := &recordingSyncer{}
	svc, conn, _ := setup(t, syncer)
	seedDevice(t, conn, "tok")

	sub, err := svc.Subscribe(context.Background(), "tok", "breaking-news")
	require.NoError(t, err)
	assert.True(t, sub.Record.IsActive)
	assert.Equal(t, "breaking-news", sub.Topic.Name)
	require.NotNil(t, sub.Topic.Description)
	assert.Equal(t, "Auto-created topic: breaking-news", *sub.Topic.Description)
	assert.Equal(t, []string{"breaking-news"}, syncer.subscribed)
}

func TestResubscribeReusesRowAndKeepsCreatedAt(t *testing.T) {
	svc, conn, c := setup(t, nil)
	seedDevice(t, conn, "tok")
	ctx := context.Background()

	first, err := svc.Subscribe(ctx, "tok", "sports")
	require.NoError(t, err)

	count, err := svc.Unsubscribe(ctx, "tok", "sports")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	c.now = c.now.Add(24 * time.Hour)
	second, err := svc.Subscribe(ctx, "tok", "sports")
	require.NoError(t, err)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.True(t, second.Record.IsActive)
	assert.True(t, first.Record.CreatedAt.Equal(second.Record.CreatedAt))

	var rows int64
	require.NoError(t, conn.Model(&models.TopicSubscription{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	var topics int64
	require.NoError(t, conn.Model(&models.Topic{}).Count(&topics).Error)
	assert.EqualValues(t, 1, topics)
}

func TestSubscribeUnknownDeviceIsNotFound(t *testing.T) {
	svc, _, _ := setup(t, nil)
	_, err := svc.Subscribe(context.Background(), "ghost", "news")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUnsubscribeUnknownTopicIsNotFound(t *testing.T) {
	svc, conn, _ := setup(t, nil)
	seedDevice(t, conn, "tok")
	_, err := svc.Unsubscribe(context.Background(), "tok", "never-created")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSubscribeValidatesInput(t *testing.T) {
	svc, _, _ := setup(t, nil)
	ctx := context.Background()

	for _, tc := range []struct{ token, topic string }{
		{"", "news"},
		{"tok", ""},
		{"tok", "has spaces"},
	} {
		_, err := svc.Subscribe(ctx, tc.token, tc.topic)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), "token=%q topic=%q", tc.token, tc.topic)
	}
}

func TestSyncFailureDoesNotFailSubscribe(t *testing.T) {
	svc, conn, _ := setup(t, &recordingSyncer{err: errors.New("fcm down")})
	seedDevice(t, conn, "tok")

	_, err := svc.Subscribe(context.Background(), "tok", "alerts")
	require.NoError(t, err)
}

func TestListTopicsSortedAndActiveOnly(t *testing.T) {
	svc, conn, _ := setup(t, nil)
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := svc.GetOrCreateTopic(ctx, name)
		require.NoError(t, err)
	}
	require.NoError(t, conn.Model(&models.Topic{}).Where("name = ?", "mid").Update("is_active", false).Error)

	topics, err := svc.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "alpha", topics[0].Name)
	assert.Equal(t, "zeta", topics[1].Name)
}

func TestListDeviceSubscriptionsPreloadsTopic(t *testing.T) {
	svc, conn, _ := setup(t, nil)
	seedDevice(t, conn, "tok")
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, "tok", "a")
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, "tok", "b")
	require.NoError(t, err)
	_, err = svc.Unsubscribe(ctx, "tok", "b")
	require.NoError(t, err)

	subs, err := svc.ListDeviceSubscriptions(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NotNil(t, subs[0].Topic)
	assert.Equal(t, "a", subs[0].Topic.Name)

	_, err = svc.ListDeviceSubscriptions(ctx, "unknown")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
