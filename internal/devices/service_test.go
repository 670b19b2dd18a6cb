package devices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
	"github.com/angelmondragon/pushrelay-backend/pkg/pagination"
)

func strPtr(v string) *string { return &v }

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (Service, *gorm.DB, *fixedClock) {
	t.Helper()
	client, conn := dbtest.Client(t)
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Tx:         client,
		Now:        clock.Now,
	})
	require.NoError(t, err)
	return svc, conn, clock
}

func TestRegisterCreatesThenUpdatesSameRow(t *testing.T) {
	svc, conn, clock := newTestService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{
		Token:      "tok-1",
		Platform:   enums.PlatformAndroid,
		UserID:     strPtr("user-1"),
		AppVersion: strPtr("1.0.0"),
	})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.True(t, first.Device.IsActive)

	clock.advance(time.Hour)
	second, err := svc.Register(ctx, RegisterInput{
		Token:      "tok-1",
		Platform:   enums.PlatformIOS,
		AppVersion: strPtr("1.1.0"),
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Device.ID, second.Device.ID)

	var count int64
	require.NoError(t, conn.Model(&models.DeviceToken{}).Where("token = ?", "tok-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := svc.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, stored.UserID)
	assert.Equal(t, "user-1", *stored.UserID, "owner is preserved when none supplied")
	assert.Equal(t, enums.PlatformIOS, stored.Platform)
	assert.Equal(t, "1.1.0", *stored.AppVersion)
	assert.True(t, stored.LastUsedAt.Equal(clock.now))
}

func TestRegisterReassignsOwnerAndReactivates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Token: "tok-2", Platform: enums.PlatformWeb, UserID: strPtr("alice")})
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, "tok-2")
	require.NoError(t, err)

	res, err := svc.Register(ctx, RegisterInput{Token: "tok-2", Platform: enums.PlatformWeb, UserID: strPtr("bob")})
	require.NoError(t, err)
	assert.True(t, res.Device.IsActive)
	assert.Equal(t, "bob", *res.Device.UserID)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Token: "  ", Platform: enums.PlatformAndroid})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Register(context.Background(), RegisterInput{Token: "tok", Platform: "symbian"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDeactivateClearsDeviceAndSubscriptions(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Token: "tok-3", Platform: enums.PlatformAndroid, UserID: strPtr("u")})
	require.NoError(t, err)

	topic := &models.Topic{Name: "news", IsActive: true}
	require.NoError(t, conn.Create(topic).Error)
	sub := &models.TopicSubscription{DeviceID: res.Device.ID, TopicID: topic.ID, IsActive: true}
	require.NoError(t, conn.Create(sub).Error)

	device, err := svc.Deactivate(ctx, "tok-3")
	require.NoError(t, err)
	assert.False(t, device.IsActive)

	var storedSub models.TopicSubscription
	require.NoError(t, conn.First(&storedSub, "id = ?", sub.ID).Error)
	assert.False(t, storedSub.IsActive)

	tokens, err := svc.ListUserTokens(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestDeactivateUnknownTokenIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListUserTokensOrderedByLastUsed(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	for _, token := range []string{"old", "mid", "new"} {
		_, err := svc.Register(ctx, RegisterInput{Token: token, Platform: enums.PlatformAndroid, UserID: strPtr("u1")})
		require.NoError(t, err)
		clock.advance(time.Minute)
	}
	_, err := svc.Register(ctx, RegisterInput{Token: "other", Platform: enums.PlatformAndroid, UserID: strPtr("u2")})
	require.NoError(t, err)

	devices, err := svc.ListUserTokens(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "new", devices[0].Token)
	assert.Equal(t, "old", devices[2].Token)

	all, err := svc.ListActivePage(ctx, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Devices, 4)
	assert.Empty(t, all.NextCursor)
}

type fakeRepository struct {
	Repository
	findFn func(ctx context.Context, token string) (*models.DeviceToken, error)
}

func (f *fakeRepository) FindByToken(ctx context.Context, token string) (*models.DeviceToken, error) {
	return f.findFn(ctx, token)
}

func TestGetMapsRepositoryErrors(t *testing.T) {
	client, _ := dbtest.Client(t)
	repo := &fakeRepository{findFn: func(ctx context.Context, token string) (*models.DeviceToken, error) {
		if token == "gone" {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.New("connection reset")
	}}
	svc, err := NewService(ServiceParams{Repository: repo, Tx: client})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "gone")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Get(context.Background(), "other")
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestRepositoryListActiveByPlatform(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, &models.DeviceToken{Token: "a", Platform: enums.PlatformIOS, IsActive: true, LastUsedAt: now}))
	require.NoError(t, repo.Create(ctx, &models.DeviceToken{Token: "b", Platform: enums.PlatformIOS, IsActive: false, LastUsedAt: now}))
	require.NoError(t, repo.Create(ctx, &models.DeviceToken{Token: "c", Platform: enums.PlatformWeb, IsActive: true, LastUsedAt: now}))

	devices, err := repo.ListActiveByPlatform(ctx, enums.PlatformIOS)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "a", devices[0].Token)
	assert.NotEqual(t, uuid.Nil, devices[0].ID)
}

func TestListActivePageWalksCursor(t *testing.T) {
	client, conn := dbtest.Client(t)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{Repository: repo, Tx: client})
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, token := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.DeviceToken{
			ID:         uuid.New(),
			Token:      token,
			Platform:   enums.PlatformAndroid,
			IsActive:   true,
			LastUsedAt: base,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.DeviceToken{
		ID: uuid.New(), Token: "off", Platform: enums.PlatformWeb, LastUsedAt: base, CreatedAt: base,
	}))

	first, err := svc.ListActivePage(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Devices, 2)
	assert.Equal(t, "a", first.Devices[0].Token)
	assert.Equal(t, "b", first.Devices[1].Token)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListActivePage(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Devices, 1)
	assert.Equal(t, "c", second.Devices[0].Token)
	assert.Empty(t, second.NextCursor)
}

func TestListActivePageRejectsBadCursor(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ListActivePage(context.Background(), pagination.Params{Cursor: "not-base64!"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
