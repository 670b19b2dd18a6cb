package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pushrelay-backend/pkg/db/models"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pushrelay-backend/pkg/errors"
)

type fakeLister struct {
	devices []models.DeviceToken
	err     error
	calls   []string
}

func (f *fakeLister) filter(keep func(models.DeviceToken) bool) ([]models.DeviceToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.DeviceToken
	for _, d := range f.devices {
		if d.IsActive && keep(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeLister) ListActiveByUser(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	f.calls = append(f.calls, "user")
	return f.filter(func(d models.DeviceToken) bool { return d.UserID != nil && *d.UserID == userID })
}

func (f *fakeLister) ListActiveByPlatform(ctx context.Context, platform enums.Platform) ([]models.DeviceToken, error) {
	f.calls = append(f.calls, "platform")
	return f.filter(func(d models.DeviceToken) bool { return d.Platform == platform })
}

func (f *fakeLister) ListActive(ctx context.Context) ([]models.DeviceToken, error) {
	f.calls = append(f.calls, "all")
	return f.filter(func(models.DeviceToken) bool { return true })
}

func device(token string, platform enums.Platform, user string, active bool) models.DeviceToken {
	d := models.DeviceToken{ID: uuid.New(), Token: token, Platform: platform, IsActive: active}
	if user != "" {
		d.UserID = &user
	}
	return d
}

func newLister() *fakeLister {
	return &fakeLister{devices: []models.DeviceToken{
		device("ios-1", enums.PlatformIOS, "u1", true),
		device("ios-2", enums.PlatformIOS, "u2", true),
		device("ios-3", enums.PlatformIOS, "u1", false),
		device("and-1", enums.PlatformAndroid, "u1", true),
	}}
}

func TestResolveByPlatformSkipsInactive(t *testing.T) {
	r, err := NewResolver(newLister())
	require.NoError(t, err)

	targets, err := r.Resolve(context.Background(), Selector{Kind: enums.TargetPlatform, Platform: enums.PlatformIOS})
	require.NoError(t, err)
	assert.Equal(t, []string{"ios-1", "ios-2"}, Tokens(targets))
	for _, target := range targets {
		assert.NotNil(t, target.DeviceID)
	}
}

func TestResolveByUser(t *testing.T) {
	r, _ := NewResolver(newLister())
	targets, err := r.Resolve(context.Background(), Selector{Kind: enums.TargetUser, UserID: "u1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ios-1", "and-1"}, Tokens(targets))
}

func TestResolveEmptyMatchIsNotFound(t *testing.T) {
	r, _ := NewResolver(newLister())
	for _, sel := range []Selector{
		{Kind: enums.TargetUser, UserID: "nobody"},
		{Kind: enums.TargetPlatform, Platform: enums.PlatformWeb},
	} {
		_, err := r.Resolve(context.Background(), sel)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	}

	empty, _ := NewResolver(&fakeLister{})
	_, err := empty.Resolve(context.Background(), Selector{Kind: enums.TargetAll})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestResolveExplicitTokensPassThrough(t *testing.T) {
	lister := newLister()
	r, _ := NewResolver(lister)
	in := []string{"unknown", "ios-3", "unknown"}

	targets, err := r.Resolve(context.Background(), Selector{Kind: enums.TargetTokens, Tokens: in})
	require.NoError(t, err)
	assert.Equal(t, in, Tokens(targets))
	assert.Empty(t, lister.calls, "explicit tokens are not looked up")
	assert.Nil(t, targets[0].DeviceID)
}

func TestResolveValidation(t *testing.T) {
	r, _ := NewResolver(newLister())
	for _, sel := range []Selector{
		{Kind: enums.TargetUser},
		{Kind: enums.TargetTokens},
		{Kind: enums.TargetPlatform, Platform: "desktop"},
		{Kind: "everyone"},
		{Kind: enums.TargetTopic, Topic: "news"},
	} {
		_, err := r.Resolve(context.Background(), sel)
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), "kind %q", sel.Kind)
	}
}

func TestResolveStoreErrorIsDependency(t *testing.T) {
	r, _ := NewResolver(&fakeLister{err: errors.New("db down")})
	_, err := r.Resolve(context.Background(), Selector{Kind: enums.TargetAll})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}

func TestSelectorValidate(t *testing.T) {
	valid := []Selector{
		{Kind: enums.TargetUser, UserID: "user-1"},
		{Kind: enums.TargetTokens, Tokens: []string{"a"}},
		{Kind: enums.TargetPlatform, Platform: enums.PlatformWeb},
		{Kind: enums.TargetTopic, Topic: "news"},
		{Kind: enums.TargetAll},
	}
	for _, sel := range valid {
		assert.NoError(t, sel.Validate(), "kind %s", sel.Kind)
	}

	invalid := []Selector{
		{Kind: enums.TargetUser, UserID: "  "},
		{Kind: enums.TargetTokens},
		{Kind: enums.TargetPlatform, Platform: "blackberry"},
		{Kind: enums.TargetTopic},
		{Kind: "everyone"},
	}
	for _, sel := range invalid {
		assert.True(t, pkgerrors.IsCode(sel.Validate(), pkgerrors.CodeValidation), "kind %s", sel.Kind)
	}
}
