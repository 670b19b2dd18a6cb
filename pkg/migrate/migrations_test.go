package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pushrelay-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
	require.NoError(t, migrate.Validate(migrate.Embedded()))
}

func TestEmbeddedMatchesDisk(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
	for i, path := range onDisk {
		require.Equal(t, filepath.Base(path), embedded[i])
	}
}

func TestMigrationsContainRegistryConstraints(t *testing.T) {
	checks := map[string][]string{
		"*_create_device_tokens.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_device_tokens_token",
			"CHECK (platform IN ('android', 'ios', 'web'))",
			"DROP TABLE IF EXISTS device_tokens",
		},
		"*_create_topics.sql": {
			"ux_topics_name",
			"ON device_topic_subscriptions (device_id, topic_id)",
			"DROP TABLE IF EXISTS device_topic_subscriptions",
		},
		"*_create_sent_notifications.sql": {
			"CHECK (status IN ('sent', 'delivered', 'failed', 'pending'))",
			"ON DELETE SET NULL",
			"idx_sent_notifications_sent_at",
		},
		"*_create_user_notification_preferences.sql": {
			"marketing_enabled boolean NOT NULL DEFAULT false",
			"ux_user_notification_preferences_user_id",
		},
	}

	for pattern, statements := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		require.NoError(t, err)
		require.Len(t, matches, 1, pattern)

		data, err := os.ReadFile(matches[0])
		require.NoError(t, err)
		for _, stmt := range statements {
			if !strings.Contains(string(data), stmt) {
				t.Errorf("%s: missing expected statement %q", matches[0], stmt)
			}
		}
	}
}

func TestCreateAndValidate(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Delivery Receipts!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_delivery_receipts.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateRejectsEmptyDir(t *testing.T) {
	require.Error(t, migrate.ValidateDir(t.TempDir()))
	require.Error(t, migrate.ValidateDir(""))
}

func TestValidateRejectsMalformedFiles(t *testing.T) {
	cases := map[string]string{
		"down before up": "-- +goose Down\n-- +goose Up\n",
		"missing down":   "-- +goose Up\nSELECT 1;\n",
		"unbalanced":     "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"20260301090000_x.sql": {Data: []byte(body)}}
			require.Error(t, migrate.Validate(fsys))
		})
	}

	dup := fstest.MapFS{
		"20260301090000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260301090000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	require.ErrorContains(t, migrate.Validate(dup), "duplicate migration version")
}
