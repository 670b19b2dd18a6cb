package main

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/angelmondragon/pushrelay-backend/internal/dispatch"
	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
)

type sendFlags struct {
	payload        dispatch.Payload
	dryRun         bool
	idempotencyKey string
}

func (f *sendFlags) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.payload.Title, "title", "", "notification title")
	flags.StringVar(&f.payload.Body, "body", "", "notification body")
	flags.StringToStringVar(&f.payload.Data, "data", nil, "data entries as key=value")
	flags.StringVar(&f.payload.ImageURL, "image-url", "", "absolute image URL")
	flags.StringVar(&f.payload.ClickAction, "click-action", "", "web click action URL")
	flags.BoolVar(&f.dryRun, "dry-run", false, "validate with the provider without delivering")
	flags.StringVar(&f.idempotencyKey, "idempotency-key", "", "Idempotency-Key header; generated when empty")
	_ = cmd.MarkPersistentFlagRequired("title")
	_ = cmd.MarkPersistentFlagRequired("body")
}

func (f *sendFlags) key() string {
	if f.idempotencyKey != "" {
		return f.idempotencyKey
	}
	return uuid.NewString()
}

func newSendCmd(v *viper.Viper) *cobra.Command {
	f := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification through the API",
	}
	f.bind(cmd)

	post := func(cmd *cobra.Command, path string, body any) error {
		var out json.RawMessage
		if err := apiFromViper(v).do(cmd.Context(), http.MethodPost, path, nil, f.key(), body, &out); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
	basic := func() map[string]any {
		return map[string]any{"payload": f.payload, "dryRun": f.dryRun}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "user <user-id>",
			Short: "Send to every active device of a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return post(cmd, "/api/v1/push/users/"+url.PathEscape(args[0]), basic())
			},
		},
		&cobra.Command{
			Use:   "tokens <fcm-token>...",
			Short: "Send to explicit registration tokens",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				body := basic()
				body["fcmTokens"] = args
				return post(cmd, "/api/v1/push/tokens", body)
			},
		},
		&cobra.Command{
			Use:   "topic <name>",
			Short: "Send to a topic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return post(cmd, "/api/v1/push/topics/"+url.PathEscape(args[0]), basic())
			},
		},
		&cobra.Command{
			Use:       "platform <android|ios|web>",
			Short:     "Send to every active device on a platform",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(enums.PlatformAndroid), string(enums.PlatformIOS), string(enums.PlatformWeb)},
			RunE: func(cmd *cobra.Command, args []string) error {
				platform, err := enums.ParsePlatform(args[0])
				if err != nil {
					return err
				}
				return post(cmd, "/api/v1/push/platforms/"+string(platform), basic())
			},
		},
		&cobra.Command{
			Use:   "all",
			Short: "Broadcast to every active device",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return post(cmd, "/api/v1/push/all", basic())
			},
		},
	)
	return cmd
}
