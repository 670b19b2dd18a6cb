package main

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/angelmondragon/pushrelay-backend/pkg/enums"
)

type registerFlags struct {
	Token       string `json:"fcmToken"`
	Platform    string `json:"platform"`
	UserID      string `json:"userId,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
	AppVersion  string `json:"appVersion,omitempty"`
	OSVersion   string `json:"osVersion,omitempty"`
	DeviceModel string `json:"deviceModel,omitempty"`
}

func newRegisterCmd(v *viper.Viper) *cobra.Command {
	var f registerFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register or refresh a device token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := enums.ParsePlatform(f.Platform); err != nil {
				return err
			}
			var out json.RawMessage
			if err := apiFromViper(v).do(cmd.Context(), http.MethodPost, "/api/public/devices/register", nil, "", f, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.Token, "fcm-token", "", "registration token")
	flags.StringVar(&f.Platform, "platform", "", "android, ios or web")
	flags.StringVar(&f.UserID, "user-id", "", "owning user")
	flags.StringVar(&f.DeviceID, "device-id", "", "client device id")
	flags.StringVar(&f.AppVersion, "app-version", "", "")
	flags.StringVar(&f.OSVersion, "os-version", "", "")
	flags.StringVar(&f.DeviceModel, "device-model", "", "")
	_ = cmd.MarkFlagRequired("fcm-token")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}
