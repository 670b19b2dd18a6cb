package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pkgAuth "github.com/angelmondragon/pushrelay-backend/pkg/auth"
	"github.com/angelmondragon/pushrelay-backend/pkg/config"
)

// newTokenCmd mints an access token for local testing. The secret and issuer
// come from PUSHRELAY_JWT_SECRET and PUSHRELAY_JWT_ISSUER unless flags override them.
func newTokenCmd(v *viper.Viper) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.JWTConfig{
				Secret:            v.GetString("jwt-secret"),
				Issuer:            v.GetString("jwt-issuer"),
				ExpirationMinutes: v.GetInt("jwt-expiration-minutes"),
			}
			token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&userID, "user-id", "", "subject of the token")
	flags.String("jwt-secret", "", "signing secret")
	flags.String("jwt-issuer", "", "token issuer")
	flags.Int("jwt-expiration-minutes", 60, "token lifetime in minutes")
	_ = v.BindPFlag("jwt-secret", flags.Lookup("jwt-secret"))
	_ = v.BindPFlag("jwt-issuer", flags.Lookup("jwt-issuer"))
	_ = v.BindPFlag("jwt-expiration-minutes", flags.Lookup("jwt-expiration-minutes"))
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
