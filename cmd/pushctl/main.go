package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultAPIURL  = "http://localhost:8080"
	requestTimeout = 30 * time.Second
)

// newRootCmd builds pushctl with its own viper instance so tests can run commands in isolation.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PUSHRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfgFile string
	root := &cobra.Command{
		Use:           "pushctl",
		Short:         "Operate the push relay service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config %s: %w", cfgFile, err)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "optional config file (yaml, json or toml)")
	flags.String("api-url", defaultAPIURL, "push relay API base URL")
	flags.String("api-token", "", "bearer token for /api/v1 routes")
	_ = v.BindPFlag("api-url", flags.Lookup("api-url"))
	_ = v.BindPFlag("api-token", flags.Lookup("api-token"))

	root.AddCommand(
		newSendCmd(v),
		newStatsCmd(v),
		newRegisterCmd(v),
		newTokenCmd(v),
		newEnqueueCmd(),
	)
	return root
}

func apiFromViper(v *viper.Viper) *apiClient {
	return newAPIClient(v.GetString("api-url"), v.GetString("api-token"), requestTimeout)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
