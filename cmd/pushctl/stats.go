package main

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatsCmd(v *viper.Viper) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show sent notification counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if start != "" {
				query.Set("start", start)
			}
			if end != "" {
				query.Set("end", end)
			}
			var out json.RawMessage
			if err := apiFromViper(v).do(cmd.Context(), http.MethodGet, "/api/v1/push/stats", query, "", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "range start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "range end (RFC3339 or YYYY-MM-DD)")
	return cmd
}
