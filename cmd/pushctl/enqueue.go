package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/pushrelay-backend/internal/notifications"
	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/pubsub"
)

// newEnqueueCmd publishes a SendRequest document straight to the worker topic.
func newEnqueueCmd() *cobra.Command {
	var file, eventID string
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a send request on Pub/Sub for the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readSendRequest(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logg := logger.New(logger.Options{
				ServiceName: "pushctl",
				Level:       logger.ParseLevel(cfg.App.LogLevel),
				Format:      cfg.App.LogFormat,
				Output:      cmd.ErrOrStderr(),
			})

			ctx := cmd.Context()
			client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleProducer, logg)
			if err != nil {
				return err
			}
			defer client.Close()

			producer, err := notifications.NewProducer(client.SendPublisher())
			if err != nil {
				return err
			}
			id, err := producer.Enqueue(ctx, req, eventID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "send request JSON file, - for stdin")
	cmd.Flags().StringVar(&eventID, "event-id", "", "deduplication id; generated when empty")
	return cmd
}

func readSendRequest(stdin io.Reader, file string) (notifications.SendRequest, error) {
	var req notifications.SendRequest
	src := stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return req, err
		}
		defer f.Close()
		src = f
	}
	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode send request: %w", err)
	}
	return req, nil
}
