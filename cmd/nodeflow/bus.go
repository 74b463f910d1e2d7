package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var errEmptyTopic = errors.New("topic is empty")

func newBusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bus",
		Short: "Publish to or consume from message bus topics",
		Long: `Operates on the configured message bus. Without redis.addr the bus
lives only for the duration of the command, so these commands are
mostly useful against a shared Redis bus.`,
	}
	cmd.AddCommand(newBusPublishCmd(), newBusConsumeCmd(), newBusLenCmd())
	return cmd
}

func newBusPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <topic> [message]",
		Short: "Append a payload to a topic (reads stdin when message is omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := ""
			if len(args) == 2 {
				payload = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				payload = string(data)
			}
			if strings.TrimSpace(payload) == "" {
				return errors.New("payload is empty")
			}

			application, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.bus.Publish(cmd.Context(), args[0], payload); err != nil {
				return err
			}
			size, err := application.bus.Len(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published to %s (%d queued)\n", args[0], size)
			return nil
		},
	}
}

func newBusConsumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume <topic>",
		Short: "Pop the oldest payload of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			payload, ok, err := application.bus.Consume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %w", args[0], errEmptyTopic)
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload)
			return nil
		},
	}
}

func newBusLenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "len <topic>",
		Short: "Print the number of payloads queued on a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			size, err := application.bus.Len(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), size)
			return nil
		},
	}
}
