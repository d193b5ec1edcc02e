package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"support-console/internal/inbox"
	"support-console/internal/model"
)

func newSendCmd() *cobra.Command {
	var isNote bool

	cmd := &cobra.Command{
		Use:   "send <conversation-id> <message...>",
		Short: "Send a message to a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := buildService(false, false)
			if err != nil {
				return err
			}

			conversationID := args[0]
			body := strings.Join(args[1:], " ")

			// Writes run inline for one-shot commands, so by the time
			// SendMessage returns the outcome is known.
			tempID, err := service.SendMessage(context.Background(), inbox.SendParams{
				ConversationID: conversationID,
				Body:           body,
				Type:           model.MessageTypeText,
				IsNote:         isNote,
			})
			if err != nil {
				return err
			}
			for _, failed := range service.FailedMessages() {
				if failed == tempID {
					return fmt.Errorf("message could not be delivered")
				}
			}
			fmt.Println("sent")
			return nil
		},
	}

	cmd.Flags().BoolVar(&isNote, "note", false, "send as a private note, invisible to the visitor")
	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <conversation-id>",
		Short: "Mark a conversation resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := buildService(false, false)
			if err != nil {
				return err
			}
			if err := service.Resolve(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("resolved")
			return nil
		},
	}
}
