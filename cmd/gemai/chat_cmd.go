package main

import (
	"github.com/spf13/cobra"

	"gemai/cmd/gemai/chat"
	"gemai/internal/command"
)

func registerChatCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: command.Get(command.Chat).Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return chat.Run(chat.Options{Prefs: prefs, Store: store})
		},
	})
}
