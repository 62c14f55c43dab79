package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ask <message...>",
		Short:   "Answer one chat message and print the reply",
		Example: `  weatherbot ask "What is the temperature in Ho Chi Minh?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := loadApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.router.Reply(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
			return err
		},
	}
}
