package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var sentLimit int

var sentCmd = &cobra.Command{
	Use:   "sent",
	Short: "Show recently sent email",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sent, err := application.Store.RecentSent(cmd.Context(), sentLimit)
		if err != nil {
			return err
		}
		if len(sent) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing sent yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SENT\tTO\tSUBJECT")
		for _, m := range sent {
			to := m.To
			if m.ToName != "" {
				to = fmt.Sprintf("%s <%s>", m.ToName, m.To)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.SentAt.Local().Format(time.DateTime), to, m.Subject)
		}
		return w.Flush()
	},
}

func init() {
	sentCmd.Flags().IntVarP(&sentLimit, "limit", "n", 20, "number of messages to show")
}
