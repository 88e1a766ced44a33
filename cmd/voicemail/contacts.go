package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhle/voice-mail/internal/dialogue"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage saved contacts",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved contacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		contacts, err := application.Store.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contacts saved.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tADDRESS")
		for _, c := range contacts {
			fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Address)
		}
		return w.Flush()
	},
}

var contactsAddCmd = &cobra.Command{
	Use:   "add <name> <address>",
	Short: "Save a contact, replacing any contact with the same name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := dialogue.Contact{Name: args[0], Address: args[1]}
		if err := application.Store.Upsert(cmd.Context(), c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s).\n", c.Name, c.Address)
		return nil
	},
}

var contactsRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved contact",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Store.DeleteContact(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
		return nil
	},
}

func init() {
	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsAddCmd)
	contactsCmd.AddCommand(contactsRemoveCmd)
}
