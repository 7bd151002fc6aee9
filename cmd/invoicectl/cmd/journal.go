package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the stamp journal",
	Long: `The stamp journal records every PAC stamp attempt. An attempt whose
outcome is unknown (timeout, or stamped at the PAC but not saved) blocks
further stamping of that invoice until an operator checks the PAC and
resolves it.

The journal file is locked while the server runs; stop it before using
these commands.`,
}

var journalPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List invoices blocked by an unresolved stamp attempt",
	Args:  cobra.NoArgs,
	RunE:  runJournalPending,
}

var journalResolveCmd = &cobra.Command{
	Use:   "resolve <invoice-id>",
	Short: "Mark the last stamp attempt of an invoice as resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalResolve,
}

func init() {
	journalCmd.AddCommand(journalPendingCmd, journalResolveCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalPending(cmd *cobra.Command, _ []string) error {
	c, err := loadContainer(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer c.Close()

	pending, err := c.Journal.Pending()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INVOICE\tPROVIDER\tSTATUS\tSTARTED\tUUID")
	for _, a := range pending {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.InvoiceID, a.Provider, a.Status, a.StartedAt.Format(time.RFC3339), a.UUID)
	}
	return w.Flush()
}

func runJournalResolve(cmd *cobra.Command, args []string) error {
	c, err := loadContainer(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer c.Close()

	a, err := c.Journal.Resolve(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "intento de %s (%s) marcado como %s\n", a.InvoiceID, a.Provider, a.Status)
	return nil
}
