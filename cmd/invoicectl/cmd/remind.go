package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/servo98/express-invoices/internal/application/dto"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send the monthly Discord reminders",
	Long: `Run the reminder sweep once for the current month.

Users with reminders enabled, a Discord webhook and no invoice for the
current period receive one message. Failures are reported per user and do
not stop the sweep.`,
	RunE: runRemind,
}

func init() {
	rootCmd.AddCommand(remindCmd)
}

func runRemind(cmd *cobra.Command, _ []string) error {
	c, err := loadContainer(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.Reminders.ExecuteForAllUsers(cmd.Context(), time.Now())
	if err != nil {
		return err
	}
	out := dto.ReminderSweepResponse{Sent: res.Sent, Skipped: res.Skipped, Failed: res.Failed, Errors: res.Errors}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
