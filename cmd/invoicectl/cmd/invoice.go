package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	userRef    string
	outputFile string
)

var xmlCmd = &cobra.Command{
	Use:   "xml <invoice-id>",
	Short: "Print the CFDI XML of an invoice",
	Long: `Print the CFDI 4.0 XML of an invoice: the stamped document when the
invoice is timbrado, otherwise the freshly generated base XML.`,
	Args: cobra.ExactArgs(1),
	RunE: runXML,
}

var timbrarCmd = &cobra.Command{
	Use:   "timbrar <invoice-id>",
	Short: "Stamp an invoice with the configured PAC",
	Args:  cobra.ExactArgs(1),
	RunE:  runTimbrar,
}

func init() {
	rootCmd.AddCommand(xmlCmd, timbrarCmd)

	for _, c := range []*cobra.Command{xmlCmd, timbrarCmd} {
		c.Flags().StringVarP(&userRef, "user", "u", "", "Owner of the invoice (user id or email)")
		_ = c.MarkFlagRequired("user")
	}
	xmlCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the XML to a file instead of stdout")
}

func runXML(cmd *cobra.Command, args []string) error {
	c, err := loadContainer(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer c.Close()

	userID, err := resolveUser(cmd.Context(), c, userRef)
	if err != nil {
		return err
	}
	doc, err := c.Documents.GenerateXML(cmd.Context(), userID, args[0])
	if err != nil {
		return err
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, doc.Data, 0o644); err != nil {
			return fmt.Errorf("escribir %s: %w", outputFile, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "XML escrito en %s\n", outputFile)
		return nil
	}
	_, err = cmd.OutOrStdout().Write(doc.Data)
	return err
}

func runTimbrar(cmd *cobra.Command, args []string) error {
	c, err := loadContainer(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer c.Close()

	userID, err := resolveUser(cmd.Context(), c, userRef)
	if err != nil {
		return err
	}
	inv, err := c.Stamps.Timbrar(cmd.Context(), userID, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]string{"id": inv.ID, "uuid": inv.UUID, "status": inv.Status})
}
