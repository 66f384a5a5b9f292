package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/finn-wa/grocy-trolley-sub000/internal/importer"
	"github.com/spf13/cobra"
)

var barcodeFile string

// importCmd groups the import sources
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import store products into Grocy",
	Long: `Import products from a store surface into Grocy. Products imported before are
recognised by the store product id kept in their metadata and are not created
again. Configuration errors such as an unmapped store category stop the run;
other failures can be skipped one at a time.`,
}

var importCartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Import the products in the store trolley",
	Example: `  grocy-trolley import cart
  grocy-trolley import cart --store NW --stock`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		im, err := newImporter()
		if err != nil {
			return err
		}
		return finishRun(im.ImportCart(cmd.Context()))
	},
}

var importListCmd = &cobra.Command{
	Use:   "list <list-id>",
	Short: "Import the products on a saved store list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		im, err := newImporter()
		if err != nil {
			return err
		}
		return finishRun(im.ImportList(cmd.Context(), args[0]))
	},
}

var importOrderCmd = &cobra.Command{
	Use:   "order <order-id>",
	Short: "Import the products of a placed order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		im, err := newImporter()
		if err != nil {
			return err
		}
		return finishRun(im.ImportOrder(cmd.Context(), args[0]))
	},
}

var importReceiptCmd = &cobra.Command{
	Use:   "receipt <file>",
	Short: "Import an itemised receipt",
	Long: `Import an itemised receipt given as a JSON array of lines:

  [{"name": "ANCHOR BUTTER 500G", "quantity": 1, "price": 599}]

price is the line total in cents. A CSV export with a header row naming the
name, quantity and price columns is read too; its prices are in dollars.
Lines are matched to products by receipt
names remembered from earlier imports; the rest are searched for in the store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		lines, err := importer.ReadReceipt(f)
		if err != nil {
			return err
		}
		logger.Info().Int("lines", len(lines)).Msg("Read receipt")

		im, err := newImporter()
		if err != nil {
			return err
		}
		return finishRun(im.ImportReceipt(cmd.Context(), lines))
	},
}

var importBarcodeCmd = &cobra.Command{
	Use:   "barcode [barcode...]",
	Short: "Import products by scanned barcode",
	Example: `  grocy-trolley import barcode 9415077000012
  grocy-trolley import barcode --file scans.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		barcodes := args
		if barcodeFile != "" {
			fromFile, err := readLines(barcodeFile)
			if err != nil {
				return err
			}
			barcodes = append(barcodes, fromFile...)
		}
		if len(barcodes) == 0 {
			return fmt.Errorf("no barcodes given")
		}

		im, err := newImporter()
		if err != nil {
			return err
		}
		return finishRun(im.ImportBarcodes(cmd.Context(), barcodes))
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importCartCmd, importListCmd, importOrderCmd, importReceiptCmd, importBarcodeCmd)

	importBarcodeCmd.Flags().StringVar(&barcodeFile, "file", "", "File with one barcode per line")
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
