package main

import (
	"strconv"

	"github.com/finn-wa/grocy-trolley-sub000/internal/grocy"
	"github.com/spf13/cobra"
)

var exportListID int

// stockCmd posts stock for the trolley
var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Stock trolley products that are already in Grocy",
	Long: `Post stock for the products in the store trolley that were imported before,
priced from the trolley. Products that are not in Grocy yet are skipped; use
"import cart" to create them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		im, err := newImporter()
		if err != nil {
			return err
		}
		return finishRun(im.StockCart(cmd.Context()))
	},
}

// exportListCmd copies a Grocy shopping list to a store list
var exportListCmd = &cobra.Command{
	Use:   "export-list <store-list-id>",
	Short: "Add a Grocy shopping list to a store list",
	Long: `Add the items of a Grocy shopping list to a saved list in the store. Generic
products are resolved to one of their variants; a generic product without
variants is searched for in the store and the chosen product is imported as
its variant.`,
	Example: `  grocy-trolley export-list 12345
  grocy-trolley export-list 12345 --list 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		listID := cfg.Grocy.ShoppingListID
		if cmd.Flags().Changed("list") {
			listID = exportListID
		}
		im, err := newImporter()
		if err != nil {
			return err
		}
		logger.Info().Str("grocy_list", strconv.Itoa(listID)).Str("store_list", args[0]).Msg("Exporting shopping list")
		return finishRun(im.ExportList(cmd.Context(), grocy.ID(listID), args[0]))
	},
}

func init() {
	rootCmd.AddCommand(stockCmd, exportListCmd)

	exportListCmd.Flags().IntVar(&exportListID, "list", 1, "Grocy shopping list id (defaults to grocy.shopping_list_id)")
}
