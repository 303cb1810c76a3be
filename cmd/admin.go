package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

var (
	adminTable int
	assumeYes  bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Staff dashboard: orders and menu",
}

// adminRun wraps commands that need an unlocked dashboard.
func adminRun(run func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if err := e.requireAdmin(); err != nil {
			return err
		}
		return run(cmd, e, args)
	}
}

func intArg(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return n, nil
}

var adminLoginCmd = &cobra.Command{
	Use:   "login <pin>",
	Short: "Unlock the dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if err := e.gate.Login(e.store, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Dashboard unlocked.")
		return nil
	},
}

var adminLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Lock the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		return e.gate.Logout(e.store)
	},
}

func printAdminOrders(out io.Writer, table int, orders []models.OrderSummary) error {
	if len(orders) == 0 {
		fmt.Fprintf(out, "No orders for table %d.\n", table)
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tITEMS\tTOTAL\tPLACED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%d/3\t%d\t%s\t%s\n", o.ID, o.Status.AdminLabel(), o.Status.Progress(),
			o.ItemCount, utils.FormatCurrencyINR(o.Total), models.FormatOrderTime(o.CreatedAt.Time, nil))
	}
	return w.Flush()
}

var adminOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List the orders of a table",
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		orders, err := e.admin.Orders(cmd.Context(), adminTable)
		if err != nil {
			return err
		}
		return printAdminOrders(cmd.OutOrStdout(), adminTable, orders)
	}),
}

var adminAdvanceCmd = &cobra.Command{
	Use:   "advance <order-id>",
	Short: "Move an order one step forward",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		orders, err := e.admin.AdvanceOrder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printAdminOrders(cmd.OutOrStdout(), adminTable, orders)
	}),
}

var adminSetStatusCmd = &cobra.Command{
	Use:   "set-status <order-id> <status>",
	Short: "Move an order to a given status",
	Args:  cobra.ExactArgs(2),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		status, err := models.ParseOrderStatus(args[1])
		if err != nil {
			return err
		}
		orders, err := e.admin.TransitionOrder(cmd.Context(), args[0], status, assumeYes)
		if err != nil {
			return err
		}
		return printAdminOrders(cmd.OutOrStdout(), adminTable, orders)
	}),
}

var adminCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel a pending or preparing order",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		orders, err := e.admin.CancelOrder(cmd.Context(), args[0], assumeYes)
		if err != nil {
			return confirmHint(err, "Are you sure you want to cancel this order?")
		}
		return printAdminOrders(cmd.OutOrStdout(), adminTable, orders)
	}),
}

var adminEndSessionCmd = &cobra.Command{
	Use:   "end-session <table>",
	Short: "Close every order of a table",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		table, err := intArg(args[0], "table")
		if err != nil {
			return err
		}
		resp, err := e.admin.EndSession(cmd.Context(), table, assumeYes)
		if err != nil {
			return confirmHint(err, "End the session for this table?")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d orders closed)\n", resp.Message, resp.ClosedOrders)
		return nil
	}),
}

var adminTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables",
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		tables, err := e.admin.Tables(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, t := range tables {
			fmt.Fprintf(w, "%d\t%s\t%d active\n", t.TableNumber, t.Status, t.ActiveOrders)
		}
		return w.Flush()
	}),
}

func confirmHint(err error, question string) error {
	if errors.Is(err, services.ErrConfirmationRequired) {
		return fmt.Errorf("%s Re-run with --yes", question)
	}
	return err
}

func printCategories(out io.Writer, cats []models.Category) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range cats {
		fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
	}
	return w.Flush()
}

func printItems(out io.Writer, items []models.MenuItem) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		avail := "available"
		if !it.IsAvailable {
			avail = "unavailable"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\tcategory %d\t%s\t%s\n", it.ID, it.Name, utils.FormatCurrencyINR(it.Price.Float()),
			it.CategoryID, avail, it.DisplayImageURL())
	}
	return w.Flush()
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage menu categories",
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		cats, err := e.admin.Categories(cmd.Context())
		if err != nil {
			return err
		}
		return printCategories(cmd.OutOrStdout(), cats)
	}),
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		cats, err := e.admin.CreateCategory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printCategories(cmd.OutOrStdout(), cats)
	}),
}

var categoryRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a category",
	Args:  cobra.ExactArgs(2),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		id, err := intArg(args[0], "category id")
		if err != nil {
			return err
		}
		cats, err := e.admin.RenameCategory(cmd.Context(), id, args[1])
		if err != nil {
			return err
		}
		return printCategories(cmd.OutOrStdout(), cats)
	}),
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		id, err := intArg(args[0], "category id")
		if err != nil {
			return err
		}
		cats, err := e.admin.DeleteCategory(cmd.Context(), id, assumeYes)
		if err != nil {
			return confirmHint(err, "Delete this category?")
		}
		return printCategories(cmd.OutOrStdout(), cats)
	}),
}

var (
	itemName      string
	itemPrice     float64
	itemCategory  int
	itemAvailable bool
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage menu items",
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		items, err := e.admin.Items(cmd.Context())
		if err != nil {
			return err
		}
		return printItems(cmd.OutOrStdout(), items)
	}),
}

// itemInput collects only the flags that were given.
func itemInput(cmd *cobra.Command) models.MenuItemInput {
	var in models.MenuItemInput
	if cmd.Flags().Changed("name") {
		in.Name = &itemName
	}
	if cmd.Flags().Changed("price") {
		in.Price = &itemPrice
	}
	if cmd.Flags().Changed("category") {
		in.CategoryID = &itemCategory
	}
	if cmd.Flags().Changed("available") {
		in.IsAvailable = &itemAvailable
	}
	return in
}

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a menu item",
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		items, err := e.admin.CreateItem(cmd.Context(), itemInput(cmd))
		if err != nil {
			return err
		}
		return printItems(cmd.OutOrStdout(), items)
	}),
}

var itemUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a menu item",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		id, err := intArg(args[0], "item id")
		if err != nil {
			return err
		}
		items, err := e.admin.UpdateItem(cmd.Context(), id, itemInput(cmd))
		if err != nil {
			return err
		}
		return printItems(cmd.OutOrStdout(), items)
	}),
}

var itemToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Flip the availability of a menu item",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		id, err := intArg(args[0], "item id")
		if err != nil {
			return err
		}
		items, err := e.admin.Items(cmd.Context())
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.ID == id {
				items, err = e.admin.SetAvailability(cmd.Context(), id, !it.IsAvailable)
				if err != nil {
					return err
				}
				return printItems(cmd.OutOrStdout(), items)
			}
		}
		return services.ErrUnknownItem
	}),
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a menu item",
	Args:  cobra.ExactArgs(1),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		id, err := intArg(args[0], "item id")
		if err != nil {
			return err
		}
		items, err := e.admin.DeleteItem(cmd.Context(), id, assumeYes)
		if err != nil {
			return confirmHint(err, "Delete this menu item?")
		}
		return printItems(cmd.OutOrStdout(), items)
	}),
}

var itemImageCmd = &cobra.Command{
	Use:   "image <id> <file>",
	Short: "Upload the picture of a menu item",
	Args:  cobra.ExactArgs(2),
	RunE: adminRun(func(cmd *cobra.Command, e *env, args []string) error {
		id, err := intArg(args[0], "item id")
		if err != nil {
			return err
		}
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		items, err := e.admin.UploadImage(cmd.Context(), id, args[1], f)
		if err != nil {
			return err
		}
		return printItems(cmd.OutOrStdout(), items)
	}),
}

func init() {
	adminCmd.PersistentFlags().IntVar(&adminTable, "table", 1, "table whose orders are shown")
	adminCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "confirm destructive actions")

	for _, c := range []*cobra.Command{itemAddCmd, itemUpdateCmd} {
		c.Flags().StringVar(&itemName, "name", "", "item name")
		c.Flags().Float64Var(&itemPrice, "price", 0, "price in rupees")
		c.Flags().IntVar(&itemCategory, "category", 0, "category id")
		c.Flags().BoolVar(&itemAvailable, "available", true, "whether the item can be ordered")
	}

	categoryCmd.AddCommand(categoryAddCmd, categoryRenameCmd, categoryDeleteCmd)
	itemCmd.AddCommand(itemAddCmd, itemUpdateCmd, itemToggleCmd, itemDeleteCmd, itemImageCmd)
	adminCmd.AddCommand(
		adminLoginCmd, adminLogoutCmd, adminOrdersCmd, adminAdvanceCmd, adminSetStatusCmd,
		adminCancelCmd, adminEndSessionCmd, adminTablesCmd, categoryCmd, itemCmd,
	)
}
