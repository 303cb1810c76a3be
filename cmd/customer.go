package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

var tableFlag string

func addTableFlag(c *cobra.Command) {
	c.PersistentFlags().StringVarP(&tableFlag, "table", "t", "", "table number from the QR code")
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Show the menu of a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		session, err := services.OpenTableSession(e.store, tableFlag)
		if err != nil {
			return errors.New("Invalid QR")
		}
		if _, err := session.GuestToken(); err != nil {
			return err
		}
		menu, err := e.menus.Menu(cmd.Context(), session.Table)
		if err != nil {
			if services.IsConnectivity(err) {
				return fmt.Errorf("%s\n\n%s", services.ConnectivityMessage, services.ConnectivityHint)
			}
			return errors.New(services.UserMessage(err, "Menu could not be loaded. Please try again."))
		}

		cart := services.LoadCart(e.store).Lines()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, cat := range menu.Categories {
			fmt.Fprintf(w, "== %s ==\n", cat.Name)
			for _, item := range cat.Items {
				avail := ""
				if !item.IsAvailable {
					avail = "unavailable"
				} else if q := cart.Quantity(item.ID); q > 0 {
					avail = fmt.Sprintf("in cart: %d", q)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", item.ID, item.Name, utils.FormatCurrencyINR(item.Price.Float()), avail)
			}
		}
		if n := cart.ItemCount(); n > 0 {
			fmt.Fprintf(w, "\nCart: %d items\t%s\n", n, utils.FormatCurrencyINR(cart.Subtotal()))
		}
		return w.Flush()
	},
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show or change the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), services.LoadCart(e.store).Lines())
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <item-id>",
	Short: "Add one of a menu item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		table, err := models.ParseTableNumber(tableFlag)
		if err != nil {
			return services.ErrInvalidSession
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid item id %q", args[0])
		}
		item, err := e.menus.Item(cmd.Context(), table, id)
		if err != nil {
			return errors.New(services.UserMessage(err, "Menu could not be loaded. Please try again."))
		}
		lines, err := services.LoadCart(e.store).Add(item)
		if err != nil {
			return err
		}
		return printCart(cmd.OutOrStdout(), lines)
	},
}

func cartStep(use, short string, op func(*services.CartStore, int) (models.Cart, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <item-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			lines, err := op(services.LoadCart(e.store), id)
			if err != nil {
				return err
			}
			return printCart(cmd.OutOrStdout(), lines)
		},
	}
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		return services.LoadCart(e.store).Clear()
	},
}

func printCart(out io.Writer, cart models.Cart) error {
	if len(cart) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, l := range cart {
		fmt.Fprintf(w, "%d\t%s\tx%d\t%s\n", l.ItemID, l.Name, l.Quantity, utils.FormatCurrencyINR(l.LineTotal()))
	}
	t := cart.Totals()
	fmt.Fprintf(w, "\nSubtotal\t\t\t%s\n", utils.FormatCurrencyINR(t.Subtotal))
	fmt.Fprintf(w, "Tax (5%%)\t\t\t%s\n", utils.FormatCurrencyINR(t.Tax))
	fmt.Fprintf(w, "Total\t\t\t%s\n", utils.FormatCurrencyINR(t.Total))
	return w.Flush()
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place orders and follow their status",
}

var orderPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Place the cart as an order for the table",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		cart := services.LoadCart(e.store)
		res, err := e.submitter.Submit(cmd.Context(), e.store, cart, tableFlag)
		if err != nil {
			return errors.New(services.SubmitMessage(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Order %s placed for table %d (%s)\nStatus: %s\n",
			res.OrderID, res.Table, utils.FormatCurrencyINR(res.Totals.Total), res.RedirectURL)
		return nil
	},
}

var (
	statusOrderID string
	statusWatch   bool
)

var orderStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current order of the table",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		req := services.StatusRequest{
			Store:        e.store,
			SessionStore: e.sessionStore,
			RawTable:     tableFlag,
			OrderID:      statusOrderID,
		}
		out := cmd.OutOrStdout()

		if !statusWatch {
			view, err := e.reconciler.Load(cmd.Context(), req)
			if err != nil {
				return err
			}
			printStatus(out, view)
			if view.Err != nil {
				return errors.New(view.Error)
			}
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		fatal := make(chan error, 1)
		poller := services.NewPoller("order-status", e.cfg.OrderPollInterval, func(pctx context.Context) error {
			view, err := e.reconciler.Load(pctx, req)
			if err != nil {
				select {
				case fatal <- err:
				default:
				}
				return err
			}
			req.OrderID = view.OrderID
			printStatus(out, view)
			return nil
		})
		poller.Start(ctx)
		defer poller.Stop()

		select {
		case err := <-fatal:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case <-ctx.Done():
			return nil
		}
	},
}

func printStatus(out io.Writer, v *services.OrderView) {
	fmt.Fprintf(out, "Table %d  %s\n", v.Table, v.CanonicalURL)
	if v.Error != "" {
		fmt.Fprintln(out, v.Error)
	}
	if o := v.Order; o != nil {
		fmt.Fprintf(out, "Order #%s  %s  %s\n", o.ID, o.Status.Label(), models.FormatOrderTime(o.CreatedAt.Time, nil))
		for _, it := range o.Items {
			fmt.Fprintf(out, "  %s x%d  %s\n", it.Name, it.Quantity, utils.FormatCurrencyINR(it.LineTotal))
		}
		fmt.Fprintf(out, "  Total %s\n", utils.FormatCurrencyINR(o.Total))
	}
	if v.PaymentNote != "" {
		fmt.Fprintln(out, "Payment Noted! "+v.PaymentNote)
	}
	for _, l := range v.PaymentLinks {
		fmt.Fprintf(out, "  pay (%s): %s\n", l.App, l.URL)
	}
	if len(v.TableOrders) > 0 {
		fmt.Fprintln(out, "Orders at this table:")
		for _, s := range v.TableOrders {
			fmt.Fprintf(out, "  %s  %s  %d items  %s\n", s.ID, s.Status.Label(), s.ItemCount, utils.FormatCurrencyINR(s.Total))
		}
	}
}

var payCmd = &cobra.Command{
	Use:   "pay <order-id>",
	Short: "Print UPI payment links for an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		order, err := e.reconciler.Detail(cmd.Context(), args[0])
		if err != nil {
			return errors.New(services.UserMessage(err, "Failed to load order"))
		}
		links := services.PaymentLinks(e.merchant, order)
		if len(links) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "This order no longer accepts payment.")
			return nil
		}
		for _, l := range links {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.App, l.URL)
		}
		return nil
	},
}

var payDoneCmd = &cobra.Command{
	Use:   "done <order-id>",
	Short: "Note that you paid an order through a UPI app",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if err := services.NewPaymentTracker(e.sessionStore).MarkAttempted(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Payment Noted! "+services.PaymentNotedMessage)
		return nil
	},
}

func init() {
	addTableFlag(menuCmd)
	addTableFlag(cartCmd)
	addTableFlag(orderCmd)

	cartCmd.AddCommand(
		cartAddCmd,
		cartStep("inc", "Increase the quantity of a cart line", (*services.CartStore).Increment),
		cartStep("dec", "Decrease the quantity of a cart line, removing it at zero", (*services.CartStore).Decrement),
		cartClearCmd,
	)

	orderStatusCmd.Flags().StringVar(&statusOrderID, "order-id", "", "order to show instead of the last one")
	orderStatusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "keep polling until interrupted")
	orderCmd.AddCommand(orderPlaceCmd, orderStatusCmd)

	payCmd.AddCommand(payDoneCmd)
}
