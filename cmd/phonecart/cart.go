package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/huyndq/phonecart/internal/controller"
	"github.com/huyndq/phonecart/internal/models"
	"github.com/spf13/cobra"
)

func cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and mutate the cart",
	}

	cmd.AddCommand(
		cartShowCmd(),
		cartAddCmd(),
		cartQtyCmd(),
		cartColorCmd(),
		cartRemoveCmd(),
		cartClearCmd(),
		cartCountCmd(),
		cartCheckoutCmd(),
	)

	return cmd
}

func cartShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.ctrl.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			printSnapshot(a.ctrl.Snapshot())

			return nil
		},
	}
}

func printSnapshot(snap controller.Snapshot) {
	switch s := snap.(type) {
	case controller.GuestSnapshot:
		if len(s.Lines) == 0 {
			fmt.Println("Guest cart is empty.")

			return
		}

		fmt.Println("Guest cart (log in to see prices):")

		for _, l := range s.Lines {
			fmt.Printf("  #%d  product %d  color %d  x%d\n", l.ID, l.ProductID, l.ColorID, l.Quantity)
		}

		fmt.Printf("Total quantity: %d\n", s.TotalQuantity())
	case controller.AuthenticatedSnapshot:
		if len(s.Cart.Items) == 0 {
			fmt.Println("Your cart is empty.")

			return
		}

		for _, it := range s.Cart.Items {
			status := ""
			if !it.IsAvailable {
				status = "  [" + it.StockStatus + "]"
			}

			fmt.Printf("  #%d  %s (%s)  x%d  %.0f₫%s\n",
				it.ID, it.Product.Name, it.Color.Name, it.Quantity, it.LineTotal, status)
		}

		fmt.Printf("Items: %d  Quantity: %d\n", s.Cart.TotalItems, s.Cart.TotalQuantity)

		if s.Cart.HasUnavailableItems {
			fmt.Println("Some items are unavailable and cannot be checked out.")
		}
	}
}

func cartAddCmd() *cobra.Command {
	var (
		productID int64
		colorID   int64
		quantity  int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			item := models.GuestCartItem{ProductID: productID, ColorID: colorID, Quantity: quantity}

			if !a.creds.IsAuthenticated() {
				a.guest.Add(ctx, item)
				a.bus.EmitCartChanged()
				fmt.Printf("Added to guest cart (now %d item(s) total).\n", a.guest.Count(ctx))

				return nil
			}

			req := &models.AddItemRequest{ProductID: productID, ColorID: colorID, Quantity: quantity}

			cart, err := a.client.AddItem(ctx, req)
			if err != nil {
				return err
			}

			a.bus.EmitCartChanged()
			fmt.Printf("Added. Cart now holds %d item(s).\n", cart.TotalItems)

			return nil
		},
	}

	cmd.Flags().Int64Var(&productID, "product", 0, "Product id")
	cmd.Flags().Int64Var(&colorID, "color", 0, "Color id")
	cmd.Flags().IntVar(&quantity, "qty", 1, "Quantity")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("color")

	return cmd
}

func cartQtyCmd() *cobra.Command {
	var (
		itemID   int64
		quantity int
	)

	cmd := &cobra.Command{
		Use:   "qty",
		Short: "Change the quantity of a cart line",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.ctrl.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			if err := a.ctrl.UpdateQuantity(ctx, itemID, quantity); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			printSnapshot(a.ctrl.Snapshot())

			return nil
		},
	}

	cmd.Flags().Int64Var(&itemID, "item", 0, "Cart line id (see `cart show`)")
	cmd.Flags().IntVar(&quantity, "qty", 1, "New quantity")
	cmd.MarkFlagRequired("item")

	return cmd
}

func cartColorCmd() *cobra.Command {
	var (
		itemID  int64
		colorID int64
	)

	cmd := &cobra.Command{
		Use:   "color",
		Short: "Switch a cart line to another color",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.ctrl.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			if err := a.ctrl.UpdateColor(ctx, itemID, colorID); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			printSnapshot(a.ctrl.Snapshot())

			return nil
		},
	}

	cmd.Flags().Int64Var(&itemID, "item", 0, "Cart line id (see `cart show`)")
	cmd.Flags().Int64Var(&colorID, "color", 0, "New color id")
	cmd.MarkFlagRequired("item")
	cmd.MarkFlagRequired("color")

	return cmd
}

func cartRemoveCmd() *cobra.Command {
	var (
		itemID int64
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Remove a cart line",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.ctrl.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			confirm := func() bool {
				if yes {
					return true
				}

				fmt.Printf("Remove item #%d? [y/N] ", itemID)

				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')

				return strings.EqualFold(strings.TrimSpace(line), "y")
			}

			if err := a.ctrl.RemoveItem(ctx, itemID, confirm); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			printSnapshot(a.ctrl.Snapshot())

			return nil
		},
	}

	cmd.Flags().Int64Var(&itemID, "item", 0, "Cart line id")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagRequired("item")

	return cmd
}

func cartClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.ctrl.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			if err := a.ctrl.ClearCart(ctx); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			fmt.Println("Cart cleared.")

			return nil
		},
	}
}

func cartCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the cart badge count",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if a.creds.Token() == "" {
				fmt.Println(a.guest.Count(ctx))

				return nil
			}

			fmt.Println(a.client.GetCount(ctx))

			return nil
		},
	}
}

func cartCheckoutCmd() *cobra.Command {
	var items []int64

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Validate the cart and hand the selected lines to checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.ctrl.Refresh(ctx); err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			if len(items) == 0 {
				a.ctrl.ToggleSelectAll()
			} else {
				for _, id := range items {
					a.ctrl.ToggleSelect(id)
				}
			}

			ids, err := a.ctrl.Checkout()
			if err != nil {
				return fmt.Errorf("%s", a.ctrl.Err())
			}

			validation, err := a.client.Validate(ctx)
			if err != nil {
				return err
			}

			if !validation.Valid {
				for _, p := range validation.Problems {
					fmt.Println("  !", p)
				}

				return fmt.Errorf("giỏ hàng cần được cập nhật trước khi thanh toán")
			}

			fmt.Printf("Proceeding to checkout with items %v, total %.0f₫\n", ids, a.ctrl.Total())

			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&items, "items", nil, "Cart line ids to check out (default: all)")

	return cmd
}
