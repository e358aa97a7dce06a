package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/internal/domain"
)

func newCartCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show or change the cart",
	}

	var quantity int
	add := &cobra.Command{
		Use:   "add <product-id> <variant-id>",
		Short: "Add a variant to the cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			product := domain.Product{ID: args[0]}
			variant := domain.Variant{ID: args[1]}
			if err := e.cart.AddItem(cmd.Context(), product, variant, quantity); err != nil {
				return err
			}
			return e.print(e.cart.State())
		},
	}
	add.Flags().IntVarP(&quantity, "quantity", "q", 1, "units to add")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the locally cached cart",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return e.print(e.cart.State())
			},
		},
		&cobra.Command{
			Use:   "fetch",
			Short: "Refresh the cart from the commerce API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				e.cart.FetchCart(cmd.Context())
				return e.print(e.cart.State())
			},
		},
		add,
		&cobra.Command{
			Use:   "update <item-id> <quantity>",
			Short: "Set a line item's quantity",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				qty, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("quantity %q is not a number", args[1])
				}
				if err := e.cart.UpdateQuantity(cmd.Context(), args[0], qty); err != nil {
					return err
				}
				return e.print(e.cart.State())
			},
		},
		&cobra.Command{
			Use:   "remove <item-id>",
			Short: "Remove a line item",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := e.cart.RemoveItem(cmd.Context(), args[0]); err != nil {
					return err
				}
				return e.print(e.cart.State())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := e.cart.ClearCart(cmd.Context()); err != nil {
					return err
				}
				return e.print(e.cart.State())
			},
		},
	)
	return cmd
}
