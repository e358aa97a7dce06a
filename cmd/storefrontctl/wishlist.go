package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/slug"
)

type wishlistOutput struct {
	Items []domain.Product `json:"items"`
}

func newWishlistCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Show or change the wishlist",
	}

	show := func() error {
		return e.print(wishlistOutput{Items: e.wishlist.Items()})
	}

	var product domain.Product
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product.ID = args[0]
			if product.Slug == "" && product.Name != "" {
				product.Slug = slug.Make(product.Name)
			}
			if err := e.wishlist.AddItem(cmd.Context(), product); err != nil {
				return err
			}
			return show()
		},
	}
	add.Flags().StringVar(&product.Name, "name", "", "product name to show locally")
	add.Flags().StringVar(&product.Slug, "slug", "", "product slug (default: derived from --name)")
	add.Flags().Int64Var(&product.Price, "price", 0, "price in minor units")
	add.Flags().StringVar(&product.Currency, "currency", "", "ISO 4217 currency code")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the locally cached wishlist",
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return show() },
		},
		&cobra.Command{
			Use:   "fetch",
			Short: "Refresh the wishlist from the commerce API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				e.wishlist.FetchWishlist(cmd.Context())
				return show()
			},
		},
		add,
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from the wishlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := e.wishlist.RemoveItem(cmd.Context(), args[0]); err != nil {
					return err
				}
				return show()
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget the local wishlist without calling the API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				e.wishlist.ClearWishlist(cmd.Context())
				return show()
			},
		},
		&cobra.Command{
			Use:   "has <product-id>",
			Short: "Report whether a product is on the wishlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				_, err := fmt.Fprintln(e.out, e.wishlist.IsInWishlist(args[0]))
				return err
			},
		},
	)
	return cmd
}
