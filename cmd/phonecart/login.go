package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/huyndq/phonecart/internal/reconcile"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	var (
		token     string
		tokenFile string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the bearer token issued by the storefront and merge the guest cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if token == "" && tokenFile != "" {
				data, err := os.ReadFile(tokenFile)
				if err != nil {
					return fmt.Errorf("reading token file: %w", err)
				}

				token = strings.TrimSpace(string(data))
			}

			if token == "" {
				return fmt.Errorf("either --token or --token-file is required")
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.creds.SetToken(ctx, token); err != nil {
				return fmt.Errorf("persisting credential: %w", err)
			}

			// Best-effort: login completes no matter how the merge went.
			result := a.reconciler.Run(ctx)

			switch result.Outcome {
			case reconcile.OutcomeMerged:
				fmt.Printf("Logged in. Merged %d guest cart item(s) into your cart.\n", result.Submitted)
			case reconcile.OutcomeFailed:
				fmt.Println("Logged in. Your guest cart will be merged on a later login.")
			default:
				fmt.Println("Logged in.")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token issued at sign-in")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "File containing the bearer token")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.creds.ClearToken(ctx); err != nil {
				return fmt.Errorf("clearing credential: %w", err)
			}

			fmt.Println("Logged out.")

			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Retry merging the guest cart into the server cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			result := a.reconciler.Run(ctx)

			switch result.Outcome {
			case reconcile.OutcomeSkipped:
				fmt.Println("Guest cart is empty, nothing to merge.")
			case reconcile.OutcomeMerged:
				fmt.Printf("Merged %d item(s).\n", result.Submitted)
			case reconcile.OutcomeFailed:
				fmt.Printf("Merge failed, guest cart kept: %v\n", result.Err)
			}

			return nil
		},
	}
}
