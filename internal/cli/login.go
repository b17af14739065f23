package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// newLoginCmd drives the interactive Kite Connect login flow.
func newLoginCmd(app *App) *cobra.Command {
	var logout bool

	cmd := &cobra.Command{
		Use:   "login [request-token]",
		Short: "Authenticate with Kite Connect",
		Args:  cobra.MaximumNArgs(1),
		Long: `Prints the Kite login URL. Open it in a browser, complete the login,
and paste the request_token from the redirect URL back here (or pass it
as an argument). Running 'screener serve' instead handles the redirect
automatically via the /callback route.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logout {
				if err := app.Provider.Logout(context.Background()); err != nil {
					return fmt.Errorf("logout failed: %w", err)
				}
				fmt.Println("Session cleared")
				return nil
			}

			if app.Provider.IsAuthenticated() {
				fmt.Println("Already authenticated")
				return nil
			}

			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				fmt.Println("Open this URL in a browser and complete the login:")
				fmt.Println()
				fmt.Printf("  %s\n", app.Provider.LoginURL())
				fmt.Println()
				fmt.Print("Paste the request_token from the redirect URL: ")

				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading request token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if token == "" {
				return fmt.Errorf("empty request token")
			}

			if err := app.Provider.CompleteLogin(context.Background(), token); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Println("Login successful, session saved")
			return nil
		},
	}

	cmd.Flags().BoolVar(&logout, "logout", false, "clear the saved session")
	return cmd
}
