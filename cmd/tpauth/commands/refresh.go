package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ensure the stored token is valid, refreshing it if needed",
	RunE:  runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	authenticator, log, err := newAuthenticator(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	defer authenticator.Close()

	token, err := authenticator.EnsureValidToken(cmd.Context())
	if err != nil {
		return err
	}
	if token == nil {
		return errors.New("no usable token: log in again with 'tpauth login'")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Token %s valid until %s\n",
		logging.RedactToken(token.AccessToken),
		token.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}
