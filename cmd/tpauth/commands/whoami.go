package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
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

	session, err := authenticator.CurrentSession(cmd.Context())
	if err != nil {
		return err
	}
	if session == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:    %s (id %s)\n", displayName(session.User), session.User.ID)
	fmt.Fprintf(out, "Token:   %s\n", logging.RedactToken(session.Token.AccessToken))
	switch {
	case session.Token.ExpiredAt(time.Now()):
		fmt.Fprintf(out, "Expired: %s\n", session.Token.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	default:
		fmt.Fprintf(out, "Expires: %s (in %s)\n",
			session.Token.ExpiresAt.Format("2006-01-02 15:04:05 MST"),
			time.Until(session.Token.ExpiresAt).Round(time.Second))
	}
	return nil
}
