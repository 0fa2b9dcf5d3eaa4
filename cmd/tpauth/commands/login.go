package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/auth"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

var (
	usernameFlag string
	passwordFlag string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through the browser and store the session",
	Long: `Drives a real browser through the platform's login page, intercepts the
issued token, and stores the session for later commands.

Credentials come from --username/--password or the TP_USERNAME and
TP_PASSWORD environment variables (a .env file is honored).`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "account username (or TP_USERNAME)")
	loginCmd.Flags().StringVarP(&passwordFlag, "password", "p", "", "account password (or TP_PASSWORD)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	creds := auth.Credentials{
		Username: usernameFlag,
		Password: passwordFlag,
	}
	if creds.Username == "" {
		creds.Username = os.Getenv("TP_USERNAME")
	}
	if creds.Password == "" {
		creds.Password = os.Getenv("TP_PASSWORD")
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	authenticator, log, err := newAuthenticator(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	defer authenticator.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Logging in as %s...\n", creds.Username)

	session, err := authenticator.Login(cmd.Context(), creds)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return errors.New("login rejected: check username and password")
		case errors.Is(err, auth.ErrTimeout):
			return errors.New("login timed out: the platform did not answer in time")
		default:
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logged in as %s (id %s)\n", displayName(session.User), session.User.ID)
	fmt.Fprintf(out, "Token %s expires %s\n",
		logging.RedactToken(session.Token.AccessToken),
		session.Token.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func displayName(user auth.User) string {
	if user.Name != "" {
		return user.Name
	}
	return "(profile unavailable)"
}
