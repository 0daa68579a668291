package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xenn00/ruready-server/internal/utils"
	"github.com/xenn00/ruready-server/state"
)

var devtoken struct {
	uid, email, name      string
	privateKey, publicKey string
	ttl                   time.Duration
}

// devtokenCmd prints a bearer token for servers running with auth.mode=jwt.
var devtokenCmd = &cobra.Command{
	Use:   "devtoken",
	Short: "Mint an RS256 bearer token for local testing.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if devtoken.uid == "" {
			return errors.New("--uid is required")
		}

		secret, err := state.InitSecret(devtoken.privateKey, devtoken.publicKey)
		if err != nil {
			return err
		}
		if secret.Private == nil {
			return fmt.Errorf("private key %s not found", devtoken.privateKey)
		}

		token, err := utils.IssueToken(devtoken.uid, devtoken.email, devtoken.name, devtoken.ttl, secret.Private)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	devtokenCmd.Flags().StringVar(&devtoken.uid, "uid", "", "subject uid")
	devtokenCmd.Flags().StringVar(&devtoken.email, "email", "", "email claim")
	devtokenCmd.Flags().StringVar(&devtoken.name, "name", "", "display name claim")
	devtokenCmd.Flags().StringVar(&devtoken.privateKey, "private-key", "private.pem", "RSA private key path")
	devtokenCmd.Flags().StringVar(&devtoken.publicKey, "public-key", "public.pem", "RSA public key path")
	devtokenCmd.Flags().DurationVar(&devtoken.ttl, "ttl", 24*time.Hour, "token lifetime")
}
