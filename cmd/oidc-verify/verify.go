package main

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var idTokenCmd = &cobra.Command{
	Use:   "idtoken [TOKEN]",
	Short: "Verify an ID token, read from the argument or stdin, and print its claims",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIDToken,
}

var userInfoCmd = &cobra.Command{
	Use:   "userinfo [TOKEN]",
	Short: "Verify a signed user info response, read from the argument or stdin, and print its claims",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUserInfo,
}

func init() {
	idTokenCmd.Flags().StringVar(&flagCfg.Nonce, "nonce", "", "Nonce sent in the authentication request")
	idTokenCmd.Flags().BoolVar(&flagCfg.SkipNonceCheck, "skip-nonce-check", false, "Accept any nonce, for tokens not requested by this client")
	rootCmd.AddCommand(idTokenCmd)

	userInfoCmd.Flags().StringVar(&flagCfg.ExpectedSubject, "expected-subject", "", "Subject of the ID token the user info was requested with")
	rootCmd.AddCommand(userInfoCmd)
}

func runIDToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	raw, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	nv, err := cfg.nonceVerifier()
	if err != nil {
		return err
	}

	v, err := cfg.idTokenVerifier(ctx)
	if err != nil {
		return err
	}

	cl, err := v.Verify(raw, nv)
	if err != nil {
		return errors.Wrap(err, "ID token rejected")
	}

	return printJSON(cmd, cl)
}

func runUserInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	raw, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	v, err := cfg.userInfoVerifier(ctx)
	if err != nil {
		return err
	}

	cl, err := v.Verify(raw)
	if err != nil {
		return errors.Wrap(err, "user info rejected")
	}

	return printJSON(cmd, cl)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
