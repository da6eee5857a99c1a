// Command oidc-verify checks OIDC ID tokens and signed user info responses,
// and can mint tokens for testing.
package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", os.Args[0], err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "oidc-verify",
	Short:             "Verify OIDC ID tokens and signed user info",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var ( // flags
	configFile string
	verbose    bool
	flagCfg    Config
)

var (
	cfg    Config
	logger = logrus.New()
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML config file, flags override its values")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	pf.StringVar(&flagCfg.Issuer, "issuer", "", "Expected token issuer")
	pf.StringVar(&flagCfg.ClientID, "client-id", "", "Client ID tokens must be issued to")
	pf.StringVar(&flagCfg.ClientSecret, "client-secret", "", "Client secret, enables HS256/384/512 verification")
	pf.StringVar(&flagCfg.JWKSFile, "jwks-file", "", "JSON Web Key Set file to verify signatures with")
	pf.BoolVar(&flagCfg.Discover, "discover", false, "Fetch metadata and keys from the issuer's discovery endpoint")
	pf.StringSliceVar(&flagCfg.AllowedAlgs, "alg", nil, "Allowed signing algorithm, may be repeated")
	pf.BoolVar(&flagCfg.AnyAlg, "any-alg", false, "Allow any signing algorithm")
	pf.StringSliceVar(&flagCfg.TrustedAudiences, "trusted-audience", nil, "Additional audience to accept, may be repeated")
	pf.BoolVar(&flagCfg.InsecureSkipSignatureCheck, "insecure-skip-signature-check", false, "Do not verify token signatures")
}

func setup(cmd *cobra.Command, args []string) error {
	if verbose {
		logger.Level = logrus.DebugLevel
	}
	logger.Out = cmd.ErrOrStderr()

	fileCfg := Config{}
	if configFile != "" {
		c, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		fileCfg = *c
	}

	cfg = mergeConfig(fileCfg, flagCfg, cmd.Flags().Changed)
	return nil
}

// readInput returns the single argument, or stdin if there is none or it is
// "-".
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}

	b, err := ioutil.ReadAll(stdin)
	if err != nil {
		return "", errors.Wrap(err, "reading stdin")
	}
	in := strings.TrimSpace(string(b))
	if in == "" {
		return "", errors.New("no input provided")
	}
	return in, nil
}
