package main

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io/ioutil"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/pardot/oidcverify/signer"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var signCmd = &cobra.Command{
	Use:   "sign [CLAIMS]",
	Short: "Sign a JSON claims object, read from the argument or stdin, and print the token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSign,
}

var jwksCmd = &cobra.Command{
	Use:   "jwks",
	Short: "Print the public JSON Web Key Set for a signing key",
	Args:  cobra.NoArgs,
	RunE:  runJWKS,
}

var signFlags struct {
	keyFile  string
	secret   string
	keyID    string
	alg      string
	typ      string
	lifetime time.Duration
}

// tokenSigner is implemented by the signer package's signers.
type tokenSigner interface {
	PublicKeys(ctx context.Context) (*jose.JSONWebKeySet, error)
	SignClaims(ctx context.Context, claims interface{}, opts ...signer.SignOpt) (string, error)
}

func init() {
	for _, c := range []*cobra.Command{signCmd, jwksCmd} {
		c.Flags().StringVar(&signFlags.keyFile, "key", "", "PEM encoded RSA, EC or Ed25519 private key")
		c.Flags().StringVar(&signFlags.keyID, "kid", "", "Key ID to set in the header and JWKS")
		rootCmd.AddCommand(c)
	}

	signCmd.Flags().StringVar(&signFlags.secret, "secret", "", "Shared secret to MAC the token with, instead of a key")
	signCmd.Flags().StringVar(&signFlags.alg, "mac-alg", string(jose.HS256), "MAC algorithm to use with --secret")
	signCmd.Flags().StringVar(&signFlags.typ, "typ", "JWT", "typ header value, empty to omit")
	signCmd.Flags().DurationVar(&signFlags.lifetime, "lifetime", 0, "If set, fill in iat and exp for a token valid this long, unless the claims set them")
}

func runSign(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	in, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	claims := map[string]interface{}{}
	if err := json.Unmarshal([]byte(in), &claims); err != nil {
		return errors.Wrap(err, "claims must be a JSON object")
	}
	fillTimes(claims, time.Now(), signFlags.lifetime)

	s, err := loadSigner()
	if err != nil {
		return err
	}

	var opts []signer.SignOpt
	if signFlags.typ != "" {
		opts = append(opts, signer.WithType(signFlags.typ))
	}

	raw, err := s.SignClaims(ctx, claims, opts...)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write([]byte(raw + "\n"))
	return err
}

func runJWKS(cmd *cobra.Command, args []string) error {
	if signFlags.keyFile == "" {
		return errors.New("--key is required")
	}

	s, err := loadSigner()
	if err != nil {
		return err
	}

	ks, err := s.PublicKeys(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd, ks)
}

// fillTimes sets iat and exp from now and lifetime, where they're not
// already present.
func fillTimes(claims map[string]interface{}, now time.Time, lifetime time.Duration) {
	if lifetime == 0 {
		return
	}
	if _, ok := claims["iat"]; !ok {
		claims["iat"] = now.Unix()
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = now.Add(lifetime).Unix()
	}
}

func loadSigner() (tokenSigner, error) {
	switch {
	case signFlags.keyFile != "" && signFlags.secret != "":
		return nil, errors.New("only one of --key and --secret may be set")
	case signFlags.secret != "":
		alg := jose.SignatureAlgorithm(signFlags.alg)
		secret := []byte(signFlags.secret)
		return signer.NewStatic(
			jose.SigningKey{Algorithm: alg, Key: &jose.JSONWebKey{Key: secret, KeyID: signFlags.keyID}},
			[]jose.JSONWebKey{{Key: secret, KeyID: signFlags.keyID, Algorithm: string(alg)}},
		), nil
	case signFlags.keyFile != "":
		b, err := ioutil.ReadFile(signFlags.keyFile)
		if err != nil {
			return nil, errors.Wrapf(err, "Error reading %s", signFlags.keyFile)
		}
		key, err := parsePrivateKey(b)
		if err != nil {
			return nil, errors.Wrapf(err, "Error parsing %s", signFlags.keyFile)
		}
		return signer.NewFromCrypto(key, signFlags.keyID)
	default:
		return nil, errors.New("one of --key or --secret is required")
	}
}

func parsePrivateKey(b []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("no PEM data found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		s, ok := k.(crypto.Signer)
		if !ok {
			return nil, errors.Errorf("unsupported key type %T", k)
		}
		return s, nil
	default:
		return nil, errors.Errorf("unsupported PEM block %s", block.Type)
	}
}
