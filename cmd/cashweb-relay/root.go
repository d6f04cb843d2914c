package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suffix-labs/cashweb-relay/internal/log"
	"github.com/suffix-labs/cashweb-relay/pkg/config"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
)

const version = "v0.1.0"

// app is the state shared by every command.
type app struct {
	configPath string
	keyPath    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cashweb-relay",
		Short:         "Relay protocol message and stamp tooling",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			if a.keyPath == "" {
				a.keyPath = cfg.KeyFile
			}
			return log.Init(cfg.LogLevel, cfg.Development)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./relay.yaml)")
	root.PersistentFlags().StringVar(&a.keyPath, "key", "", "WIF private key file (overrides key_file)")

	root.AddCommand(
		a.newKeygenCmd(),
		a.newAddressCmd(),
		a.newStampKeysCmd(),
		a.newStampScriptsCmd(),
		a.newSealCmd(),
		a.newOpenCmd(),
		a.newDecodeTxCmd(),
		a.newAuthCmd(),
		a.newConfigCmd(),
	)
	return root
}

// privateKey reads the WIF key named by --key or key_file.
func (a *app) privateKey() (*crypto.PrivateKey, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("no key file: pass --key or set key_file")
	}
	raw, err := os.ReadFile(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	key, _, err := crypto.ParsePrivateKeyWIF(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", a.keyPath, err)
	}
	return key, nil
}

func parsePublicKeyHex(s string) (*crypto.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("public key hex: %w", err)
	}
	return crypto.ParsePublicKey(raw)
}

func parseDigestHex(s string) ([32]byte, error) {
	var d [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("digest hex: %w", err)
	}
	if len(raw) != len(d) {
		return d, fmt.Errorf("digest must be 32 bytes, got %d", len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// parseProfile parses "2,1" into []uint32{2, 1}.
func parseProfile(s string) ([]uint32, error) {
	var profile []uint32
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 31)
		if err != nil {
			return nil, fmt.Errorf("output profile %q: %w", s, err)
		}
		profile = append(profile, uint32(n))
	}
	return profile, nil
}
