package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/crypto"
	"github.com/suffix-labs/cashweb-relay/pkg/stamp"
)

func (a *app) newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a private key and print it as WIF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			network := a.cfg.BitcoinNetwork()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, crypto.EncodeWIF(key, true, network.IsTest()))
			fmt.Fprintf(cmd.ErrOrStderr(), "public key: %s\naddress:    %s\n",
				hex.EncodeToString(key.PublicKey().Bytes()),
				bitcoin.P2PKHAddress(key.PublicKey().Hash160(), network))
			return nil
		},
	}
}

func (a *app) newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address [pubkey hex]",
		Short: "Print the public key and P2PKH address of --key or a public key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pub *crypto.PublicKey
			if len(args) == 1 {
				var err error
				if pub, err = parsePublicKeyHex(args[0]); err != nil {
					return err
				}
			} else {
				key, err := a.privateKey()
				if err != nil {
					return err
				}
				pub = key.PublicKey()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Public key: %s\nAddress:    %s\n",
				hex.EncodeToString(pub.Bytes()),
				bitcoin.P2PKHAddress(pub.Hash160(), a.cfg.BitcoinNetwork()))
			return nil
		},
	}
}

func (a *app) newStampKeysCmd() *cobra.Command {
	var digestHex, profileStr string

	cmd := &cobra.Command{
		Use:   "stamp-keys",
		Short: "Derive the private keys controlling stamp outputs sent to --key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.privateKey()
			if err != nil {
				return err
			}
			payloadDigest, err := parseDigestHex(digestHex)
			if err != nil {
				return err
			}
			profile, err := parseProfile(profileStr)
			if err != nil {
				return err
			}

			keys, err := stamp.CreatePrivateKeys(key, payloadDigest, profile)
			if err != nil {
				return err
			}

			network := a.cfg.BitcoinNetwork()
			for txNum, txKeys := range keys {
				for vout, k := range txKeys {
					fmt.Fprintf(cmd.OutOrStdout(), "%d:%d %s %s\n", txNum, vout,
						crypto.EncodeWIF(k, true, network.IsTest()),
						bitcoin.P2PKHAddress(k.PublicKey().Hash160(), network))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&digestHex, "digest", "", "payload digest (hex)")
	cmd.Flags().StringVar(&profileStr, "profile", "1", "outputs per stamp transaction, comma separated")
	_ = cmd.MarkFlagRequired("digest")
	return cmd
}

func (a *app) newStampScriptsCmd() *cobra.Command {
	var toHex, digestHex, profileStr string

	cmd := &cobra.Command{
		Use:   "stamp-scripts",
		Short: "Print the P2PKH outputs a sender must fund for a payload digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			destination, err := parsePublicKeyHex(toHex)
			if err != nil {
				return err
			}
			payloadDigest, err := parseDigestHex(digestHex)
			if err != nil {
				return err
			}
			profile, err := parseProfile(profileStr)
			if err != nil {
				return err
			}
			return printStampScripts(cmd.OutOrStdout(), destination, payloadDigest, profile, a.cfg.BitcoinNetwork())
		},
	}
	cmd.Flags().StringVar(&toHex, "to", "", "destination public key (hex)")
	cmd.Flags().StringVar(&digestHex, "digest", "", "payload digest (hex)")
	cmd.Flags().StringVar(&profileStr, "profile", "1", "outputs per stamp transaction, comma separated")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("digest")
	return cmd
}

func printStampScripts(w io.Writer, destination *crypto.PublicKey, payloadDigest [32]byte, profile []uint32, network bitcoin.Network) error {
	scripts, err := stamp.OutputScripts(destination, payloadDigest, profile)
	if err != nil {
		return err
	}
	for txNum, txScripts := range scripts {
		for vout, script := range txScripts {
			hash, _ := script.PubKeyHash()
			fmt.Fprintf(w, "%d:%d %s %s\n", txNum, vout,
				hex.EncodeToString(script.Bytes()), bitcoin.P2PKHAddress(hash, network))
		}
	}
	return nil
}
