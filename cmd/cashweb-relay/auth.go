package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suffix-labs/cashweb-relay/pkg/authwrapper"
	"github.com/suffix-labs/cashweb-relay/pkg/config"
)

func (a *app) newAuthCmd() *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Sign and verify auth wrappers",
	}

	var payloadText string
	sign := &cobra.Command{
		Use:   "sign",
		Short: "Wrap a payload in an ECDSA auth wrapper signed by --key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.privateKey()
			if err != nil {
				return err
			}
			w, err := authwrapper.Sign(key, []byte(payloadText))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(w.Marshal()))
			return nil
		},
	}
	sign.Flags().StringVar(&payloadText, "payload", "", "payload text")
	_ = sign.MarkFlagRequired("payload")

	verify := &cobra.Command{
		Use:   "verify <wrapper hex>",
		Short: "Parse and verify an auth wrapper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("wrapper hex: %w", err)
			}
			w := &authwrapper.AuthWrapper{}
			if err := w.Unmarshal(raw); err != nil {
				return err
			}
			parsed, err := w.Parse()
			if err != nil {
				return err
			}
			if err := parsed.Verify(); err != nil {
				return err
			}

			sig := parsed.Signature.Compact()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Valid %s signature\n", parsed.Scheme)
			fmt.Fprintf(out, "  Signature: %s\n", hex.EncodeToString(sig[:]))
			fmt.Fprintf(out, "  Signer: %s\n", hex.EncodeToString(parsed.PublicKey.Bytes()))
			fmt.Fprintf(out, "  Digest: %s\n", hex.EncodeToString(parsed.PayloadDigest[:]))
			return nil
		},
	}

	auth.AddCommand(sign, verify)
	return auth
}

func (a *app) newConfigCmd() *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective settings to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFileName
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force)", path)
			}
			if err := a.cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cfgCmd.AddCommand(initCmd)
	return cfgCmd
}
