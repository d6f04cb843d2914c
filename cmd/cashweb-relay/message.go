package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suffix-labs/cashweb-relay/internal/log"
	"github.com/suffix-labs/cashweb-relay/pkg/bitcoin"
	"github.com/suffix-labs/cashweb-relay/pkg/relay"
	"github.com/suffix-labs/cashweb-relay/pkg/stamp"
)

// errUnfunded stops Seal once the payload digest is known.
var errUnfunded = errors.New("stamp not funded")

var schemes = map[string]relay.EncryptionScheme{
	"none":         relay.SchemeNone,
	"ephemeral-dh": relay.SchemeEphemeralDH,
}

func (a *app) newSealCmd() *cobra.Command {
	var (
		toHex      string
		text       string
		kind       string
		saltHex    string
		schemeName string
		timestamp  int64
		stampTxs   []string
		profileStr string
	)

	cmd := &cobra.Command{
		Use:   "seal",
		Short: "Seal a text payload to a destination public key",
		Long: `Seal a text payload and print the message as hex.

Without --stamp-tx nothing is sealed: the salt, payload digest and the outputs
to fund are printed instead. Fund them, then run seal again with the same
--salt and --timestamp and the funding transactions as --stamp-tx.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.privateKey()
			if err != nil {
				return err
			}
			destination, err := parsePublicKeyHex(toHex)
			if err != nil {
				return err
			}
			scheme, ok := schemes[schemeName]
			if !ok {
				return fmt.Errorf("unknown scheme %q", schemeName)
			}
			profile, err := parseProfile(profileStr)
			if err != nil {
				return err
			}

			params := relay.SealParams{
				Source:      key,
				Destination: destination,
				Payload: &relay.Payload{
					Timestamp: timestamp,
					Entries:   []*relay.PayloadEntry{{Kind: kind, EntryData: []byte(text)}},
				},
				Scheme: scheme,
			}
			if saltHex == "" {
				params.Salt = make([]byte, relay.SaltSize)
				if _, err := rand.Read(params.Salt); err != nil {
					return fmt.Errorf("generating salt: %w", err)
				}
			} else if params.Salt, err = hex.DecodeString(saltHex); err != nil {
				return fmt.Errorf("salt hex: %w", err)
			}

			if len(stampTxs) == 0 {
				var payloadDigest [32]byte
				params.Stamp = func(d [32]byte) (*stamp.Stamp, error) {
					payloadDigest = d
					return nil, errUnfunded
				}
				if _, err := relay.Seal(params); !errors.Is(err, errUnfunded) {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "salt:      %s\ntimestamp: %d\ndigest:    %s\nfund:\n",
					hex.EncodeToString(params.Salt), timestamp, hex.EncodeToString(payloadDigest[:]))
				return printStampScripts(out, destination, payloadDigest, profile, a.cfg.BitcoinNetwork())
			}

			txs, err := decodeTxs(stampTxs)
			if err != nil {
				return err
			}
			params.Stamp = func([32]byte) (*stamp.Stamp, error) {
				outpoints, err := stamp.BuildOutpoints(txs, profile)
				if err != nil {
					return nil, err
				}
				return &stamp.Stamp{Type: stamp.TypeMessageCommitment, Outpoints: outpoints}, nil
			}

			msg, err := relay.Seal(params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(msg.Marshal()))
			return nil
		},
	}
	cmd.Flags().StringVar(&toHex, "to", "", "destination public key (hex)")
	cmd.Flags().StringVar(&text, "text", "", "message text")
	cmd.Flags().StringVar(&kind, "kind", "text-utf8", "payload entry kind")
	cmd.Flags().StringVar(&saltHex, "salt", "", "salt (hex, random when empty)")
	cmd.Flags().StringVar(&schemeName, "scheme", "ephemeral-dh", "encryption scheme: none or ephemeral-dh")
	cmd.Flags().Int64Var(&timestamp, "timestamp", time.Now().UnixMilli(), "payload timestamp (unix ms)")
	cmd.Flags().StringArrayVar(&stampTxs, "stamp-tx", nil, "funded stamp transaction (hex), repeatable")
	cmd.Flags().StringVar(&profileStr, "profile", "1", "outputs per stamp transaction, comma separated")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <message hex>...",
		Short: "Verify, authenticate and decrypt messages addressed to --key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.privateKey()
			if err != nil {
				return err
			}

			msgs := make([]*relay.Message, len(args))
			for i, arg := range args {
				raw, err := hex.DecodeString(arg)
				if err != nil {
					return fmt.Errorf("message %d hex: %w", i, err)
				}
				msgs[i] = &relay.Message{}
				if err := msgs[i].Unmarshal(raw); err != nil {
					return fmt.Errorf("message %d: %w", i, err)
				}
			}

			results, err := relay.OpenBatch(context.Background(), msgs, key, a.cfg.Workers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for i, r := range results {
				if r.Err != nil {
					failed++
					log.Warn("message failed to open", zap.Int("index", i), zap.Error(r.Err))
					fmt.Fprintf(out, "Message %d: %v\n", i, r.Err)
					continue
				}
				fmt.Fprintf(out, "Message %d:\n", i)
				fmt.Fprintf(out, "  Timestamp: %s\n", time.UnixMilli(r.Opened.Payload.Timestamp).UTC().Format(time.RFC3339))
				for _, tx := range r.Opened.Txs {
					fmt.Fprintf(out, "  Stamp tx:  %s (%d sat)\n", tx.TxIDString(), tx.TotalOutput())
				}
				for _, e := range r.Opened.Payload.Entries {
					fmt.Fprintf(out, "  Entry %s: %q\n", e.Kind, e.EntryData)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d messages failed to open", failed, len(results))
			}
			return nil
		},
	}
}

func (a *app) newDecodeTxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode-tx <tx hex>",
		Short: "Decode a transaction and dump its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txs, err := decodeTxs(args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "txid: %s\n", txs[0].TxIDString())
			spew.Fdump(cmd.OutOrStdout(), txs[0])
			return nil
		},
	}
}

func decodeTxs(hexTxs []string) ([]*bitcoin.Transaction, error) {
	txs := make([]*bitcoin.Transaction, len(hexTxs))
	for i, h := range hexTxs {
		raw, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("tx %d hex: %w", i, err)
		}
		if txs[i], err = bitcoin.DecodeTransaction(raw); err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
	}
	return txs, nil
}
