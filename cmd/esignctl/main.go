package main

import (
	"fmt"
	"os"
	"time"

	"esign/internal/auth"
	"esign/internal/blob"
	"esign/internal/config"
	"esign/internal/integrity"
	"esign/internal/notify"
	"esign/internal/observability/logging"
	"esign/internal/pdf"
	impl "esign/internal/service/impl"
	"esign/internal/store"
	"esign/pkg/db"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "esignctl",
		Short:         "Operational tooling for the e-signature service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), composeCmd(), tokenCmd(), hashCmd(), verifyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
			if err != nil {
				return err
			}
			if err := store.New(gdb).AutoMigrate(); err != nil {
				return err
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func composeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compose <document-id>",
		Short: "Rebuild the final artifact for a completed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id: %w", err)
			}
			cfg := config.Load()
			logger := logging.NewLogger(logging.Config{
				ServiceName: "esignctl",
				Environment: cfg.Environment,
				Level:       cfg.LogLevel,
			})
			gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
			if err != nil {
				return err
			}
			blobs, err := blob.NewFSStore(cfg.BlobDir)
			if err != nil {
				return err
			}
			docs := impl.NewDocumentService(store.New(gdb), notify.NewLog(logger), pdf.NewEngine(logger), blobs,
				impl.DocumentConfig{
					TokenTTL:       cfg.TokenTTL,
					SigningBaseURL: cfg.SigningBaseURL,
				}, logger)
			hash, err := docs.Compose(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var owner string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an owner bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid owner id: %w", err)
			}
			cfg := config.Load()
			raw, err := auth.NewIssuer(cfg.SigningKey, cfg.Issuer).Sign(ownerID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner UUID (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the integrity hash of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Println(integrity.Sum(data))
			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	var expected string

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a file against a recorded integrity hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if !integrity.Verify(data, expected) {
				return fmt.Errorf("hash mismatch: file is %s", integrity.Sum(data))
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&expected, "hash", "", "expected hash, sha256:<hex> (required)")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}
