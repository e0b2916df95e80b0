package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upkeephq/predict-cli/internal/model"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load properties and evidence snapshots into the store",
}

// -- ingest property --

var ingestPropertyFile string

var ingestPropertyCmd = &cobra.Command{
	Use:   "property",
	Short: "Create a property from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		data, err := os.ReadFile(ingestPropertyFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", ingestPropertyFile)
		}

		var p model.Property
		if err := json.Unmarshal(data, &p); err != nil {
			return eris.Wrap(err, "decode property")
		}
		if p.AddressID == "" {
			return eris.New("property file missing address_id")
		}

		created, err := st.CreateProperty(ctx, p)
		if err != nil {
			return eris.Wrap(err, "create property")
		}

		zap.L().Info("property created", zap.String("address_id", created.AddressID))
		return nil
	},
}

// -- ingest snapshot --

var (
	ingestSnapshotProvider string
	ingestSnapshotFile     string
)

var ingestSnapshotCmd = &cobra.Command{
	Use:   "snapshot <address-id>",
	Short: "Append an evidence snapshot for a property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch ingestSnapshotProvider {
		case model.ProviderPermitRegistry, model.ProviderAssessor, model.ProviderAddressStandardizer:
		default:
			return eris.Errorf("unknown provider: %s", ingestSnapshotProvider)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		payload, err := os.ReadFile(ingestSnapshotFile)
		if err != nil {
			return eris.Wrapf(err, "read %s", ingestSnapshotFile)
		}
		if !json.Valid(payload) {
			return eris.Errorf("payload in %s is not valid JSON", ingestSnapshotFile)
		}

		snap, err := st.AppendSnapshot(ctx, model.Snapshot{
			AddressID: args[0],
			Provider:  ingestSnapshotProvider,
			Payload:   payload,
		})
		if err != nil {
			return eris.Wrap(err, "append snapshot")
		}

		zap.L().Info("snapshot appended",
			zap.String("address_id", snap.AddressID),
			zap.String("provider", snap.Provider),
			zap.String("snapshot_id", snap.ID),
		)
		return nil
	},
}

func init() {
	ingestPropertyCmd.Flags().StringVar(&ingestPropertyFile, "file", "", "JSON file describing the property (required)")
	_ = ingestPropertyCmd.MarkFlagRequired("file")

	ingestSnapshotCmd.Flags().StringVar(&ingestSnapshotProvider, "provider", "", "snapshot provider (permit_registry, assessor, address_standardizer)")
	ingestSnapshotCmd.Flags().StringVar(&ingestSnapshotFile, "file", "", "JSON payload file (required)")
	_ = ingestSnapshotCmd.MarkFlagRequired("provider")
	_ = ingestSnapshotCmd.MarkFlagRequired("file")

	ingestCmd.AddCommand(ingestPropertyCmd)
	ingestCmd.AddCommand(ingestSnapshotCmd)
	rootCmd.AddCommand(ingestCmd)
}
