package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var predictCmd = &cobra.Command{
	Use:   "predict <address-id>",
	Short: "Run the prediction engine for a single property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		eng, err := initEngine(st)
		if err != nil {
			return err
		}

		result, err := eng.Predict(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "predict")
		}

		zap.L().Info("prediction run complete",
			zap.String("address_id", args[0]),
			zap.String("run_id", result.Run.ID),
			zap.Int("fields_predicted", result.Run.FieldsPredicted),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var predictionsCmd = &cobra.Command{
	Use:   "predictions <address-id>",
	Short: "Show the latest prediction per field for a property",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		preds, err := st.LatestPredictions(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "latest predictions")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(preds)
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(predictionsCmd)
}
