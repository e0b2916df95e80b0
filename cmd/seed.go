package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/upkeephq/predict-cli/internal/model"
	"github.com/upkeephq/predict-cli/internal/refdata"
	"github.com/upkeephq/predict-cli/internal/store"
)

var (
	seedLifespansPath string
	seedFactorsPath   string
	seedDemo          bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate the store and load reference data",
	Long:  "Creates the schema, loads the built-in lifespan and climate factor tables, and optionally imports spreadsheet overrides.",
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

		if err := refdata.SeedDefaults(ctx, st); err != nil {
			return eris.Wrap(err, "seed defaults")
		}
		zap.L().Info("built-in reference data loaded")

		lifespansPath := seedLifespansPath
		if lifespansPath == "" {
			lifespansPath = cfg.Refdata.LifespansPath
		}
		if lifespansPath != "" {
			n, err := refdata.ImportLifespans(ctx, st, lifespansPath)
			if err != nil {
				return eris.Wrap(err, "import lifespans")
			}
			zap.L().Info("lifespan overrides imported",
				zap.String("path", lifespansPath),
				zap.Int("rows", n),
			)
		}

		factorsPath := seedFactorsPath
		if factorsPath == "" {
			factorsPath = cfg.Refdata.FactorsPath
		}
		if factorsPath != "" {
			n, err := refdata.ImportClimateFactors(ctx, st, factorsPath)
			if err != nil {
				return eris.Wrap(err, "import climate factors")
			}
			zap.L().Info("climate factor overrides imported",
				zap.String("path", factorsPath),
				zap.Int("rows", n),
			)
		}

		if seedDemo {
			if err := seedDemoProperty(ctx, st); err != nil {
				return eris.Wrap(err, "seed demo property")
			}
			zap.L().Info("demo property created", zap.String("address_id", demoAddressID))
		}

		return nil
	},
}

const demoAddressID = "demo-tampa-fl"

// seedDemoProperty creates a sample property with permit and assessor
// snapshots so a fresh install has something to predict against.
func seedDemoProperty(ctx context.Context, st store.Store) error {
	yearBuilt := 1998
	if _, err := st.CreateProperty(ctx, model.Property{
		AddressID:  demoAddressID,
		Line1:      "412 W Azeele St",
		City:       "Tampa",
		State:      "FL",
		Zip:        "33606",
		RegionCode: "FL",
		YearBuilt:  &yearBuilt,
	}); err != nil {
		return err
	}

	permits := `{"permits":[{"permit_id":"demo-1","description":"A/C change out 3.5 ton split system","status":"final","issued_date":"2023-04-12"}]}`
	if _, err := st.AppendSnapshot(ctx, model.Snapshot{
		AddressID: demoAddressID,
		Provider:  model.ProviderPermitRegistry,
		Payload:   []byte(permits),
	}); err != nil {
		return err
	}

	assessor := `{"year_built":1998,"roof_cover":"shingle","cooling_type":"central"}`
	_, err := st.AppendSnapshot(ctx, model.Snapshot{
		AddressID: demoAddressID,
		Provider:  model.ProviderAssessor,
		Payload:   []byte(assessor),
	})
	return err
}

func init() {
	seedCmd.Flags().StringVar(&seedLifespansPath, "lifespans", "", "xlsx file of lifespan overrides (default from config)")
	seedCmd.Flags().StringVar(&seedFactorsPath, "factors", "", "xlsx file of climate factor overrides (default from config)")
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create a demo property with sample snapshots")
	rootCmd.AddCommand(seedCmd)
}
