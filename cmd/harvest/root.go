package harvest

import (
	"fmt"

	"github.com/crmvault/crmvault/cmd/util"
	"github.com/crmvault/crmvault/lib/harvest"
	"github.com/crmvault/crmvault/lib/records"
	"github.com/crmvault/crmvault/rpc/client"
	"github.com/spf13/cobra"
)

var (
	// HarvestCmd ingests harvested record exports into the vault
	HarvestCmd = &cobra.Command{
		Use:   "harvest [entity] [file...]",
		Short: "Ingest harvested record exports into the vault",
		Long:  "Walk one or more JSON export files (each holding an array of records) and insert them into the given collection with deduplication. Files are read in lexicographic order, records without an id or extraction timestamp get both derived at walk time, so re-running the same export is a no-op.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runHarvest,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags
	util.SetupRPCClientFlags(HarvestCmd)

	// Harvest talks to a vault shard
	HarvestCmd.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))
}

func runHarvest(cmd *cobra.Command, args []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	entity, err := records.ParseEntityType(args[0])
	if err != nil {
		return err
	}

	src, err := harvest.NewFileSource(entity, args[1:])
	if err != nil {
		return err
	}

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the vault client
	v, err := client.NewRPCVault(
		util.GetShardID(),
		*util.GetClientConfig(),
		t,
		s,
	)
	if err != nil {
		return err
	}

	walker := harvest.NewWalker(nil)
	batch, inserted, err := walker.Ingest(cmd.Context(), v, src)
	if err != nil {
		return err
	}

	fmt.Printf("batch=%s, entity=%s, harvested=%d, inserted=%d\n",
		batch.ID, batch.Entity, len(batch.Records), inserted)
	return nil
}
