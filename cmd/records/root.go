package records

import (
	"github.com/crmvault/crmvault/cmd/util"
	"github.com/crmvault/crmvault/lib/vault"
	"github.com/crmvault/crmvault/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcVault vault.IVault

	// RecordCommands represents the records command group
	RecordCommands = &cobra.Command{
		Use:               "records",
		Short:             "Perform vault operations on harvested CRM records",
		PersistentPreRunE: setupVaultClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the records command
	util.SetupRPCClientFlags(RecordCommands)

	// Set default shard ID for vault operations (different from KV default)
	RecordCommands.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))

	// Add subcommands
	RecordCommands.AddCommand(insertCmd)
	RecordCommands.AddCommand(removeCmd)
	RecordCommands.AddCommand(clearCmd)
	RecordCommands.AddCommand(documentCmd)
	RecordCommands.AddCommand(statusCmd)
	RecordCommands.AddCommand(perfTestCmd)
}

// setupVaultClient initializes the RPC vault client
func setupVaultClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

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
	rpcVault, err = client.NewRPCVault(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
