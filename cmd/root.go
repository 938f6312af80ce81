package cmd

import (
	"fmt"
	"os"

	"github.com/crmvault/crmvault/cmd/harvest"
	"github.com/crmvault/crmvault/cmd/kv"
	"github.com/crmvault/crmvault/cmd/records"
	"github.com/crmvault/crmvault/cmd/serve"
	"github.com/crmvault/crmvault/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.2"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "crmvault",
		Short: "deduplicating storage engine for harvested CRM records",
		Long: fmt.Sprintf(`crmvault (v%s)

A storage orchestration engine for harvested CRM records. All records
live in a single versioned document guarded by a cooperative lock, and
inserts deduplicate by record id with newest-extraction-wins semantics.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of crmvault",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crmvault v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(records.RecordCommands)
	RootCmd.AddCommand(harvest.HarvestCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix, ws)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
