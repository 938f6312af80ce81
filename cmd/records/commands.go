package records

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/crmvault/crmvault/lib/records"
	"github.com/spf13/cobra"
)

var (
	insertCmd = &cobra.Command{
		Use:   "insert [entity] [file]",
		Short: "Inserts a batch of records with deduplication",
		Long:  "Insert a JSON array of records into the given collection (contacts, deals, tasks). Pass '-' as the file to read the batch from stdin. Records whose id already exists replace the stored version only when their extraction timestamp is newer.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := records.ParseEntityType(args[0])
			if err != nil {
				return err
			}

			data, err := readBatchFile(args[1])
			if err != nil {
				return err
			}

			var batch []records.Record
			if err := json.Unmarshal(data, &batch); err != nil {
				return fmt.Errorf("invalid batch file: %w", err)
			}

			inserted, err := rpcVault.InsertWithDedup(entity, batch)
			if err != nil {
				return err
			}
			fmt.Printf("entity=%s, batch=%d, inserted=%d\n", entity, len(batch), inserted)
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [entity] [id]",
		Short: "Removes a single record by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := records.ParseEntityType(args[0])
			if err != nil {
				return err
			}
			if err := rpcVault.RemoveRecord(entity, args[1]); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Resets the vault to an empty document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcVault.ClearAll(); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	documentCmd = &cobra.Command{
		Use:     "document [entity]",
		Aliases: []string{"list"},
		Short:   "Prints the stored document (or one collection) as JSON",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rpcVault.Document()
			if err != nil {
				return err
			}

			var out any = doc
			if len(args) == 1 {
				entity, err := records.ParseEntityType(args[0])
				if err != nil {
					return err
				}
				out = doc.Collection(entity)
			}

			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		},
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Prints the last sync time and the sync-in-progress flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lastSync, inProgress, err := rpcVault.Status()
			if err != nil {
				return err
			}
			if lastSync == 0 {
				fmt.Printf("lastSync=never, syncInProgress=%t\n", inProgress)
				return nil
			}
			fmt.Printf("lastSync=%s, syncInProgress=%t\n",
				time.UnixMilli(lastSync).UTC().Format(time.RFC3339), inProgress)
			return nil
		},
	}
)

// readBatchFile reads the batch from the given path, "-" means stdin
func readBatchFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
