package records

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crmvault/crmvault/cmd/util"
	"github.com/crmvault/crmvault/lib/records"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for crmvault servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfOps       = 100
	perfBatchSize = 50
	perfEntity    = records.EntityContacts
	perfSkip      = make([]string, 0)
)

func init() {
	// add flags
	key := "ops"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("Number of operations per benchmark"))
	key = "batch-size"
	perfTestCmd.Flags().Int(key, 50, util.WrapString("Number of records per insert batch"))
	key = "entity"
	perfTestCmd.Flags().String(key, "contacts", util.WrapString("Collection to benchmark against (contacts, deals, tasks)"))
	key = "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. insert,status)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfOps = viper.GetInt("ops")
	perfBatchSize = viper.GetInt("batch-size")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	entity, err := records.ParseEntityType(viper.GetString("entity"))
	if err != nil {
		return err
	}
	perfEntity = entity

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for crmvault servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Operations: %d\n", perfOps)
	fmt.Printf("Batch size: %d\n", perfBatchSize)
	fmt.Printf("Entity:     %s\n", perfEntity)
	fmt.Println()

	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()

	runID := time.Now().UnixNano()

	// insert: every op carries a batch of brand-new ids
	insertTimer := metrics.GetOrRegisterTimer("insert", registry)
	if !shouldSkip("insert") {
		for op := 0; op < perfOps; op++ {
			batch := perfBatch(runID, op)
			insertTimer.Time(func() {
				if _, err := rpcVault.InsertWithDedup(perfEntity, batch); err != nil {
					fmt.Printf("(insert) - error inserting batch: %v\n", err)
				}
			})
		}
	}
	printResult("insert", insertTimer)

	// insert-replay: the same batch every op, inserts must come back 0
	replayTimer := metrics.GetOrRegisterTimer("insert-replay", registry)
	if !shouldSkip("insert-replay") {
		batch := perfBatch(runID, 0)
		for op := 0; op < perfOps; op++ {
			replayTimer.Time(func() {
				if _, err := rpcVault.InsertWithDedup(perfEntity, batch); err != nil {
					fmt.Printf("(insert-replay) - error inserting batch: %v\n", err)
				}
			})
		}
	}
	printResult("insert-replay", replayTimer)

	// document: full document read
	documentTimer := metrics.GetOrRegisterTimer("document", registry)
	if !shouldSkip("document") {
		for op := 0; op < perfOps; op++ {
			documentTimer.Time(func() {
				if _, err := rpcVault.Document(); err != nil {
					fmt.Printf("(document) - error reading document: %v\n", err)
				}
			})
		}
	}
	printResult("document", documentTimer)

	// status: metadata-only read
	statusTimer := metrics.GetOrRegisterTimer("status", registry)
	if !shouldSkip("status") {
		for op := 0; op < perfOps; op++ {
			statusTimer.Time(func() {
				if _, _, err := rpcVault.Status(); err != nil {
					fmt.Printf("(status) - error reading status: %v\n", err)
				}
			})
		}
	}
	printResult("status", statusTimer)

	// remove: one record per op, ids written by the insert benchmark
	removeTimer := metrics.GetOrRegisterTimer("remove", registry)
	if !shouldSkip("remove") && !shouldSkip("insert") {
		for op := 0; op < perfOps; op++ {
			id := perfRecordID(runID, op, 0)
			removeTimer.Time(func() {
				if err := rpcVault.RemoveRecord(perfEntity, id); err != nil {
					fmt.Printf("(remove) - error removing record: %v\n", err)
				}
			})
		}
	}
	printResult("remove", removeTimer)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// perfBatch builds a synthetic batch. Ids are scoped to the run so repeated
// invocations never collide with records from earlier runs.
func perfBatch(runID int64, op int) []records.Record {
	batch := make([]records.Record, perfBatchSize)
	for i := range batch {
		batch[i] = records.Record{
			ID:          perfRecordID(runID, op, i),
			ExtractedAt: time.Now().UnixMilli(),
			Fields: map[string]json.RawMessage{
				"name": json.RawMessage(fmt.Sprintf("%q", perfRecordID(runID, op, i))),
			},
		}
	}
	return batch
}

func perfRecordID(runID int64, op, i int) string {
	return fmt.Sprintf("__perf-%d-%d-%d", runID, op, i)
}

// printResult prints the timer of a benchmark test in a formatted way
func printResult(test string, timer metrics.Timer) {
	if timer.Count() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	mean := time.Duration(timer.Mean())
	p99 := time.Duration(timer.Percentile(0.99))
	fmt.Printf("%-20s%d ops\tmean %s\tp99 %s\t%.0f ops/sec\n",
		test, timer.Count(), mean, p99, timer.RateMean())
}

// writeResultsToCSV writes benchmark timers to a CSV file
func writeResultsToCSV(csvPath string, registry metrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "Ops", "MeanNs", "P99Ns", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"BatchSize", "Entity",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	var writeErr error
	registry.Each(func(test string, metric interface{}) {
		if writeErr != nil {
			return
		}

		timer, ok := metric.(metrics.Timer)
		if !ok {
			return
		}

		row := []string{
			test,
			strconv.FormatInt(timer.Count(), 10),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", timer.Percentile(0.99)),
			fmt.Sprintf("%.0f", timer.RateMean()),
			strconv.FormatBool(timer.Count() == 0),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfBatchSize),
			string(perfEntity),
		}

		if err := writer.Write(row); err != nil {
			writeErr = fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	})

	return writeErr
}
