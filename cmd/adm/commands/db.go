// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the exam prep platform.

Available commands:
  stats - Show database statistics`,
	}

	dbCmd.AddCommand(statsCmd(logger, db))

	return dbCmd
}

// statsCmd returns the stats command
func statsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  `Show database statistics including user, question, and plan counts.`,
		RunE:  runStats(logger, db),
	}
}

// runStats returns a function that shows database statistics
func runStats(logger *observability.Logger, db *sql.DB) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		logger.Info(ctx, "Diagnostic info", map[string]interface{}{"config_file": os.Getenv("EXAMPREP_CONFIG_FILE"), "database": getDatabaseInfo(db)})

		counts := []struct {
			label string
			query string
		}{
			{"Users", "SELECT COUNT(*) FROM users"},
			{"Questions", "SELECT COUNT(*) FROM questions"},
			{"Active study plans", "SELECT COUNT(*) FROM study_plans WHERE status = 'active'"},
			{"Completed study plans", "SELECT COUNT(*) FROM study_plans WHERE status = 'completed'"},
			{"Wrong answers tracked", "SELECT COUNT(*) FROM wrong_answers"},
			{"Phase 1 results", "SELECT COUNT(*) FROM phase_results"},
			{"Ingestion jobs", "SELECT COUNT(*) FROM ingestion_jobs"},
		}

		fmt.Println("Database statistics")
		fmt.Println("-------------------")
		for _, c := range counts {
			var n int
			if err := db.QueryRowContext(ctx, c.query).Scan(&n); err != nil {
				return contextutils.WrapErrorf(err, "failed to count %s", c.label)
			}
			fmt.Printf("%-25s %d\n", c.label, n)
		}

		// Per-certification question breakdown
		rows, err := db.QueryContext(ctx, `
			SELECT certification, subject, COUNT(*)
			FROM questions
			GROUP BY certification, subject
			ORDER BY certification, subject`)
		if err != nil {
			return contextutils.WrapError(err, "failed to query question breakdown")
		}
		defer func() {
			if closeErr := rows.Close(); closeErr != nil {
				logger.Error(ctx, "Failed to close rows", closeErr)
			}
		}()

		fmt.Println("\nQuestions by certification and subject")
		fmt.Println("--------------------------------------")
		for rows.Next() {
			var certification, subject string
			var n int
			if err := rows.Scan(&certification, &subject, &n); err != nil {
				return contextutils.WrapError(err, "failed to scan breakdown row")
			}
			fmt.Printf("%-20s %-20s %d\n", certification, subject, n)
		}
		return rows.Err()
	}
}
