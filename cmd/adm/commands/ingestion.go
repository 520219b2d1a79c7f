package commands

import (
	"context"
	"database/sql"
	"fmt"

	"examprep/internal/observability"
	contextutils "examprep/internal/utils"

	"github.com/spf13/cobra"
)

// IngestionCommands returns the ingestion review queue commands
func IngestionCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	ingestionCmd := &cobra.Command{
		Use:   "ingestion",
		Short: "Ingestion pipeline commands",
		Long: `Ingestion pipeline commands for the exam prep platform.

Available commands:
  queue - Show jobs awaiting human review`,
	}

	ingestionCmd.AddCommand(queueCmd(logger, db))

	return ingestionCmd
}

// queueCmd returns the queue command
func queueCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show jobs awaiting human review",
		Long:  `Show ingestion jobs flagged NEEDS_REVIEW, oldest first, with their review reasons.`,
		RunE:  runQueue(logger, db, &limit),
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of jobs to show")

	return cmd
}

// runQueue returns a function that lists the human-review backlog
func runQueue(logger *observability.Logger, db *sql.DB, limit *int) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		rows, err := db.QueryContext(ctx, `
			SELECT id, question_id, certification, subject, review_reason, created_at
			FROM ingestion_jobs
			WHERE status = 'NEEDS_REVIEW'
			ORDER BY created_at ASC
			LIMIT $1`, *limit)
		if err != nil {
			return contextutils.WrapError(err, "failed to query review queue")
		}
		defer func() {
			if closeErr := rows.Close(); closeErr != nil {
				logger.Error(ctx, "Failed to close rows", closeErr)
			}
		}()

		count := 0
		fmt.Printf("%-38s %-10s %-14s %-14s %-28s %-12s\n", "Job ID", "Question", "Certification", "Subject", "Reason", "Created")
		for rows.Next() {
			var jobID, certification, subject string
			var questionID sql.NullInt32
			var reason sql.NullString
			var createdAt sql.NullTime
			if err := rows.Scan(&jobID, &questionID, &certification, &subject, &reason, &createdAt); err != nil {
				return contextutils.WrapError(err, "failed to scan job row")
			}

			question := "-"
			if questionID.Valid {
				question = fmt.Sprintf("%d", questionID.Int32)
			}
			reviewReason := "-"
			if reason.Valid {
				reviewReason = reason.String
			}
			created := "-"
			if createdAt.Valid {
				created = createdAt.Time.Format("2006-01-02")
			}

			fmt.Printf("%-38s %-10s %-14s %-14s %-28s %-12s\n", jobID, question, certification, subject, reviewReason, created)
			count++
		}
		if err := rows.Err(); err != nil {
			return contextutils.WrapError(err, "error iterating jobs")
		}

		fmt.Printf("\n%d jobs awaiting review\n", count)
		return nil
	}
}
