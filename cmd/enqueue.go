package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"treedump/src/infrastructure/job"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Enqueue a dump job for the worker",
	RunE:  runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().String("source", "", "source directory to dump")
	enqueueCmd.Flags().String("bucket", "", "destination bucket for the archive")

	settingDefaultConfig()
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	if source == "" {
		source = viper.GetString("dump.source")
	}
	if source == "" {
		return fmt.Errorf("source directory is required (--source or DUMP_SOURCE)")
	}

	// Initialize logger
	logger := watermill.NewStdLogger(false, false)

	// Initialize PostgreSQL connection
	host := viper.GetString("postgres.host")
	user := viper.GetString("postgres.user")
	password := viper.GetString("postgres.password")
	dbname := viper.GetString("postgres.db")
	port := viper.GetString("postgres.port")

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	// Get underlying *sql.DB for cleanup
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}
	defer sqlDB.Close()

	// Initialize AMQP publisher
	publisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	// Initialize job repository and service
	jobRepo := job.NewPostgresJobRepository(db)
	jobService := job.NewJobService(publisher, jobRepo, logger, nil)

	// Create dump payload
	bucket, _ := cmd.Flags().GetString("bucket")
	payload := job.DumpPayload{
		SourcePath: source,
		Bucket:     bucket,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Enqueue job
	ctx := context.Background()
	enqueued, err := jobService.EnqueueJob(ctx, job.TaskTypeDump, payloadBytes)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	fmt.Printf("Successfully enqueued dump job with ID: %d\n", enqueued.ID)
	return nil
}
