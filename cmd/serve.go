package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpHdlr "treedump/handler/http"
	"treedump/src/fsutil"
	"treedump/src/infrastructure/job"
	"treedump/src/storage/minioctrl"
	"treedump/src/storage/postgres/runctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dump API server",
	Long: `The serve command starts an HTTP server for enqueueing dump jobs,
listing recorded dump runs, and downloading archived dumps.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	settingDefaultConfig()
}

func runServe(cmd *cobra.Command, args []string) error {
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
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	// Initialize MinioService
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %v", err)
	}

	// Initialize DumpRunService
	runService, err := runctrl.NewDumpRunService(db)
	if err != nil {
		return fmt.Errorf("failed to initialize dump run service: %v", err)
	}

	// Initialize job repository and service
	jobRepo := job.NewPostgresJobRepository(db)
	jobService := job.NewJobService(publisher, jobRepo, watermill.NewStdLogger(false, false), nil)

	// Initialize dump handler
	dumpHandler := httpHdlr.NewDumpHandler(
		jobService,
		runService,
		minioService,
		fsutil.NewLocalFileStore(),
	)

	// Setup gin router
	r := gin.Default()

	// Register routes
	r.POST("/api/v1/dumps", dumpHandler.Create)
	r.GET("/api/v1/dumps", dumpHandler.List)
	r.GET("/api/v1/dumps/:id", dumpHandler.Get)
	r.GET("/api/v1/dumps/:id/download", dumpHandler.Download)
	r.DELETE("/api/v1/dumps/:id", dumpHandler.Delete)
	r.GET("/api/v1/jobs", dumpHandler.ListJobs)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Printf("Invalid shutdown timeout: %v, using default 5s", err)
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
