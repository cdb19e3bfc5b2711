package job

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"treedump/src/core/dump"
	"treedump/src/fsutil"
	"treedump/src/log"
	"treedump/src/storage/minioctrl"
	"treedump/src/storage/postgres/runctrl"
)

const TaskTypeDump = "dump"

type DumpPayload struct {
	SourcePath string `json:"source_path"`
	Bucket     string `json:"bucket,omitempty"`
}

type DumpTask struct {
	fileStore    fsutil.FileStore
	minioService *minioctrl.MinioService
	runService   *runctrl.DumpRunService
}

func NewDumpTask(
	fileStore fsutil.FileStore,
	minioService *minioctrl.MinioService,
	runService *runctrl.DumpRunService,
) *DumpTask {
	return &DumpTask{
		fileStore:    fileStore,
		minioService: minioService,
		runService:   runService,
	}
}

// HandleDumpTask dumps the requested source tree into a scratch file,
// uploads the result to MinIO, and records the run.
func (task *DumpTask) HandleDumpTask(ctx context.Context, payload json.RawMessage) error {
	// decode payload
	var dumpPayload DumpPayload
	if err := json.Unmarshal(payload, &dumpPayload); err != nil {
		return fmt.Errorf("failed to unmarshal dump payload: %w", err)
	}

	bucket := dumpPayload.Bucket
	if bucket == "" {
		bucket = minioctrl.DumpArchivesBucket
	}

	// Ensure minio bucket exists
	if err := task.minioService.EnsureBucketExists(ctx, bucket); err != nil {
		return fmt.Errorf("failed to ensure dump bucket exists: %w", err)
	}

	// Dump into a scratch directory, cleaned up afterwards
	archiveID := uuid.New().String()
	scratchDir := filepath.Join(os.TempDir(), "treedump", archiveID)
	if err := task.fileStore.MakeDirectory(scratchDir); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		if err := task.fileStore.RemoveAll(scratchDir); err != nil {
			log.Error(err, "failed to clean up scratch directory", "path", scratchDir)
		}
	}()

	outputPath := filepath.Join(scratchDir, "dump.txt")
	start := time.Now()

	dumper := dump.NewDumper(task.fileStore, dump.Options{})
	result, err := dumper.Run(ctx, dumpPayload.SourcePath, outputPath)
	if err != nil {
		return fmt.Errorf("failed to dump %s: %w", dumpPayload.SourcePath, err)
	}

	// Upload the archive
	objectName := archiveID + ".txt"
	stream, err := task.fileStore.ReadFileAsStream(outputPath)
	if err != nil {
		return fmt.Errorf("failed to open dump output: %w", err)
	}
	defer stream.Close()

	if err := task.minioService.PutObjectStream(ctx, bucket, objectName, stream, -1); err != nil {
		return fmt.Errorf("failed to upload dump archive: %w", err)
	}

	// Record the run
	run, err := task.runService.Create(
		ctx,
		dumpPayload.SourcePath,
		minioctrl.ObjectURL(bucket, objectName),
		result.FileCount,
		result.ByteCount,
		time.Since(start),
	)
	if err != nil {
		return fmt.Errorf("failed to record dump run: %w", err)
	}

	log.Info("dump archived",
		"run_id", run.ID,
		"source", dumpPayload.SourcePath,
		"object", run.ObjectURL,
		"files", result.FileCount,
		"bytes", result.ByteCount,
	)
	return nil
}
