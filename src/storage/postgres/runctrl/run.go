package runctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// DumpRun records one completed dump: where it read from, where the
// archive landed, and how much was written.
type DumpRun struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	SourcePath string    `gorm:"not null;column:source_path" json:"source_path"`
	ObjectURL  string    `gorm:"not null;column:object_url" json:"object_url"` // bucket name + object name
	FileCount  int       `gorm:"column:file_count" json:"file_count"`
	ByteCount  int64     `gorm:"column:byte_count" json:"byte_count"`
	DurationMS int64     `gorm:"column:duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type DumpRunService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewDumpRunService(db *gorm.DB) (*DumpRunService, error) {
	// Initialize snowflake node
	node, err := snowflake.NewNode(1) // Node number 1
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &DumpRunService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *DumpRunService) Create(ctx context.Context, sourcePath, objectURL string, fileCount int, byteCount int64, duration time.Duration) (*DumpRun, error) {
	run := &DumpRun{
		ID:         s.snowflake.Generate().Int64(),
		SourcePath: sourcePath,
		ObjectURL:  objectURL,
		FileCount:  fileCount,
		ByteCount:  byteCount,
		DurationMS: duration.Milliseconds(),
	}

	result := s.db.WithContext(ctx).Create(run)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create dump run: %v", result.Error)
	}

	return run, nil
}

func (s *DumpRunService) GetByID(ctx context.Context, id int64) (*DumpRun, error) {
	var run DumpRun
	result := s.db.WithContext(ctx).First(&run, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dump run: %v", result.Error)
	}
	return &run, nil
}

func (s *DumpRunService) Delete(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&DumpRun{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete dump run: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("dump run not found")
	}
	return nil
}

func (s *DumpRunService) List(ctx context.Context, limit, offset int) ([]DumpRun, error) {
	var runs []DumpRun
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list dump runs: %v", result.Error)
	}
	return runs, nil
}
