package job_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"treedump/src/infrastructure/job"
)

// memRepo is an in-memory JobRepository for tests
type memRepo struct {
	nextID int
	jobs   map[int]*job.Job
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, jobs: make(map[int]*job.Job)}
}

func (r *memRepo) Create(ctx context.Context, taskType string, payload json.RawMessage) (*job.Job, error) {
	j := &job.Job{
		ID:       r.nextID,
		TaskType: taskType,
		Payload:  payload,
		Status:   job.JobStatusPending,
	}
	r.jobs[j.ID] = j
	r.nextID++
	return j, nil
}

func (r *memRepo) Get(ctx context.Context, id int) (*job.Job, error) {
	return r.jobs[id], nil
}

func (r *memRepo) List(ctx context.Context, limit, offset int) ([]job.Job, error) {
	var jobs []job.Job
	// newest first, matching the Postgres repository ordering
	for id := r.nextID - 1; id >= 1; id-- {
		if j, ok := r.jobs[id]; ok {
			jobs = append(jobs, *j)
		}
	}
	if offset >= len(jobs) {
		return nil, nil
	}
	jobs = jobs[offset:]
	if limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, id int, status job.JobStatus, errStr *string) error {
	j, ok := r.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	j.Status = status
	j.Error = errStr
	return nil
}

// capturePublisher records published messages per topic
type capturePublisher struct {
	published map[string][]*message.Message
	failWith  error
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{published: make(map[string][]*message.Message)}
}

func (p *capturePublisher) Publish(topic string, messages ...*message.Message) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.published[topic] = append(p.published[topic], messages...)
	return nil
}

func (p *capturePublisher) Close() error {
	return nil
}

func TestEnqueueJob(t *testing.T) {
	tests := []struct {
		name       string
		publishErr error
		wantErr    bool
	}{
		{
			name:    "publishes job message",
			wantErr: false,
		},
		{
			name:       "publish failure surfaces",
			publishErr: errors.New("broker unavailable"),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			publisher := newCapturePublisher()
			publisher.failWith = tt.publishErr
			svc := job.NewJobService(publisher, repo, watermill.NopLogger{}, nil)

			payload, _ := json.Marshal(job.DumpPayload{SourcePath: "/var/data"})
			enqueued, err := svc.EnqueueJob(context.Background(), job.TaskTypeDump, payload)

			if (err != nil) != tt.wantErr {
				t.Fatalf("EnqueueJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if enqueued.Status != job.JobStatusPending {
				t.Errorf("EnqueueJob() status = %s, want %s", enqueued.Status, job.JobStatusPending)
			}

			msgs := publisher.published[job.JobsTopic]
			if len(msgs) != 1 {
				t.Fatalf("published %d messages on %q, want 1", len(msgs), job.JobsTopic)
			}

			var jobMsg job.JobMessage
			if err := json.Unmarshal(msgs[0].Payload, &jobMsg); err != nil {
				t.Fatalf("failed to unmarshal published message: %v", err)
			}
			if jobMsg.JobID != enqueued.ID {
				t.Errorf("published job_id = %d, want %d", jobMsg.JobID, enqueued.ID)
			}
			if jobMsg.TaskType != job.TaskTypeDump {
				t.Errorf("published task_type = %s, want %s", jobMsg.TaskType, job.TaskTypeDump)
			}
		})
	}
}

func TestProcessJobMessage(t *testing.T) {
	tests := []struct {
		name       string
		taskType   string
		payload    interface{}
		wantErr    bool
		wantStatus job.JobStatus
	}{
		{
			name:       "test task completes",
			taskType:   "test",
			payload:    job.TestPayload{Print: "hello"},
			wantErr:    false,
			wantStatus: job.JobStatusCompleted,
		},
		{
			name:       "unknown task type fails",
			taskType:   "reticulate",
			payload:    map[string]string{},
			wantErr:    true,
			wantStatus: job.JobStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := job.NewJobService(newCapturePublisher(), repo, watermill.NopLogger{}, nil)

			payloadBytes, err := json.Marshal(tt.payload)
			if err != nil {
				t.Fatalf("failed to marshal payload: %v", err)
			}
			created, err := repo.Create(context.Background(), tt.taskType, payloadBytes)
			if err != nil {
				t.Fatalf("failed to create job: %v", err)
			}

			msgBytes, err := json.Marshal(job.JobMessage{
				JobID:    created.ID,
				TaskType: created.TaskType,
				Payload:  created.Payload,
			})
			if err != nil {
				t.Fatalf("failed to marshal job message: %v", err)
			}

			err = svc.ProcessJobMessage(message.NewMessage(watermill.NewUUID(), msgBytes))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessJobMessage() error = %v, wantErr %v", err, tt.wantErr)
			}

			if got := repo.jobs[created.ID].Status; got != tt.wantStatus {
				t.Errorf("job status = %s, want %s", got, tt.wantStatus)
			}
			if tt.wantErr && repo.jobs[created.ID].Error == nil {
				t.Errorf("failed job has no error recorded")
			}
		})
	}
}

func TestListJobs(t *testing.T) {
	repo := newMemRepo()
	svc := job.NewJobService(newCapturePublisher(), repo, watermill.NopLogger{}, nil)

	for i := 0; i < 3; i++ {
		payload, _ := json.Marshal(job.DumpPayload{SourcePath: fmt.Sprintf("/var/data/%d", i)})
		if _, err := repo.Create(context.Background(), job.TaskTypeDump, payload); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
	}

	jobs, err := svc.ListJobs(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("ListJobs() returned %d jobs, want 2", len(jobs))
	}
	// newest first: IDs 3,2,1 with offset 1 yields 2 then 1
	if jobs[0].ID != 2 || jobs[1].ID != 1 {
		t.Errorf("ListJobs() IDs = [%d %d], want [2 1]", jobs[0].ID, jobs[1].ID)
	}
}

func TestProcessJobMessageJobNotFound(t *testing.T) {
	svc := job.NewJobService(newCapturePublisher(), newMemRepo(), watermill.NopLogger{}, nil)

	msgBytes, err := json.Marshal(job.JobMessage{JobID: 42, TaskType: "test"})
	if err != nil {
		t.Fatalf("failed to marshal job message: %v", err)
	}

	err = svc.ProcessJobMessage(message.NewMessage(watermill.NewUUID(), msgBytes))
	if err == nil || !strings.Contains(err.Error(), fmt.Sprintf("job not found: %d", 42)) {
		t.Errorf("ProcessJobMessage() error = %v, want job not found", err)
	}
}
