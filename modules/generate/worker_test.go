package generate

import (
	"context"
	"errors"
	"testing"

	"bento-pro-server/modules/analyze"
	"bento-pro-server/modules/common/model"
)

func seedWorkerJob(queue *fakeQueue, repo *fakeJobRepo, t *testing.T) *model.Job {
	t.Helper()
	job := testJob()
	repo.rows[job.JobID] = job
	queue.inputs[job.JobID] = testPNG(t, 800, 600)
	return job
}

func TestProcessJobSetsGuardAfterCompletion(t *testing.T) {
	queue := newFakeQueue()
	repo := newFakeJobRepo()
	job := seedWorkerJob(queue, repo, t)

	analyzer := &stubAnalyzer{analysis: "Bento.", meta: analyze.DefaultMetadata()}
	generator := &stubGenerator{output: testPNG(t, 400, 400)}
	svc, jobs, _ := newTestService(t, analyzer, generator, newStubBlobStore())

	processJob(context.Background(), queue, svc, repo, job.JobID)

	recordID, found := queue.guards[job.UploadHash]
	if !found {
		t.Fatal("duplicate guard was not set after completion")
	}
	if recordID != jobs.recordID {
		t.Errorf("guard record = %q, want %q", recordID, jobs.recordID)
	}
	if queue.guardTTLs[job.UploadHash] != guardTTL {
		t.Errorf("guard TTL = %v, want %v", queue.guardTTLs[job.UploadHash], guardTTL)
	}
	if _, ok := queue.inputs[job.JobID]; ok {
		t.Error("input stash was not cleaned up")
	}
}

func TestProcessJobDoesNotGuardFailedJob(t *testing.T) {
	queue := newFakeQueue()
	repo := newFakeJobRepo()
	job := seedWorkerJob(queue, repo, t)

	analyzer := &stubAnalyzer{analysisErr: errors.New("model unavailable")}
	svc, jobsStore, _ := newTestService(t, analyzer, &stubGenerator{}, newStubBlobStore())

	processJob(context.Background(), queue, svc, repo, job.JobID)

	if len(queue.guards) != 0 {
		t.Error("guard was set for a failed job")
	}
	if _, ok := queue.inputs[job.JobID]; ok {
		t.Error("input stash survived a failed job")
	}
	if jobsStore.errorMsg == "" {
		t.Error("job error was not recorded")
	}
}

func TestProcessJobFailsWhenInputMissing(t *testing.T) {
	queue := newFakeQueue()
	repo := newFakeJobRepo()
	job := seedWorkerJob(queue, repo, t)
	queue.takeErr = errors.New("key expired")

	analyzer := &stubAnalyzer{analysis: "Bento.", meta: analyze.DefaultMetadata()}
	svc, jobsStore, hub := newTestService(t, analyzer, &stubGenerator{output: testPNG(t, 400, 400)}, newStubBlobStore())

	processJob(context.Background(), queue, svc, repo, job.JobID)

	if jobsStore.errorMsg == "" {
		t.Fatal("job error was not recorded")
	}
	if len(queue.guards) != 0 {
		t.Error("guard was set without processing")
	}
	last := hub.updates[len(hub.updates)-1]
	if last.Status != model.StatusFailed {
		t.Errorf("last update status = %s, want failed", last.Status)
	}
}

func TestProcessJobSkipsUnknownJob(t *testing.T) {
	queue := newFakeQueue()
	repo := newFakeJobRepo()

	analyzer := &stubAnalyzer{analysis: "Bento.", meta: analyze.DefaultMetadata()}
	svc, jobsStore, _ := newTestService(t, analyzer, &stubGenerator{}, newStubBlobStore())

	processJob(context.Background(), queue, svc, repo, "ghost-job")

	if jobsStore.errorMsg != "" || len(jobsStore.statuses) != 0 {
		t.Error("unknown job must not touch the job table")
	}
}
