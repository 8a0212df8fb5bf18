package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run()
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs startup jobs once and cron jobs on their schedule. A job
// never overlaps with a still running instance of itself.
type TaskExecutor struct {
	cron     *cron.Cron
	jobs     []Job
	cronJobs []CronJob
	running  mapset.Set[string]
	mu       sync.Mutex
	wg       sync.WaitGroup
}

func NewTaskExecutor(jobs []Job, cronJobs []CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:     cron.New(),
		jobs:     jobs,
		cronJobs: cronJobs,
		running:  mapset.NewThreadUnsafeSet[string](),
	}
}

// Run schedules the cron jobs and starts the startup jobs in their own goroutines.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		job := job
		if err := t.cron.AddFunc(job.Schedule(), func() { t.guard(job) }); err != nil {
			logrus.Errorf("failed to add task %s to cron: %v", job.Name(), err)
			return err
		}
		logrus.Infof("scheduled task %s: %s", job.Name(), job.Schedule())
	}

	for _, job := range t.jobs {
		job := job
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.guard(job)
		}()
	}

	t.cron.Start()

	return nil
}

// guard runs job unless an instance of it is already running.
func (t *TaskExecutor) guard(job Job) bool {
	t.mu.Lock()
	if t.running.Contains(job.Name()) {
		t.mu.Unlock()
		logrus.Warnf("task %s is already running", job.Name())
		return false
	}
	t.running.Add(job.Name())
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.running.Remove(job.Name())
	}()

	job.Run()

	return true
}

// Stop stops the scheduler and waits for the startup jobs.
func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
	t.wg.Wait()
}
