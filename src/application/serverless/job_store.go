package serverless

import "sync"

type JobStatus string

const (
	StatusInQueue    JobStatus = "IN_QUEUE"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// JobEnvelope is the platform-shaped wrapper around a job's result.
type JobEnvelope struct {
	ID     string      `json:"id"`
	Status JobStatus   `json:"status"`
	Output interface{} `json:"output,omitempty"`
}

// jobStore keeps async job envelopes in memory. Results stay for the
// process lifetime; durable job state belongs to the platform, not here.
type jobStore struct {
	mutex sync.RWMutex
	jobs  map[string]JobEnvelope
}

func newJobStore() *jobStore {
	return &jobStore{
		jobs: map[string]JobEnvelope{},
	}
}

func (s *jobStore) Set(envelope JobEnvelope) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.jobs[envelope.ID] = envelope
}

func (s *jobStore) Delete(jobID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.jobs, jobID)
}

func (s *jobStore) Get(jobID string) (JobEnvelope, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	envelope, ok := s.jobs[jobID]
	return envelope, ok
}
