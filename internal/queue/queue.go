// Package queue runs REST sends and retries on a small worker pool so slow
// network calls never stall the event-dispatch path.
package queue

import (
	"log"
	"sync"
)

type Job struct {
	Fn   func() error
	Errc chan error
}

type Manager struct {
	jobs       chan Job
	maxWorkers int
	wg         sync.WaitGroup
}

func NewManager(queueSize, maxWorkers int) *Manager {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	m := &Manager{
		jobs:       make(chan Job, queueSize),
		maxWorkers: maxWorkers,
	}
	m.startWorkers()
	return m
}

func (m *Manager) startWorkers() {
	for i := 0; i < m.maxWorkers; i++ {
		m.wg.Add(1)
		go func(workerID int) {
			defer m.wg.Done()
			for job := range m.jobs {
				err := job.Fn()
				if err != nil {
					log.Printf("queue: worker %d job failed: %v", workerID, err)
				}
				if job.Errc != nil {
					job.Errc <- err
				}
			}
		}(i)
	}
}

func (m *Manager) Enqueue(job Job) {
	m.jobs <- job
}

// Shutdown stops accepting jobs and waits for in-flight ones to drain.
func (m *Manager) Shutdown() {
	close(m.jobs)
	m.wg.Wait()
}
