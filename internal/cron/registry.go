package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Job is one unit of scheduled maintenance. Name doubles as the metrics
// label and the cron-worker -job flag value.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order, which is also run order.
type Registry struct {
	order  []string
	byName map[string]Job
}

// NewRegistry panics on a duplicate or unnamed job: both are wiring bugs
// that must not reach a running worker. Nil jobs are skipped.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("cron job name is required")
	case r.byName[name] != nil:
		return fmt.Errorf("cron job %q already registered", name)
	}
	if r.byName == nil {
		r.byName = make(map[string]Job)
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Find(name string) (Job, bool) {
	job, ok := r.byName[name]
	return job, ok
}

// Names lists registered job names in run order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Jobs returns a copy of the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		jobs = append(jobs, r.byName[name])
	}
	return jobs
}
