// Package memory provides a scriptable in-process Provider for local runs
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// Task is one scripted provider task.
type Task struct {
	Platform scan.Platform
	Params   scan.TaskParams
	State    scan.TaskState
	Results  []scan.RawItem
}

// Provider satisfies scan.Provider entirely in memory. Tasks start PENDING;
// tests and local tooling flip them with SetState and SetResults.
type Provider struct {
	mu        sync.Mutex
	seq       int
	tasks     map[string]*Task
	resources map[string][]byte
}

// New constructs an empty Provider.
func New() *Provider {
	return &Provider{
		tasks:     make(map[string]*Task),
		resources: make(map[string][]byte),
	}
}

// StartTask implements scan.Provider.
func (p *Provider) StartTask(_ context.Context, platform scan.Platform, params scan.TaskParams) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	handle := fmt.Sprintf("mem-task-%d", p.seq)
	p.tasks[handle] = &Task{
		Platform: platform,
		Params:   params,
		State:    scan.TaskStatePending,
	}
	return handle, nil
}

// TaskStatus implements scan.Provider.
func (p *Provider) TaskStatus(_ context.Context, handle string) (scan.TaskState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[handle]
	if !ok {
		return "", fmt.Errorf("unknown task %s", handle)
	}
	return task.State, nil
}

// TaskResults implements scan.Provider.
func (p *Provider) TaskResults(_ context.Context, handle string) ([]scan.RawItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[handle]
	if !ok {
		return nil, fmt.Errorf("unknown task %s", handle)
	}
	return append([]scan.RawItem(nil), task.Results...), nil
}

// FetchResource implements scan.Provider.
func (p *Provider) FetchResource(_ context.Context, ref string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.resources[ref]
	if !ok {
		return nil, fmt.Errorf("unknown resource %s", ref)
	}
	return append([]byte(nil), data...), nil
}

// SetState moves a scripted task into the given state.
func (p *Provider) SetState(handle string, state scan.TaskState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if task, ok := p.tasks[handle]; ok {
		task.State = state
	}
}

// SetResults scripts the items a task will return.
func (p *Provider) SetResults(handle string, items []scan.RawItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if task, ok := p.tasks[handle]; ok {
		task.Results = items
	}
}

// SetResource scripts an auxiliary resource payload.
func (p *Provider) SetResource(ref string, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources[ref] = data
}

// Task returns a scripted task by handle.
func (p *Provider) Task(handle string) (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[handle]
	if !ok {
		return Task{}, false
	}
	return *task, true
}
