package indextest

import (
	"context"
	"fmt"
	"sync"

	"askdocs-be/pkg/index"
)

// FakeIndex is the in-memory state behind one handle.
type FakeIndex struct {
	Handle  index.Handle
	Members []index.Member
}

// FakeProvider is an in-memory index.Provider for tests. Newly created
// indexes report ready with all members completed; tests mutate Indexes or
// enqueue scripted Get responses to exercise other lifecycles.
type FakeProvider struct {
	mu      sync.Mutex
	Indexes map[string]*FakeIndex
	nextId  int

	// GetScript, when non-empty for an id, overrides GetIndex responses in
	// order. The last scripted handle repeats once the queue drains.
	GetScript map[string][]index.Handle

	// Per-op error injection.
	CreateErr error
	GetErr    error
	FindErr   error
	AddErr    error
	RemoveErr error
	ListErr   error
	DeleteErr error

	// Call counters.
	Creates int
	Gets    int
	Adds    int
	Removes int
	Deletes int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		Indexes:   make(map[string]*FakeIndex),
		GetScript: make(map[string][]index.Handle),
	}
}

// Seed registers an index with completed members and returns its id.
func (p *FakeProvider) Seed(name string, status index.Status, fileIds ...string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.newId()
	members := make([]index.Member, 0, len(fileIds))
	for _, fileId := range fileIds {
		members = append(members, index.Member{FileId: fileId, Status: index.MemberStatusCompleted})
	}
	p.Indexes[id] = &FakeIndex{
		Handle: index.Handle{
			Id:     id,
			Name:   name,
			Status: status,
			Counts: index.MemberCounts{Total: len(fileIds), Completed: len(fileIds)},
		},
		Members: members,
	}
	return id
}

// Script queues handles returned by successive GetIndex calls for id.
func (p *FakeProvider) Script(id string, handles ...index.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GetScript[id] = append(p.GetScript[id], handles...)
}

func (p *FakeProvider) CreateIndex(ctx context.Context, name string, expiry index.ExpiryPolicy) (*index.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Creates++
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}

	id := p.newId()
	p.Indexes[id] = &FakeIndex{
		Handle: index.Handle{Id: id, Name: name, Status: index.StatusReady},
	}
	h := p.Indexes[id].Handle
	return &h, nil
}

func (p *FakeProvider) GetIndex(ctx context.Context, indexId string) (*index.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Gets++
	if p.GetErr != nil {
		return nil, p.GetErr
	}

	if script := p.GetScript[indexId]; len(script) > 0 {
		h := script[0]
		if len(script) > 1 {
			p.GetScript[indexId] = script[1:]
		}
		return &h, nil
	}

	idx, ok := p.Indexes[indexId]
	if !ok {
		return nil, fmt.Errorf("index %s not found", indexId)
	}
	h := idx.Handle
	return &h, nil
}

func (p *FakeProvider) DeleteIndex(ctx context.Context, indexId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Deletes++
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	delete(p.Indexes, indexId)
	return nil
}

func (p *FakeProvider) FindIndexByName(ctx context.Context, name string) (*index.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FindErr != nil {
		return nil, p.FindErr
	}
	for _, idx := range p.Indexes {
		if idx.Handle.Name == name {
			h := idx.Handle
			return &h, nil
		}
	}
	return nil, nil
}

func (p *FakeProvider) AddFile(ctx context.Context, indexId, fileId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Adds++
	if p.AddErr != nil {
		return p.AddErr
	}
	idx, ok := p.Indexes[indexId]
	if !ok {
		return fmt.Errorf("index %s not found", indexId)
	}
	idx.Members = append(idx.Members, index.Member{FileId: fileId, Status: index.MemberStatusCompleted})
	idx.Handle.Counts.Total++
	idx.Handle.Counts.Completed++
	return nil
}

func (p *FakeProvider) RemoveFile(ctx context.Context, indexId, fileId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Removes++
	if p.RemoveErr != nil {
		return p.RemoveErr
	}
	idx, ok := p.Indexes[indexId]
	if !ok {
		return fmt.Errorf("index %s not found", indexId)
	}
	for i, member := range idx.Members {
		if member.FileId == fileId {
			idx.Members = append(idx.Members[:i], idx.Members[i+1:]...)
			idx.Handle.Counts.Total--
			idx.Handle.Counts.Completed--
			return nil
		}
	}
	return fmt.Errorf("file %s not in index %s", fileId, indexId)
}

func (p *FakeProvider) ListFiles(ctx context.Context, indexId string) ([]index.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	idx, ok := p.Indexes[indexId]
	if !ok {
		return nil, fmt.Errorf("index %s not found", indexId)
	}
	members := make([]index.Member, len(idx.Members))
	copy(members, idx.Members)
	return members, nil
}

// FileIds returns the current member file ids of an index.
func (p *FakeProvider) FileIds(indexId string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.Indexes[indexId]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(idx.Members))
	for _, member := range idx.Members {
		ids = append(ids, member.FileId)
	}
	return ids
}

func (p *FakeProvider) newId() string {
	p.nextId++
	return fmt.Sprintf("idx-%d", p.nextId)
}
