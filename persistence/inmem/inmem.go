package inmem

import (
	"sync"

	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"github.com/taskweave/taskweave/util"
)

// In-memory storage variant, selected by storage-impl=memory. Single node
// only; also the substrate for engine tests. Values are copied through the
// json codec on the way in and out to mimic a remote document store.

var _ persistence.RuntimeStorage = new(InMemRuntimeStorage)

type InMemRuntimeStorage struct {
	mu       sync.RWMutex
	runtimes map[string]*model.Runtime
	encDec   util.EncoderDecoder[model.Runtime]
}

func NewInMemRuntimeStorage() *InMemRuntimeStorage {
	return &InMemRuntimeStorage{
		runtimes: make(map[string]*model.Runtime),
		encDec:   util.NewJsonEncoderDecoder[model.Runtime](),
	}
}

func (s *InMemRuntimeStorage) copy(rt model.Runtime) (*model.Runtime, error) {
	data, err := s.encDec.Encode(rt)
	if err != nil {
		return nil, err
	}
	return s.encDec.Decode(data)
}

func (s *InMemRuntimeStorage) Create(seed model.Runtime) (*model.Runtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.copy(seed)
	if err != nil {
		return nil, err
	}
	if stored.Global == nil {
		stored.Global = map[string]any{}
	}
	if stored.WorkflowResults == nil {
		stored.WorkflowResults = map[string]any{}
	}
	s.runtimes[seed.Id] = stored
	return s.copy(*stored)
}

func (s *InMemRuntimeStorage) FindById(runtimeId string) (*model.Runtime, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rt, ok := s.runtimes[runtimeId]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "runtime", Id: runtimeId}
	}
	return s.copy(*rt)
}

func (s *InMemRuntimeStorage) ListIds() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.runtimes))
	for id := range s.runtimes {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *InMemRuntimeStorage) UpdateTaskStatus(runtimeId string, taskId string, status model.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[runtimeId]
	if !ok {
		return persistence.NotFoundError{Kind: "runtime", Id: runtimeId}
	}
	for i := range rt.Tasks {
		if rt.Tasks[i].Id == taskId {
			rt.Tasks[i].Status = status
			return nil
		}
	}
	return persistence.NotFoundError{Kind: "task", Id: taskId}
}

func (s *InMemRuntimeStorage) UpdateWorkflowResult(runtimeId string, taskName string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[runtimeId]
	if !ok {
		return persistence.NotFoundError{Kind: "runtime", Id: runtimeId}
	}
	rt.WorkflowResults[taskName] = value
	return nil
}

func (s *InMemRuntimeStorage) UpdateWorkflowStatus(runtimeId string, status model.WorkflowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[runtimeId]
	if !ok {
		return persistence.NotFoundError{Kind: "runtime", Id: runtimeId}
	}
	rt.WorkflowStatus = status
	return nil
}

func (s *InMemRuntimeStorage) UpdateGlobal(runtimeId string, global map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[runtimeId]
	if !ok {
		return persistence.NotFoundError{Kind: "runtime", Id: runtimeId}
	}
	rt.Global = global
	return nil
}

func (s *InMemRuntimeStorage) AppendLogs(runtimeId string, logs []model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rt, ok := s.runtimes[runtimeId]
	if !ok {
		return persistence.NotFoundError{Kind: "runtime", Id: runtimeId}
	}
	rt.Logs = append(rt.Logs, logs...)
	return nil
}

var _ persistence.DefinitionStorage = new(InMemDefinitionStorage)

type InMemDefinitionStorage struct {
	mu          sync.RWMutex
	definitions map[string]*model.Definition
	encDec      util.EncoderDecoder[model.Definition]
}

func NewInMemDefinitionStorage() *InMemDefinitionStorage {
	return &InMemDefinitionStorage{
		definitions: make(map[string]*model.Definition),
		encDec:      util.NewJsonEncoderDecoder[model.Definition](),
	}
}

func (s *InMemDefinitionStorage) copy(def model.Definition) (*model.Definition, error) {
	data, err := s.encDec.Encode(def)
	if err != nil {
		return nil, err
	}
	return s.encDec.Decode(data)
}

func (s *InMemDefinitionStorage) Save(def model.Definition) (*model.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.copy(def)
	if err != nil {
		return nil, err
	}
	s.definitions[def.Id] = stored
	return s.copy(*stored)
}

func (s *InMemDefinitionStorage) Update(def model.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[def.Id]; !ok {
		return persistence.NotFoundError{Kind: "definition", Id: def.Id}
	}
	stored, err := s.copy(def)
	if err != nil {
		return err
	}
	s.definitions[def.Id] = stored
	return nil
}

func (s *InMemDefinitionStorage) Get(id string) (*model.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.definitions[id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "definition", Id: id}
	}
	return s.copy(*def)
}

func (s *InMemDefinitionStorage) List() ([]model.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defs := make([]model.Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		cp, err := s.copy(*def)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *cp)
	}
	return defs, nil
}

var _ persistence.Queue = new(InMemQueue)

type InMemQueue struct {
	mu     sync.Mutex
	queues map[string][]string
}

func NewInMemQueue() *InMemQueue {
	return &InMemQueue{
		queues: make(map[string][]string),
	}
}

func (q *InMemQueue) Push(queueName string, partitionKey string, message []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[queueName] = append(q.queues[queueName], string(message))
	return nil
}

func (q *InMemQueue) Pop(queueName string, batchSize int) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.queues[queueName]
	if len(items) == 0 {
		return nil, persistence.EmptyQueueError{QueueName: queueName}
	}
	if batchSize > len(items) {
		batchSize = len(items)
	}
	popped := items[:batchSize]
	q.queues[queueName] = items[batchSize:]
	return popped, nil
}

func (q *InMemQueue) PushDLQ(queueName string, message []byte) error {
	return q.Push(queueName+":dlq", "", message)
}
