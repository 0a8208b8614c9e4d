package metadata

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	c "github.com/patrickmn/go-cache"
	"github.com/taskweave/taskweave/model"
	"github.com/taskweave/taskweave/persistence"
	"github.com/taskweave/taskweave/util"
)

// DefinitionService fronts the definition store with authoring-time
// validation and a read cache. Definitions are immutable templates from
// the engine's point of view; edits replace tasks, global and status.
type DefinitionService interface {
	CreateDefinition(def model.Definition) (*model.Definition, error)
	EditDefinition(def model.Definition) error
	GetDefinition(id string) (*model.Definition, error)
	ListDefinitions() ([]model.Definition, error)
	ValidateDefinition(def model.Definition) error
}

type definitionServiceImpl struct {
	storage persistence.DefinitionStorage
	cache   *c.Cache
}

var _ DefinitionService = new(definitionServiceImpl)

func NewDefinitionService(storage persistence.DefinitionStorage) *definitionServiceImpl {
	return &definitionServiceImpl{
		storage: storage,
		cache:   c.New(5*time.Minute, 10*time.Minute),
	}
}

func (s *definitionServiceImpl) CreateDefinition(def model.Definition) (*model.Definition, error) {
	if len(def.Id) == 0 {
		def.Id = uuid.NewString()
	}
	if len(def.Status) == 0 {
		def.Status = model.DEFINITION_STATUS_ACTIVE
	}
	for i := range def.Tasks {
		if len(def.Tasks[i].Id) == 0 {
			def.Tasks[i].Id = uuid.NewString()
		}
	}
	if err := s.ValidateDefinition(def); err != nil {
		return nil, err
	}
	saved, err := s.storage.Save(def)
	if err != nil {
		return nil, err
	}
	s.cache.Set(saved.Id, *saved, c.DefaultExpiration)
	return saved, nil
}

func (s *definitionServiceImpl) EditDefinition(def model.Definition) error {
	for i := range def.Tasks {
		if len(def.Tasks[i].Id) == 0 {
			def.Tasks[i].Id = uuid.NewString()
		}
	}
	if err := s.ValidateDefinition(def); err != nil {
		return err
	}
	if err := s.storage.Update(def); err != nil {
		return err
	}
	s.cache.Set(def.Id, def, c.DefaultExpiration)
	return nil
}

func (s *definitionServiceImpl) GetDefinition(id string) (*model.Definition, error) {
	if cached, found := s.cache.Get(id); found {
		def := cached.(model.Definition)
		return &def, nil
	}
	def, err := s.storage.Get(id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, *def, c.DefaultExpiration)
	return def, nil
}

func (s *definitionServiceImpl) ListDefinitions() ([]model.Definition, error) {
	return s.storage.List()
}

// ValidateDefinition enforces the structural invariants of the graph:
// unique task names, exactly one START, at least one END, scripts present
// on script-backed tasks, and next/previous edge consistency.
func (s *definitionServiceImpl) ValidateDefinition(def model.Definition) error {
	if len(def.Tasks) == 0 {
		return fmt.Errorf("definition should have at least one task")
	}
	taskByName := make(map[string]model.Task)
	startCount := 0
	endCount := 0
	for _, task := range def.Tasks {
		if len(task.Name) == 0 {
			return fmt.Errorf("taskId=%s, task name can not be empty", task.Id)
		}
		if _, ok := taskByName[task.Name]; ok {
			return fmt.Errorf("task name %s is duplicate", task.Name)
		}
		taskByName[task.Name] = task
		if err := model.ValidateTaskType(string(task.Type)); err != nil {
			return err
		}
		switch task.Type {
		case model.TASK_TYPE_START:
			startCount++
		case model.TASK_TYPE_END:
			endCount++
		case model.TASK_TYPE_FUNCTION, model.TASK_TYPE_GUARD:
			if len(task.Exec) == 0 {
				return fmt.Errorf("task %s of type %s should have exec script", task.Name, task.Type)
			}
		}
	}
	if startCount != 1 {
		return fmt.Errorf("definition should have exactly one START task, found %d", startCount)
	}
	if endCount == 0 {
		return fmt.Errorf("definition should have at least one END task")
	}
	for _, task := range def.Tasks {
		for _, next := range task.Next {
			nextTask, ok := taskByName[next]
			if !ok {
				return fmt.Errorf("task %s lists unknown next task %s", task.Name, next)
			}
			if !util.ContainsAll(nextTask.Previous, []string{task.Name}) {
				return fmt.Errorf("task %s lists %s as next but %s does not list it as previous", task.Name, next, next)
			}
		}
		for _, previous := range task.Previous {
			previousTask, ok := taskByName[previous]
			if !ok {
				return fmt.Errorf("task %s lists unknown previous task %s", task.Name, previous)
			}
			if !util.ContainsAll(previousTask.Next, []string{task.Name}) {
				return fmt.Errorf("task %s lists %s as previous but %s does not list it as next", task.Name, previous, previous)
			}
		}
	}
	return nil
}
