package model

type DefinitionStatus string

const DEFINITION_STATUS_ACTIVE DefinitionStatus = "active"
const DEFINITION_STATUS_INACTIVE DefinitionStatus = "inactive"

// Definition is the reusable task graph template. It is read-only to the
// engine; runtimes take a deep copy of Tasks at start.
type Definition struct {
	Id          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Status      DefinitionStatus `json:"status"`
	Global      map[string]any   `json:"global,omitempty"`
	Tasks       []Task           `json:"tasks"`
}

func (d *Definition) FindTaskByType(taskType TaskType) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].Type == taskType {
			return &d.Tasks[i]
		}
	}
	return nil
}
