package models

// MachineForm creates a machine node in the knowledge graph.
type MachineForm struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

// TechnicianForm creates a technician node.
type TechnicianForm struct {
	Name               string `json:"name"`
	Role               string `json:"role"`
	CertificationLevel string `json:"certification_level"`
	Status             string `json:"status"`
}

// TaskForm creates an operational task.
type TaskForm struct {
	Title                 string `json:"title"`
	Description           string `json:"description"`
	TargetMachine         string `json:"target_machine"`
	RequiredCertification string `json:"required_certification"`
	Priority              string `json:"priority"`
}

// Upload describes a document ingestion request.
type Upload struct {
	FileName   string
	Content    []byte
	Machinery  string
	ManualType string
}

const (
	DefaultMachineType   = "General"
	DefaultTechRole      = "Maintenance Tech"
	DefaultCertification = "L1"
	DefaultTechStatus    = "Active"
	DefaultTaskPriority  = "Medium"
	DefaultManualType    = "Maintenance Manual"
)

// NewMachineForm returns a blank machine form.
func NewMachineForm() MachineForm { return MachineForm{Type: DefaultMachineType} }

// NewTechnicianForm returns a technician form with the console defaults.
func NewTechnicianForm() TechnicianForm {
	return TechnicianForm{Role: DefaultTechRole, CertificationLevel: DefaultCertification, Status: DefaultTechStatus}
}

// NewTaskForm returns a task form targeting machine.
func NewTaskForm(machine string) TaskForm {
	return TaskForm{TargetMachine: machine, RequiredCertification: DefaultCertification, Priority: DefaultTaskPriority}
}
