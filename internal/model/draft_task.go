package model

const (
	DraftTaskStatusPending    = "pending"
	DraftTaskStatusProcessing = "processing"
	DraftTaskStatusCompleted  = "completed"
	DraftTaskStatusFailed     = "failed"
)

type DraftTask struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id"`
	ContractType  string            `json:"contract_type"`
	InputParams   map[string]string `json:"input_params"`
	Status        string            `json:"status"`
	GeneratedText string            `json:"generated_text,omitempty"`
	Citations     []Citation        `json:"citations,omitempty"`
	Error         string            `json:"error,omitempty"`
	Attempts      int               `json:"attempts"`
	Ctime         int64             `json:"ctime"`
	Mtime         int64             `json:"mtime"`
}
