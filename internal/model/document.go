package model

const (
	DocumentStateNormal  = 1
	DocumentStateDeleted = 2
)

type Document struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	Filename     string `json:"filename"`
	ContractType string `json:"contract_type"`
	StorageKey   string `json:"storage_key"`
	ChunkCount   int    `json:"chunk_count"`
	State        int    `json:"state"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
