package model

const (
	TenantStateActive   = 1
	TenantStateDisabled = 2
)

type Tenant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	APIKeyHash string `json:"-"`
	State      int    `json:"state"`
	Ctime      int64  `json:"ctime"`
}
