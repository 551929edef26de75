package department

type Filter struct {
	Limit  *int
	Offset *int
	Page   *int
	Search *string
}

// GetListResponse is one department as it appears on worker records.
type GetListResponse struct {
	Name     string `json:"name"`
	Workers  int    `json:"workers"`
	Active   int    `json:"active"`
	Enrolled int    `json:"enrolled"`
}

type RenameRequest struct {
	From *string `json:"from" form:"from"`
	To   *string `json:"to"   form:"to"   validate:"omitempty,max=128"`
}

type RenameResponse struct {
	Name    string `json:"name"`
	Workers int    `json:"workers"`
}
