package treasury

// RejectRequest for POST /quests/{id}/reject
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

// AllocateRequest for POST /admin/organizations/{id}/allocate and /admin/platform/topup
type AllocateRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// AllocateUserRequest for POST /admin/users/allocate. User is an id or an email.
type AllocateUserRequest struct {
	User   string `json:"user" validate:"required,notblank"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// OwnerPath is the {tier}/{owner} pair of the admin ledger routes.
type OwnerPath struct {
	Tier  string `json:"tier" validate:"required,tier"`
	Owner string `json:"owner" validate:"required"`
}
