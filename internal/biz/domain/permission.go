package domain

// PermissionRecord is the single owner/admin record for the process.
// Owner holds zero or one id; Admins and AdminNames always share the
// same membership.
type PermissionRecord struct {
	Owner      []string          `json:"owner"`
	Admins     []string          `json:"admin"`
	AdminNames map[string]string `json:"admin_info"`
}

// NewPermissionRecord creates a claimable record, or one pre-seeded with
// an owner if ownerID is non-empty.
func NewPermissionRecord(ownerID string) *PermissionRecord {
	rec := &PermissionRecord{
		Owner:      []string{},
		Admins:     []string{},
		AdminNames: map[string]string{},
	}
	if ownerID != "" {
		rec.Owner = append(rec.Owner, ownerID)
	}
	return rec
}

// Claimable reports whether no owner has been set yet.
func (r *PermissionRecord) Claimable() bool {
	return len(r.Owner) == 0
}

// IsOwner reports whether the identity is the owner.
func (r *PermissionRecord) IsOwner(id string) bool {
	for _, o := range r.Owner {
		if o == id {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity may answer admin-gated checks.
// The owner is always an admin.
func (r *PermissionRecord) IsAdmin(id string) bool {
	if r.IsOwner(id) {
		return true
	}
	for _, a := range r.Admins {
		if a == id {
			return true
		}
	}
	return false
}

// Claim sets the owner. It succeeds exactly once per record lifetime;
// every later attempt returns ErrAlreadyOwned and leaves Owner unchanged.
func (r *PermissionRecord) Claim(id string) error {
	if !r.Claimable() {
		return ErrAlreadyOwned
	}
	r.Owner = append(r.Owner, id)
	return nil
}

// AddAdmin inserts the identity into Admins and AdminNames together.
func (r *PermissionRecord) AddAdmin(id, name string) error {
	for _, a := range r.Admins {
		if a == id {
			return ErrAlreadyAdmin
		}
	}
	if r.AdminNames == nil {
		r.AdminNames = map[string]string{}
	}
	r.Admins = append(r.Admins, id)
	r.AdminNames[id] = name
	return nil
}

// RemoveAdmin removes the identity from both collections and returns the
// removed display name for UI echo.
func (r *PermissionRecord) RemoveAdmin(id string) (string, error) {
	for i, a := range r.Admins {
		if a == id {
			name := r.AdminNames[id]
			r.Admins = append(r.Admins[:i], r.Admins[i+1:]...)
			delete(r.AdminNames, id)
			return name, nil
		}
	}
	return "", ErrNotFound
}
