package domain

import "strings"

// Namespace is one of the two command partitions
type Namespace string

const (
	// NamespaceAdmin commands are answered for admins only
	NamespaceAdmin Namespace = "admin"
	// NamespaceUser commands are answered for everyone
	NamespaceUser Namespace = "user"
)

// Valid reports whether ns is a known namespace.
func (ns Namespace) Valid() bool {
	return ns == NamespaceAdmin || ns == NamespaceUser
}

// CommandTable maps command names to answer texts in two disjoint
// namespaces. The JSON shape is the persisted document layout.
type CommandTable struct {
	Admin map[string]string `json:"admin"`
	User  map[string]string `json:"user"`
}

// NewCommandTable creates an empty table.
func NewCommandTable() *CommandTable {
	return &CommandTable{
		Admin: map[string]string{},
		User:  map[string]string{},
	}
}

// Clone returns a deep copy, for mutate-persist-swap updates that must
// keep the prior table authoritative when the write fails.
func (t *CommandTable) Clone() *CommandTable {
	t.normalize()
	next := NewCommandTable()
	for name, answer := range t.Admin {
		next.Admin[name] = answer
	}
	for name, answer := range t.User {
		next.User[name] = answer
	}
	return next
}

// normalize ensures both maps are non-nil after decoding a sparse document.
func (t *CommandTable) normalize() {
	if t.Admin == nil {
		t.Admin = map[string]string{}
	}
	if t.User == nil {
		t.User = map[string]string{}
	}
}

// Exists reports whether the name is taken in either namespace.
func (t *CommandTable) Exists(name string) bool {
	t.normalize()
	_, inAdmin := t.Admin[name]
	_, inUser := t.User[name]
	return inAdmin || inUser
}

// Add inserts a command. Names are unique across both namespaces, so a
// name taken anywhere is rejected without mutating the table.
func (t *CommandTable) Add(name, answer string, ns Namespace) error {
	if err := ValidateCommandName(name); err != nil {
		return err
	}
	if t.Exists(name) {
		return ErrAlreadyExists
	}
	switch ns {
	case NamespaceAdmin:
		t.Admin[name] = answer
	case NamespaceUser:
		t.User[name] = answer
	default:
		return ErrInvalidName
	}
	return nil
}

// Remove deletes the command from whichever namespace holds it, admin
// first, and reports which one matched.
func (t *CommandTable) Remove(name string) (Namespace, error) {
	t.normalize()
	if _, ok := t.Admin[name]; ok {
		delete(t.Admin, name)
		return NamespaceAdmin, nil
	}
	if _, ok := t.User[name]; ok {
		delete(t.User, name)
		return NamespaceUser, nil
	}
	return "", ErrNotFound
}

// Names lists all command names, admin namespace first.
func (t *CommandTable) Names() []string {
	t.normalize()
	names := make([]string, 0, len(t.Admin)+len(t.User))
	for name := range t.Admin {
		names = append(names, name)
	}
	for name := range t.User {
		names = append(names, name)
	}
	return names
}

// ValidateCommandName rejects empty names and names containing whitespace.
func ValidateCommandName(name string) error {
	if name == "" || strings.ContainsAny(name, " \t\n\r") {
		return ErrInvalidName
	}
	return nil
}
