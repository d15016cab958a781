package domain

import (
	"errors"
	"testing"
)

func TestCommandTable_AddAndRemove(t *testing.T) {
	table := NewCommandTable()

	if err := table.Add("ping", "pong!", NamespaceUser); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := table.Add("secret", "hidden", NamespaceAdmin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ns, err := table.Remove("secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ns != NamespaceAdmin {
		t.Errorf("expected admin namespace, got %q", ns)
	}

	ns, err = table.Remove("ping")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ns != NamespaceUser {
		t.Errorf("expected user namespace, got %q", ns)
	}
}

func TestCommandTable_AddDuplicateDoesNotMutate(t *testing.T) {
	table := NewCommandTable()
	if err := table.Add("ping", "pong!", NamespaceUser); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := table.Add("ping", "other", NamespaceUser)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if table.User["ping"] != "pong!" {
		t.Error("expected original answer to be untouched")
	}

	// Names are unique across namespaces too
	err = table.Add("ping", "other", NamespaceAdmin)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists across namespaces, got %v", err)
	}
	if len(table.Admin) != 0 {
		t.Error("expected admin namespace to be untouched")
	}
}

func TestCommandTable_RemoveNotFound(t *testing.T) {
	table := NewCommandTable()
	if _, err := table.Remove("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateCommandName(t *testing.T) {
	valid := []string{"ping", "rules2", "faq-link"}
	for _, name := range valid {
		if err := ValidateCommandName(name); err != nil {
			t.Errorf("expected %q to be valid, got %v", name, err)
		}
	}

	invalid := []string{"", "has space", "tab\there", "new\nline"}
	for _, name := range invalid {
		if err := ValidateCommandName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}
