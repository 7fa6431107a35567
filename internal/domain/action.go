package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ActionKind is the kind of a planned operation
type ActionKind string

const (
	ActionSync        ActionKind = "sync"
	ActionEdit        ActionKind = "edit"
	ActionRemove      ActionKind = "remove"
	ActionAcknowledge ActionKind = "acknowledge"
	ActionUpload      ActionKind = "upload"
	ActionDownload    ActionKind = "download"
)

// IsValid checks if the action kind is a known value
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionSync, ActionEdit, ActionRemove, ActionAcknowledge, ActionUpload, ActionDownload:
		return true
	}
	return false
}

// Params is the typed annotation record attached to an action by optimizer passes
type Params[V Version] struct {
	// NestedRemoves holds descendant removes subsumed by this remove, verbatim
	NestedRemoves []Action[V]

	// SourceVersion is the existing server version to copy content from
	SourceVersion *V

	// SourceFolder is the folder holding SourceVersion ("" = folder being synced)
	SourceFolder string

	// Inline is the embedded payload of a metadata download (valid when HasInline)
	Inline    []byte
	HasInline bool

	// NoPayload marks a transfer that has nothing to transmit (empty content)
	NoPayload bool
}

// Action is one planned operation on a version
type Action[V Version] struct {
	// ID identifies the action for the whole optimization cycle
	ID uuid.UUID

	Kind ActionKind

	// Version is the "from" version (nil for creations)
	Version *V

	// NewVersion is the "to" version (nil for removals)
	NewVersion *V

	// Comparison that triggered the action (nil for synthesized actions)
	Comparison *Comparison[V]

	Params Params[V]

	// DependsOn is the ID of an action that must be applied first (uuid.Nil = none)
	DependsOn uuid.UUID
}

// NewAction creates an action with a fresh ID
func NewAction[V Version](kind ActionKind, version, newVersion *V, cmp *Comparison[V]) Action[V] {
	return Action[V]{
		ID:         uuid.New(),
		Kind:       kind,
		Version:    version,
		NewVersion: newVersion,
		Comparison: cmp,
	}
}

// WasCausedBy reports whether the action was generated for the given pair of changes
func (a Action[V]) WasCausedBy(client, server Change) bool {
	if a.Comparison == nil {
		return false
	}
	return a.Comparison.ClientChange() == client && a.Comparison.ServerChange() == server
}

// Target returns NewVersion when set, otherwise Version
func (a Action[V]) Target() *V {
	if a.NewVersion != nil {
		return a.NewVersion
	}
	return a.Version
}

// Key returns the identity of the action's target ("" if it has no version)
func (a Action[V]) Key() string {
	if t := a.Target(); t != nil {
		return (*t).Key()
	}
	return ""
}

// IsServerCopy reports whether the action is a download served from an existing server version
func (a Action[V]) IsServerCopy() bool {
	return a.Kind == ActionDownload && a.Params.SourceVersion != nil
}

// HasDependency reports whether the action waits on another action
func (a Action[V]) HasDependency() bool {
	return a.DependsOn != uuid.Nil
}

// Clone returns a copy that shares no slices or version pointers with a
func (a Action[V]) Clone() Action[V] {
	c := a
	c.Version = clonePtr(a.Version)
	c.NewVersion = clonePtr(a.NewVersion)
	c.Params.SourceVersion = clonePtr(a.Params.SourceVersion)
	if a.Params.NestedRemoves != nil {
		c.Params.NestedRemoves = make([]Action[V], len(a.Params.NestedRemoves))
		for i, n := range a.Params.NestedRemoves {
			c.Params.NestedRemoves[i] = n.Clone()
		}
	}
	if a.Params.Inline != nil {
		c.Params.Inline = append([]byte(nil), a.Params.Inline...)
	}
	return c
}

// String renders the action for logs, e.g. "edit(/old|h1 -> /new|h1)"
func (a Action[V]) String() string {
	return fmt.Sprintf("%s(%s -> %s)", a.Kind, versionString(a.Version), versionString(a.NewVersion))
}

func versionString[V Version](v *V) string {
	if v == nil {
		return "null"
	}
	return (*v).Key() + "|" + (*v).Sum()
}

func clonePtr[V Version](v *V) *V {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
