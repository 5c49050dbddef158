// Package request defines the stable, transport-independent view of an
// inbound command request.
package request

import (
	"fmt"
	"slices"
)

// Field names of a View addressable by metadata constraints.
const (
	FieldMember    = "member"
	FieldWorkspace = "workspace"
	FieldTarget    = "target"
)

// OptionKind declares how an option value is interpreted.
type OptionKind string

// Supported option kinds.
const (
	KindString  OptionKind = "STRING"
	KindInteger OptionKind = "INTEGER"
	KindNumber  OptionKind = "NUMBER"
	KindBoolean OptionKind = "BOOLEAN"
	KindUser    OptionKind = "USER"
	KindRole    OptionKind = "ROLE"
	KindChannel OptionKind = "CHANNEL"
)

// IsReference reports whether the kind identifies another entity rather than
// carrying a scalar value.
func (k OptionKind) IsReference() bool {
	switch k {
	case KindUser, KindRole, KindChannel:
		return true
	case KindString, KindInteger, KindNumber, KindBoolean:
		return false
	default:
		return false
	}
}

// Valid reports whether the kind is one of the supported kinds.
func (k OptionKind) Valid() bool {
	switch k {
	case KindString, KindInteger, KindNumber, KindBoolean, KindUser, KindRole, KindChannel:
		return true
	default:
		return false
	}
}

// Reference points at a user, role or channel.
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Option is a named value supplied by the requester.
type Option struct {
	Name  string     `json:"name"`
	Kind  OptionKind `json:"kind"`
	Value any        `json:"value"`
}

// Comparable returns the value constraints are checked against: the referenced
// id for reference kinds, the raw value otherwise.
func (o Option) Comparable() any {
	if !o.Kind.IsReference() {
		return o.Value
	}
	switch v := o.Value.(type) {
	case Reference:
		return v.ID
	case *Reference:
		if v == nil {
			return ""
		}
		return v.ID
	case map[string]any:
		id, _ := v["id"].(string)
		return id
	default:
		return fmt.Sprint(v)
	}
}

// String returns the value as text, or "" when it is not a string.
func (o Option) String() string {
	s, _ := o.Value.(string)
	return s
}

// Int returns the value as an integer. JSON numbers arrive as float64.
func (o Option) Int() (int, bool) {
	switch v := o.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// Member identifies the requester and what they are allowed to do.
type Member struct {
	ID          string   `json:"id"`
	Username    string   `json:"username,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Can reports whether the member holds permission.
func (m Member) Can(permission string) bool {
	return slices.Contains(m.Permissions, permission)
}

// View is the reduced request every command pipeline consumes. It is built once
// by the transport adapter and never mutated afterwards.
type View struct {
	Command         string   `json:"command"`
	Sender          Member   `json:"sender"`
	WorkspaceID     string   `json:"workspace_id"`
	Options         []Option `json:"options,omitempty"`
	TargetMessageID string   `json:"target_message_id,omitempty"`
}

// Option returns the option supplied under name, or nil when it was omitted.
func (v View) Option(name string) *Option {
	for i := range v.Options {
		if v.Options[i].Name == name {
			return &v.Options[i]
		}
	}
	return nil
}

// Field returns the value of a named metadata field.
func (v View) Field(name string) (any, bool) {
	switch name {
	case FieldMember:
		return v.Sender, true
	case FieldWorkspace:
		return v.WorkspaceID, true
	case FieldTarget:
		return v.TargetMessageID, true
	default:
		return nil, false
	}
}
