package gmp

import (
	"sort"
	"strings"
)

// CapabilityEverything grants every command.
const CapabilityEverything = "everything"

// Capabilities is the set of backend commands the current user may run.
type Capabilities struct {
	commands map[string]struct{}
}

func NewCapabilities(commands []string) Capabilities {
	set := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	return Capabilities{commands: set}
}

// Has reports whether command is allowed.
func (c Capabilities) Has(command string) bool {
	if len(c.commands) == 0 {
		return false
	}
	if _, ok := c.commands[CapabilityEverything]; ok {
		return true
	}
	_, ok := c.commands[strings.ToLower(strings.TrimSpace(command))]
	return ok
}

// Commands returns the granted commands in sorted order.
func (c Capabilities) Commands() []string {
	out := make([]string, 0, len(c.commands))
	for cmd := range c.commands {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

func (c Capabilities) MayAccess(entityType string) bool {
	name := commandName(entityType)
	if name == "info" {
		return c.Has("get_info")
	}
	return c.Has("get_" + name + "s")
}

func (c Capabilities) MayCreate(entityType string) bool {
	return c.Has("create_" + commandName(entityType))
}

// MayClone is backed by the create command: a clone is a create from an
// existing entity.
func (c Capabilities) MayClone(entityType string) bool {
	return c.MayCreate(entityType)
}

func (c Capabilities) MayDelete(entityType string) bool {
	return c.Has("delete_" + commandName(entityType))
}

func (c Capabilities) MayEdit(entityType string) bool {
	return c.Has("modify_" + commandName(entityType))
}

// commandName maps console entity types onto the backend's command nouns.
func commandName(entityType string) string {
	switch NormalizeType(entityType) {
	case TypeScanConfig:
		return "config"
	case TypeOvalDef, TypeDfnCertAdv:
		return "info"
	default:
		return NormalizeType(entityType)
	}
}

// UserMayDelete checks the per-entity permission set for the delete command
// of the entity's type.
func (e Entity) UserMayDelete() bool {
	return e.UserCan("delete_" + commandName(e.EntityType))
}

func (e Entity) UserMayEdit() bool {
	return e.UserCan("modify_" + commandName(e.EntityType))
}
