// Package gmp is the command/query layer between the console and the
// vulnerability-management backend: entity records, collections with
// pagination counts, filters, capabilities, and a read cache whose
// provenance flags drive the refresh logic of the views.
package gmp

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Entity types known to the console.
const (
	TypeReport     = "report"
	TypeTag        = "tag"
	TypeScanConfig = "scanconfig"
	TypeOvalDef    = "ovaldef"
	TypeVuln       = "vuln"
	TypePermission = "permission"
	TypeDfnCertAdv = "dfn_cert_adv"
)

var knownTypes = []string{
	TypeReport,
	TypeTag,
	TypeScanConfig,
	TypeOvalDef,
	TypeVuln,
	TypePermission,
	TypeDfnCertAdv,
}

// KnownTypes returns every entity type the console can address.
func KnownTypes() []string {
	out := make([]string, len(knownTypes))
	copy(out, knownTypes)
	return out
}

// IsKnownType reports whether entityType is one of KnownTypes.
func IsKnownType(entityType string) bool {
	entityType = NormalizeType(entityType)
	for _, t := range knownTypes {
		if t == entityType {
			return true
		}
	}
	return false
}

// NormalizeType lowercases entityType and resolves the short aliases used in
// URLs and on the command line.
func NormalizeType(entityType string) string {
	entityType = strings.ToLower(strings.TrimSpace(entityType))
	switch entityType {
	case "reports":
		return TypeReport
	case "tags":
		return TypeTag
	case "config", "configs", "scanconfigs", "scan_config":
		return TypeScanConfig
	case "ovaldefs", "oval", "oval_def":
		return TypeOvalDef
	case "vulns", "vulnerability", "vulnerabilities":
		return TypeVuln
	case "permissions":
		return TypePermission
	case "dfncert", "dfn_cert_advs", "dfncertadv":
		return TypeDfnCertAdv
	default:
		return entityType
	}
}

// Entity is an immutable snapshot of one backend record.
type Entity struct {
	ID               string         `json:"id" yaml:"id"`
	EntityType       string         `json:"entity_type" yaml:"type"`
	Name             string         `json:"name" yaml:"name"`
	Comment          string         `json:"comment,omitempty" yaml:"comment"`
	Owner            string         `json:"owner,omitempty" yaml:"owner"`
	Severity         *float64       `json:"severity,omitempty" yaml:"severity"`
	CreationTime     time.Time      `json:"creation_time" yaml:"creation_time"`
	ModificationTime time.Time      `json:"modification_time" yaml:"modification_time"`
	Fields           map[string]any `json:"fields,omitempty" yaml:"fields"`
	UserCapabilities []string       `json:"user_capabilities,omitempty" yaml:"user_capabilities"`
}

func (e Entity) EntityID() string {
	return e.ID
}

// UserCan reports whether the per-entity permission set allows command.
func (e Entity) UserCan(command string) bool {
	command = strings.ToLower(strings.TrimSpace(command))
	for _, c := range e.UserCapabilities {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == command || c == CapabilityEverything {
			return true
		}
	}
	return false
}

func (e Entity) Field(key string) (any, bool) {
	if e.Fields == nil {
		return nil, false
	}
	v, ok := e.Fields[key]
	return v, ok
}

func (e Entity) Text(key string) string {
	v, ok := e.Field(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func (e Entity) Float(key string) (float64, bool) {
	v, ok := e.Field(key)
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (e Entity) Int(key string) int {
	f, ok := e.Float(key)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func (e Entity) Bool(key string) bool {
	v, ok := e.Field(key)
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes":
			return true
		}
		return false
	default:
		f, ok := e.Float(key)
		return ok && f != 0
	}
}

func (e Entity) Time(key string) time.Time {
	v, ok := e.Field(key)
	if !ok || v == nil {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(t))
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}

// Counts carries the pagination metadata of a collection. First is the
// 1-based index of the first entity in the page.
type Counts struct {
	All      int `json:"all"`
	Filtered int `json:"filtered"`
	First    int `json:"first"`
	Rows     int `json:"rows"`
	Length   int `json:"length"`
}

// Last is the 1-based index of the last entity in the page, 0 when empty.
func (c Counts) Last() int {
	if c.Length <= 0 {
		return 0
	}
	return c.First + c.Length - 1
}

func (c Counts) IsFirst() bool {
	return c.First <= 1
}

func (c Counts) IsLast() bool {
	return c.Last() >= c.Filtered
}

func (c Counts) HasPrevious() bool {
	return !c.IsFirst()
}

func (c Counts) HasNext() bool {
	return !c.IsLast()
}

// Pages returns the number of pages needed to show every filtered entity.
func (c Counts) Pages() int {
	if c.Rows <= 0 || c.Filtered <= 0 {
		return 1
	}
	return (c.Filtered + c.Rows - 1) / c.Rows
}

// Meta records where a response came from.
type Meta struct {
	FromCache bool `json:"from_cache"`
	Dirty     bool `json:"dirty"`
}

// Stale reports a cached response that is known to be outdated.
func (m Meta) Stale() bool {
	return m.FromCache && m.Dirty
}

// Collection is an ordered page of entities plus its counts.
type Collection struct {
	Entities []Entity
	Counts   Counts
	Filter   *Filter
	Meta     Meta
}

// IDs returns the ids of the entities in page order.
func (c Collection) IDs() []string {
	ids := make([]string, 0, len(c.Entities))
	for _, e := range c.Entities {
		ids = append(ids, e.ID)
	}
	return ids
}

// Response is the result of a single-entity read.
type Response struct {
	Data Entity
	Meta Meta
}
