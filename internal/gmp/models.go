package gmp

import "time"

// Trend tells whether a scan config selection grows with the feed.
type Trend int

const (
	TrendStatic Trend = iota
	TrendDynamic
)

func (t Trend) String() string {
	if t == TrendDynamic {
		return "dynamic"
	}
	return "static"
}

// CountTrend is a selection size plus its trend.
type CountTrend struct {
	Count int
	Trend Trend
}

// ReportResultCounts holds the number of results per severity class.
type ReportResultCounts struct {
	High          int
	Medium        int
	Low           int
	Log           int
	FalsePositive int
}

type Report struct {
	Entity
	Date    time.Time
	Status  string
	Task    string
	Results ReportResultCounts
}

func ParseReport(e Entity) Report {
	date := e.Time("date")
	if date.IsZero() {
		date = e.CreationTime
	}
	return Report{
		Entity: e,
		Date:   date,
		Status: e.Text("status"),
		Task:   e.Text("task"),
		Results: ReportResultCounts{
			High:          e.Int("high"),
			Medium:        e.Int("medium"),
			Low:           e.Int("low"),
			Log:           e.Int("log"),
			FalsePositive: e.Int("false_positive"),
		},
	}
}

type Tag struct {
	Entity
	Value         string
	Active        bool
	ResourceType  string
	ResourceCount int
}

func ParseTag(e Entity) Tag {
	return Tag{
		Entity:        e,
		Value:         e.Text("value"),
		Active:        e.Bool("active"),
		ResourceType:  e.Text("resource_type"),
		ResourceCount: e.Int("resource_count"),
	}
}

type ScanConfig struct {
	Entity
	Families CountTrend
	NVTs     CountTrend
}

func ParseScanConfig(e Entity) ScanConfig {
	return ScanConfig{
		Entity:   e,
		Families: CountTrend{Count: e.Int("family_count"), Trend: parseTrend(e, "family_trend")},
		NVTs:     CountTrend{Count: e.Int("nvt_count"), Trend: parseTrend(e, "nvt_trend")},
	}
}

func parseTrend(e Entity, key string) Trend {
	if e.Bool(key) || e.Text(key) == "dynamic" {
		return TrendDynamic
	}
	return TrendStatic
}

type OvalDef struct {
	Entity
	Version string
	Status  string
	Class   string
	File    string
	Title   string
	CVERefs int
}

func ParseOvalDef(e Entity) OvalDef {
	return OvalDef{
		Entity:  e,
		Version: e.Text("version"),
		Status:  e.Text("status"),
		Class:   e.Text("class"),
		File:    e.Text("file"),
		Title:   e.Text("title"),
		CVERefs: e.Int("cve_refs"),
	}
}

type Vuln struct {
	Entity
	Hosts        int
	Results      int
	OldestResult time.Time
	NewestResult time.Time
}

func ParseVuln(e Entity) Vuln {
	return Vuln{
		Entity:       e,
		Hosts:        e.Int("hosts"),
		Results:      e.Int("results"),
		OldestResult: e.Time("oldest_result"),
		NewestResult: e.Time("newest_result"),
	}
}

type Permission struct {
	Entity
	ResourceUUID string
	ResourceType string
	SubjectUUID  string
	SubjectType  string
}

func ParsePermission(e Entity) Permission {
	return Permission{
		Entity:       e,
		ResourceUUID: e.Text("resource_uuid"),
		ResourceType: e.Text("resource_type"),
		SubjectUUID:  e.Text("subject_uuid"),
		SubjectType:  e.Text("subject_type"),
	}
}

// DfnCertAdv is a DFN-CERT advisory. The backend reports its score as
// max_cvss; it becomes the entity severity.
type DfnCertAdv struct {
	Entity
	Title   string
	CVERefs int
}

func ParseDfnCertAdv(e Entity) DfnCertAdv {
	if score, ok := e.Float("max_cvss"); ok {
		e.Severity = &score
	}
	if e.Fields != nil {
		fields := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			if k == "max_cvss" {
				continue
			}
			fields[k] = v
		}
		e.Fields = fields
	}
	return DfnCertAdv{
		Entity:  e,
		Title:   e.Text("title"),
		CVERefs: e.Int("cve_refs"),
	}
}
