package models

import (
	"net/url"
	"strings"
	"time"
)

// Check schedules.
const (
	ScheduleHourly  = "hourly"
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

var scheduleIntervals = map[string]time.Duration{
	ScheduleHourly:  time.Hour,
	ScheduleDaily:   24 * time.Hour,
	ScheduleWeekly:  7 * 24 * time.Hour,
	ScheduleMonthly: 30 * 24 * time.Hour,
}

// ScheduleInterval returns the re-check interval for a schedule name.
// Unknown schedules fall back to daily.
func ScheduleInterval(schedule string) time.Duration {
	if d, ok := scheduleIntervals[schedule]; ok {
		return d
	}
	return scheduleIntervals[ScheduleDaily]
}

// ValidSchedule reports whether schedule is a known check schedule.
func ValidSchedule(schedule string) bool {
	_, ok := scheduleIntervals[schedule]
	return ok
}

// Contractor is an audited organisation identified by its web domain.
type Contractor struct {
	ID              int64      `db:"id"               json:"id"`
	Name            string     `db:"name"             json:"name"`
	Domain          string     `db:"domain"           json:"domain"`
	Description     *string    `db:"description"      json:"description"`
	IsActive        bool       `db:"is_active"        json:"is_active"`
	CheckSchedule   string     `db:"check_schedule"   json:"check_schedule"`
	LastCheck       *time.Time `db:"last_check"       json:"last_check"`
	NextCheck       *time.Time `db:"next_check"       json:"next_check"`
	MaxPages        *int       `db:"max_pages"        json:"max_pages"`
	MaxDepth        *int       `db:"max_depth"        json:"max_depth"`
	Tags            StringList `db:"tags"             json:"tags"`
	MCCCode         *string    `db:"mcc_code"         json:"mcc_code"`
	MCCProbability  float64    `db:"mcc_probability"  json:"mcc_probability"`
	TotalPages      int        `db:"total_pages"      json:"total_pages"`
	ScannedPages    int        `db:"scanned_pages"    json:"scanned_pages"`
	ViolationsFound int        `db:"violations_found" json:"violations_found"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// ContractorSummary is the compact contractor shape nested in other responses.
type ContractorSummary struct {
	ID     int64  `db:"contractor_id"     json:"id"`
	Name   string `db:"contractor_name"   json:"name"`
	Domain string `db:"contractor_domain" json:"domain"`
}

// RootURL is the crawl root for the contractor's domain.
func (c *Contractor) RootURL() string {
	return "https://" + c.Domain + "/"
}

// NormalizeDomain reduces user input such as "https://Example.com/about"
// to a bare lower-cased host ("example.com"). Ports are kept.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.Trim(strings.TrimSpace(raw), "/"))
	}
	return strings.ToLower(u.Host)
}
