package core

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies which kind of record a batch imports.
type EntityType string

const (
	EntityPerson    EntityType = "person"
	EntityLeader    EntityType = "leader"
	EntityCandidate EntityType = "candidate"
	EntityGroup     EntityType = "group"
)

var entityAliases = map[string]EntityType{
	"person":     EntityPerson,
	"persons":    EntityPerson,
	"persona":    EntityPerson,
	"personas":   EntityPerson,
	"planillado": EntityPerson,
	"leader":     EntityLeader,
	"leaders":    EntityLeader,
	"lider":      EntityLeader,
	"lideres":    EntityLeader,
	"candidate":  EntityCandidate,
	"candidates": EntityCandidate,
	"candidato":  EntityCandidate,
	"candidatos": EntityCandidate,
	"group":      EntityGroup,
	"groups":     EntityGroup,
	"grupo":      EntityGroup,
	"grupos":     EntityGroup,
}

// ParseEntityType resolves an entity name, accepting plural and Spanish
// aliases. Unknown names return ErrUnknownEntity.
func ParseEntityType(s string) (EntityType, error) {
	key := foldKey(s)
	if e, ok := entityAliases[key]; ok {
		return e, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntity, s)
}

// Valid reports whether e is one of the four importable entities.
func (e EntityType) Valid() bool {
	switch e {
	case EntityPerson, EntityLeader, EntityCandidate, EntityGroup:
		return true
	}
	return false
}

// EntityTypes returns every importable entity in display order.
func EntityTypes() []EntityType {
	return []EntityType{EntityPerson, EntityLeader, EntityCandidate, EntityGroup}
}

// Severity classifies an ImportError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ImportError describes a problem with a single row. Row is 1-based and
// counts data rows only.
type ImportError struct {
	Row      int      `json:"row"`
	Field    FieldTag `json:"field,omitempty"`
	Value    string   `json:"value,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (e ImportError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// IsWarning reports whether the entry is advisory only.
func (e ImportError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

func rowError(row int, field FieldTag, value, msg string) ImportError {
	return ImportError{Row: row, Field: field, Value: value, Message: msg, Severity: SeverityError}
}

func rowWarning(row int, field FieldTag, value, msg string) ImportError {
	return ImportError{Row: row, Field: field, Value: value, Message: msg, Severity: SeverityWarning}
}

// ImportRow is one parsed data row keyed by source column header.
type ImportRow map[string]string

// ImportResult is the outcome of a completed batch.
type ImportResult struct {
	BatchID         string        `json:"batchId,omitempty"`
	Entity          EntityType    `json:"entityType"`
	TotalRows       int           `json:"totalRows"`
	SuccessCount    int           `json:"successCount"`
	ErrorCount      int           `json:"errorCount"`
	Inserted        int           `json:"inserted"`
	Updated         int           `json:"updated"`
	Pending         int           `json:"pending"`
	Errors          []ImportError `json:"errors"`
	Warnings        []ImportError `json:"warnings"`
	ExecutionTimeMs int64         `json:"executionTimeMs"`
	Success         bool          `json:"success"`
}

// CanvassedPerson is a voter record captured during canvassing. NationalID
// is the natural key.
type CanvassedPerson struct {
	ID             int64             `json:"id"`
	NationalID     string            `json:"nationalId"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Phone          string            `json:"phone,omitempty"`
	Email          string            `json:"email,omitempty"`
	Address        string            `json:"address,omitempty"`
	Neighborhood   string            `json:"neighborhood,omitempty"`
	Locality       string            `json:"locality,omitempty"`
	PollingStation string            `json:"pollingStation,omitempty"`
	PollingTable   int               `json:"pollingTable,omitempty"`
	Gender         string            `json:"gender,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Relationship   RelationshipState `json:"relationship"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// FullName joins first and last name.
func (p CanvassedPerson) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Leader recruits canvassed persons. NationalID is the natural key.
type Leader struct {
	ID           int64     `json:"id"`
	NationalID   string    `json:"nationalId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Address      string    `json:"address,omitempty"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	Locality     string    `json:"locality,omitempty"`
	Goal         int       `json:"goal,omitempty"`
	GroupID      *int64    `json:"groupId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Candidate runs for an office. Name is the natural key.
type Candidate struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Party      string    `json:"party,omitempty"`
	Office     string    `json:"office,omitempty"`
	ListNumber int       `json:"listNumber,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Group is a campaign team owned by a candidate. Name is unique per
// candidate.
type Group struct {
	ID          int64     `json:"id"`
	CandidateID int64     `json:"candidateId"`
	Name        string    `json:"name"`
	Zone        string    `json:"zone,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PendingCount summarizes persons waiting on one leader key.
type PendingCount struct {
	LeaderKey string `json:"leaderKey"`
	Count     int    `json:"count"`
}
