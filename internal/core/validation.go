package core

// validation.go checks mapped inputs before they are written.
//
// Rules differ per entity. Error findings keep the row out of the batch;
// warning findings are reported but the row is still persisted.

import (
	"fmt"
	"regexp"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	nationalIDMinDigits = 8
	nationalIDMaxDigits = 10
	phoneDigits         = 10
)

// ValidateRow returns every finding for one mapped row. row is the 1-based
// data row position used in reports.
func ValidateRow(in Input, row int) []ImportError {
	v := &rowValidator{row: row}
	switch in := in.(type) {
	case *PersonInput:
		v.identity(in.NationalID, in.FirstName, in.LastName)
		v.phone(in.Phone)
		v.email(in.Email, SeverityWarning)
		if key, ok := in.LeaderNationalID.Value(); ok {
			v.nationalIDFormat(FieldLeaderNationalID, key, SeverityWarning)
		}
	case *LeaderInput:
		v.identity(in.NationalID, in.FirstName, in.LastName)
		v.phone(in.Phone)
		v.email(in.Email, SeverityWarning)
	case *CandidateInput:
		v.required(FieldName, in.Name)
		v.required(FieldEmail, in.Email)
		v.email(in.Email, SeverityError)
		v.phone(in.Phone)
	case *GroupInput:
		v.required(FieldName, in.Name)
	default:
		v.add(rowError(row, "", "", fmt.Sprintf("unsupported input type %T", in)))
	}
	return v.issues
}

// HasErrors reports whether any finding has error severity.
func HasErrors(issues []ImportError) bool {
	for _, e := range issues {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

type rowValidator struct {
	row    int
	issues []ImportError
}

func (v *rowValidator) add(e ImportError) {
	v.issues = append(v.issues, e)
}

func (v *rowValidator) required(tag FieldTag, f Field[string]) bool {
	if s, ok := f.Value(); ok && s != "" {
		return true
	}
	if f.IsClear() {
		v.add(rowError(v.row, tag, ClearMarker, "required field cannot be cleared"))
		return false
	}
	v.add(rowError(v.row, tag, "", "required field is empty"))
	return false
}

func (v *rowValidator) identity(id, first, last Field[string]) {
	if v.required(FieldNationalID, id) {
		s, _ := id.Value()
		v.nationalIDFormat(FieldNationalID, s, SeverityError)
	}
	v.required(FieldFirstName, first)
	v.required(FieldLastName, last)
}

func (v *rowValidator) nationalIDFormat(tag FieldTag, s string, sev Severity) {
	d := digitsOnly(s)
	if len(d) < nationalIDMinDigits || len(d) > nationalIDMaxDigits {
		v.add(ImportError{
			Row:      v.row,
			Field:    tag,
			Value:    s,
			Message:  fmt.Sprintf("national id must have %d to %d digits", nationalIDMinDigits, nationalIDMaxDigits),
			Severity: sev,
		})
	}
}

func (v *rowValidator) phone(f Field[string]) {
	s, ok := f.Value()
	if !ok || s == "" {
		return
	}
	if !isDigits(s) || len(s) != phoneDigits || s[0] != '3' {
		v.add(rowWarning(v.row, FieldPhone, s, "phone should be a 10 digit mobile number starting with 3"))
	}
}

func (v *rowValidator) email(f Field[string], sev Severity) {
	s, ok := f.Value()
	if !ok || s == "" {
		return
	}
	if !emailPattern.MatchString(s) {
		v.add(ImportError{Row: v.row, Field: FieldEmail, Value: s, Message: "invalid email address", Severity: sev})
	}
}
