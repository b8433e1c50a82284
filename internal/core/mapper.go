package core

import (
	"fmt"
	"strings"
)

// SuggestMapping proposes a target field for each header by matching its
// folded text against the entity's ordered synonym list. The first synonym
// contained in a header wins, each field is assigned at most once (leftmost
// header first) and headers that match nothing are left out. Leader
// attribute columns on a person sheet, like "Nombre del lider", are left
// out too.
func SuggestMapping(headers []string, entity EntityType) FieldMapping {
	spec, ok := entitySpecs[entity]
	if !ok {
		return FieldMapping{}
	}

	mapping := make(FieldMapping)
	taken := make(map[FieldTag]bool)
	for _, h := range headers {
		folded := foldKey(h)
		if folded == "" {
			continue
		}
		tokens := strings.Fields(folded)
		for _, syn := range spec.Synonyms {
			if !synonymMatches(folded, tokens, syn.Text) {
				continue
			}
			if syn.Tag != ignoreHeader && !taken[syn.Tag] {
				mapping[h] = syn.Tag
				taken[syn.Tag] = true
			}
			break
		}
	}
	return mapping
}

func synonymMatches(folded string, tokens []string, syn string) bool {
	if len(syn) > 3 {
		return strings.Contains(folded, syn)
	}
	for _, t := range tokens {
		if t == syn {
			return true
		}
	}
	return false
}

// ClearMarker is the cell value that clears a stored attribute. A blank
// cell leaves the attribute unchanged.
const ClearMarker = "#BORRAR"

func isClearMarker(v string) bool {
	return strings.EqualFold(v, ClearMarker)
}

type setter[I any] func(in *I, v string)

func textField[I any](kind FieldKind, ref func(*I) *Field[string]) setter[I] {
	return func(in *I, v string) {
		if isClearMarker(v) {
			*ref(in) = Clear[string]()
			return
		}
		*ref(in) = Set(normalizeValue(kind, v))
	}
}

func intField[I any](ref func(*I) *Field[int]) setter[I] {
	return func(in *I, v string) {
		if isClearMarker(v) {
			*ref(in) = Clear[int]()
			return
		}
		*ref(in) = Set(parseIntOrZero(v))
	}
}

// enumField leaves the attribute untouched when v is not an allowed literal.
func enumField[I any](allowed []string, ref func(*I) *Field[string]) setter[I] {
	return func(in *I, v string) {
		if isClearMarker(v) {
			*ref(in) = Clear[string]()
			return
		}
		if lit, ok := matchEnum(v, allowed); ok {
			*ref(in) = Set(lit)
		}
	}
}

var personSetters = map[FieldTag]setter[PersonInput]{
	FieldNationalID:       textField(KindNationalID, func(in *PersonInput) *Field[string] { return &in.NationalID }),
	FieldFirstName:        textField(KindName, func(in *PersonInput) *Field[string] { return &in.FirstName }),
	FieldLastName:         textField(KindName, func(in *PersonInput) *Field[string] { return &in.LastName }),
	FieldPhone:            textField(KindPhone, func(in *PersonInput) *Field[string] { return &in.Phone }),
	FieldEmail:            textField(KindEmail, func(in *PersonInput) *Field[string] { return &in.Email }),
	FieldAddress:          textField(KindText, func(in *PersonInput) *Field[string] { return &in.Address }),
	FieldNeighborhood:     textField(KindUpper, func(in *PersonInput) *Field[string] { return &in.Neighborhood }),
	FieldLocality:         textField(KindUpper, func(in *PersonInput) *Field[string] { return &in.Locality }),
	FieldPollingStation:   textField(KindUpper, func(in *PersonInput) *Field[string] { return &in.PollingStation }),
	FieldPollingTable:     intField(func(in *PersonInput) *Field[int] { return &in.PollingTable }),
	FieldGender:           enumField(GenderValues, func(in *PersonInput) *Field[string] { return &in.Gender }),
	FieldNotes:            textField(KindText, func(in *PersonInput) *Field[string] { return &in.Notes }),
	FieldLeaderNationalID: textField(KindNationalID, func(in *PersonInput) *Field[string] { return &in.LeaderNationalID }),
}

var leaderSetters = map[FieldTag]setter[LeaderInput]{
	FieldNationalID:   textField(KindNationalID, func(in *LeaderInput) *Field[string] { return &in.NationalID }),
	FieldFirstName:    textField(KindName, func(in *LeaderInput) *Field[string] { return &in.FirstName }),
	FieldLastName:     textField(KindName, func(in *LeaderInput) *Field[string] { return &in.LastName }),
	FieldPhone:        textField(KindPhone, func(in *LeaderInput) *Field[string] { return &in.Phone }),
	FieldEmail:        textField(KindEmail, func(in *LeaderInput) *Field[string] { return &in.Email }),
	FieldAddress:      textField(KindText, func(in *LeaderInput) *Field[string] { return &in.Address }),
	FieldNeighborhood: textField(KindUpper, func(in *LeaderInput) *Field[string] { return &in.Neighborhood }),
	FieldLocality:     textField(KindUpper, func(in *LeaderInput) *Field[string] { return &in.Locality }),
	FieldGoal:         intField(func(in *LeaderInput) *Field[int] { return &in.Goal }),
	FieldGroupName:    textField(KindName, func(in *LeaderInput) *Field[string] { return &in.GroupName }),
}

var candidateSetters = map[FieldTag]setter[CandidateInput]{
	FieldName:       textField(KindName, func(in *CandidateInput) *Field[string] { return &in.Name }),
	FieldEmail:      textField(KindEmail, func(in *CandidateInput) *Field[string] { return &in.Email }),
	FieldPhone:      textField(KindPhone, func(in *CandidateInput) *Field[string] { return &in.Phone }),
	FieldParty:      textField(KindText, func(in *CandidateInput) *Field[string] { return &in.Party }),
	FieldOffice:     enumField(OfficeValues, func(in *CandidateInput) *Field[string] { return &in.Office }),
	FieldListNumber: intField(func(in *CandidateInput) *Field[int] { return &in.ListNumber }),
}

var groupSetters = map[FieldTag]setter[GroupInput]{
	FieldName:          textField(KindName, func(in *GroupInput) *Field[string] { return &in.Name }),
	FieldCandidateName: textField(KindName, func(in *GroupInput) *Field[string] { return &in.CandidateName }),
	FieldZone:          textField(KindUpper, func(in *GroupInput) *Field[string] { return &in.Zone }),
	FieldDescription:   textField(KindText, func(in *GroupInput) *Field[string] { return &in.Description }),
}

// ApplyMapping converts one raw row into the entity's typed input. Blank
// and unmapped cells leave their attribute as NoChange; a ClearMarker cell
// becomes Clear.
func ApplyMapping(row ImportRow, mapping FieldMapping, entity EntityType) (Input, error) {
	if err := mapping.Validate(entity); err != nil {
		return nil, err
	}
	return applyMapping(row, mapping, entity)
}

// applyMapping skips validation; callers processing many rows validate the
// mapping once up front.
func applyMapping(row ImportRow, mapping FieldMapping, entity EntityType) (Input, error) {
	switch entity {
	case EntityPerson:
		in := &PersonInput{}
		applyWith(row, mapping, personSetters, in)
		return in, nil
	case EntityLeader:
		in := &LeaderInput{}
		applyWith(row, mapping, leaderSetters, in)
		return in, nil
	case EntityCandidate:
		in := &CandidateInput{}
		applyWith(row, mapping, candidateSetters, in)
		return in, nil
	case EntityGroup:
		in := &GroupInput{}
		applyWith(row, mapping, groupSetters, in)
		return in, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
}

func applyWith[I any](row ImportRow, mapping FieldMapping, setters map[FieldTag]setter[I], in *I) {
	for col, tag := range mapping {
		raw, ok := row[col]
		if !ok {
			continue
		}
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if set, ok := setters[tag]; ok {
			set(in, v)
		}
	}
}
