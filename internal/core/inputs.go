package core

// Input is a typed, normalized row ready for validation and upsert.
type Input interface {
	Entity() EntityType
	// NaturalKey identifies the target record; empty when the row lacks it.
	NaturalKey() string
}

// PersonInput is one mapped row of a person sheet. LeaderNationalID is a
// soft reference: the coordinator turns it into an assignment, a pending
// marker, or a warning, depending on what the leader table holds.
type PersonInput struct {
	NationalID       Field[string]
	FirstName        Field[string]
	LastName         Field[string]
	Phone            Field[string]
	Email            Field[string]
	Address          Field[string]
	Neighborhood     Field[string]
	Locality         Field[string]
	PollingStation   Field[string]
	PollingTable     Field[int]
	Gender           Field[string]
	Notes            Field[string]
	LeaderNationalID Field[string]
}

func (*PersonInput) Entity() EntityType    { return EntityPerson }
func (in *PersonInput) NaturalKey() string { return in.NationalID.Or("") }

// applyTo merges the set attributes into p. Relationship is handled by the
// coordinator.
func (in *PersonInput) applyTo(p *CanvassedPerson) {
	in.NationalID.ApplyTo(&p.NationalID)
	in.FirstName.ApplyTo(&p.FirstName)
	in.LastName.ApplyTo(&p.LastName)
	in.Phone.ApplyTo(&p.Phone)
	in.Email.ApplyTo(&p.Email)
	in.Address.ApplyTo(&p.Address)
	in.Neighborhood.ApplyTo(&p.Neighborhood)
	in.Locality.ApplyTo(&p.Locality)
	in.PollingStation.ApplyTo(&p.PollingStation)
	in.PollingTable.ApplyTo(&p.PollingTable)
	in.Gender.ApplyTo(&p.Gender)
	in.Notes.ApplyTo(&p.Notes)
}

// LeaderInput is one mapped leader row. GroupName is looked up across all
// candidates when the row is written.
type LeaderInput struct {
	NationalID   Field[string]
	FirstName    Field[string]
	LastName     Field[string]
	Phone        Field[string]
	Email        Field[string]
	Address      Field[string]
	Neighborhood Field[string]
	Locality     Field[string]
	Goal         Field[int]
	GroupName    Field[string]
}

func (*LeaderInput) Entity() EntityType    { return EntityLeader }
func (in *LeaderInput) NaturalKey() string { return in.NationalID.Or("") }

func (in *LeaderInput) applyTo(l *Leader) {
	in.NationalID.ApplyTo(&l.NationalID)
	in.FirstName.ApplyTo(&l.FirstName)
	in.LastName.ApplyTo(&l.LastName)
	in.Phone.ApplyTo(&l.Phone)
	in.Email.ApplyTo(&l.Email)
	in.Address.ApplyTo(&l.Address)
	in.Neighborhood.ApplyTo(&l.Neighborhood)
	in.Locality.ApplyTo(&l.Locality)
	in.Goal.ApplyTo(&l.Goal)
}

// CandidateInput is one mapped candidate row, keyed by name.
type CandidateInput struct {
	Name       Field[string]
	Email      Field[string]
	Phone      Field[string]
	Party      Field[string]
	Office     Field[string]
	ListNumber Field[int]
}

func (*CandidateInput) Entity() EntityType    { return EntityCandidate }
func (in *CandidateInput) NaturalKey() string { return in.Name.Or("") }

func (in *CandidateInput) applyTo(c *Candidate) {
	in.Name.ApplyTo(&c.Name)
	in.Email.ApplyTo(&c.Email)
	in.Phone.ApplyTo(&c.Phone)
	in.Party.ApplyTo(&c.Party)
	in.Office.ApplyTo(&c.Office)
	in.ListNumber.ApplyTo(&c.ListNumber)
}

// GroupInput is one mapped group row. CandidateName must name an existing
// candidate or the row is rejected.
type GroupInput struct {
	Name          Field[string]
	CandidateName Field[string]
	Zone          Field[string]
	Description   Field[string]
}

func (*GroupInput) Entity() EntityType { return EntityGroup }

// NaturalKey combines candidate and group name since group names are only
// unique per candidate.
func (in *GroupInput) NaturalKey() string {
	name := in.Name.Or("")
	if name == "" {
		return ""
	}
	return in.CandidateName.Or("") + "/" + name
}

func (in *GroupInput) applyTo(g *Group) {
	in.Name.ApplyTo(&g.Name)
	in.Zone.ApplyTo(&g.Zone)
	in.Description.ApplyTo(&g.Description)
}
