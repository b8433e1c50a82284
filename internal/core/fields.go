package core

import (
	"fmt"
	"sort"
	"strings"
)

// FieldTag names a target attribute a source column can be mapped to.
type FieldTag string

const (
	FieldNationalID       FieldTag = "national_id"
	FieldFirstName        FieldTag = "first_name"
	FieldLastName         FieldTag = "last_name"
	FieldPhone            FieldTag = "phone"
	FieldEmail            FieldTag = "email"
	FieldAddress          FieldTag = "address"
	FieldNeighborhood     FieldTag = "neighborhood"
	FieldLocality         FieldTag = "locality"
	FieldPollingStation   FieldTag = "polling_station"
	FieldPollingTable     FieldTag = "polling_table"
	FieldGender           FieldTag = "gender"
	FieldNotes            FieldTag = "notes"
	FieldLeaderNationalID FieldTag = "leader_national_id"
	FieldGoal             FieldTag = "goal"
	FieldGroupName        FieldTag = "group_name"
	FieldName             FieldTag = "name"
	FieldParty            FieldTag = "party"
	FieldOffice           FieldTag = "office"
	FieldListNumber       FieldTag = "list_number"
	FieldZone             FieldTag = "zone"
	FieldDescription      FieldTag = "description"
	FieldCandidateName    FieldTag = "candidate_name"
)

// FieldKind selects the normalizer applied to a mapped value.
type FieldKind int

const (
	KindText FieldKind = iota
	KindName
	KindUpper
	KindNationalID
	KindPhone
	KindEmail
	KindInt
	KindEnum
)

// FieldSpec describes one importable attribute of an entity.
type FieldSpec struct {
	Tag        FieldTag  `json:"tag"`
	Label      string    `json:"label"`
	Kind       FieldKind `json:"-"`
	Required   bool      `json:"required"`
	EnumValues []string  `json:"enumValues,omitempty"`
}

// Synonym maps a folded header fragment to a field. Fragments of three
// characters or fewer only match a whole header token, so "cc" does not
// match inside "direccion". A synonym tagged ignoreHeader claims the header
// without mapping it.
type Synonym struct {
	Text string
	Tag  FieldTag
}

// ignoreHeader marks headers that look like a field but describe something
// else, such as the leader's name on a person sheet.
const ignoreHeader FieldTag = ""

// EntitySpec is everything the engine needs to map and validate rows of
// one entity.
type EntitySpec struct {
	Entity   EntityType
	Label    string
	Fields   []FieldSpec
	Synonyms []Synonym
}

// Field returns the spec for tag.
func (s EntitySpec) Field(tag FieldTag) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return FieldSpec{}, false
}

var (
	GenderValues = []string{"M", "F", "O"}
	OfficeValues = []string{"Concejo", "Asamblea", "Alcaldia", "Gobernacion", "Senado", "Camara"}
)

var entitySpecs = make(map[EntityType]EntitySpec)

func register(spec EntitySpec) {
	if _, exists := entitySpecs[spec.Entity]; exists {
		panic(fmt.Sprintf("entity already registered: %s", spec.Entity))
	}
	for i, syn := range spec.Synonyms {
		spec.Synonyms[i].Text = foldKey(syn.Text)
		if syn.Tag == ignoreHeader {
			continue
		}
		if _, ok := spec.Field(syn.Tag); !ok {
			panic(fmt.Sprintf("synonym %q targets unknown field %s for %s", syn.Text, syn.Tag, spec.Entity))
		}
	}
	entitySpecs[spec.Entity] = spec
}

// SpecFor returns the registered spec for an entity.
func SpecFor(entity EntityType) (EntitySpec, bool) {
	spec, ok := entitySpecs[entity]
	return spec, ok
}

// AvailableFields lists the tags a column may be mapped to for entity.
func AvailableFields(entity EntityType) []FieldSpec {
	spec, ok := entitySpecs[entity]
	if !ok {
		return nil
	}
	out := make([]FieldSpec, len(spec.Fields))
	copy(out, spec.Fields)
	return out
}

// FieldMapping maps source column headers to target fields. A column may
// be absent from the mapping, in which case it is ignored.
type FieldMapping map[string]FieldTag

// Validate rejects tags that do not belong to entity and tags used by more
// than one column.
func (m FieldMapping) Validate(entity EntityType) error {
	spec, ok := entitySpecs[entity]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}

	var problems []string
	owner := make(map[FieldTag]string, len(m))
	for _, col := range m.Columns() {
		tag := m[col]
		if _, ok := spec.Field(tag); !ok {
			problems = append(problems, fmt.Sprintf("column %q: %q is not a %s field", col, tag, entity))
			continue
		}
		if prev, dup := owner[tag]; dup {
			problems = append(problems, fmt.Sprintf("columns %q and %q both map to %s", prev, col, tag))
			continue
		}
		owner[tag] = col
	}

	if len(problems) > 0 {
		return &MappingError{Entity: entity, Problems: problems}
	}
	return nil
}

// Columns returns the mapped headers in sorted order.
func (m FieldMapping) Columns() []string {
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Tags returns the set of mapped tags.
func (m FieldMapping) Tags() map[FieldTag]bool {
	out := make(map[FieldTag]bool, len(m))
	for _, t := range m {
		out[t] = true
	}
	return out
}

// MappingError lists everything wrong with a mapping at once.
type MappingError struct {
	Entity   EntityType
	Problems []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("invalid %s mapping: %s", e.Entity, strings.Join(e.Problems, "; "))
}

func (e *MappingError) Unwrap() error { return ErrInvalidMapping }

func init() {
	identity := []FieldSpec{
		{Tag: FieldNationalID, Label: "Cedula", Kind: KindNationalID, Required: true},
		{Tag: FieldFirstName, Label: "Nombres", Kind: KindName, Required: true},
		{Tag: FieldLastName, Label: "Apellidos", Kind: KindName, Required: true},
		{Tag: FieldPhone, Label: "Telefono", Kind: KindPhone},
		{Tag: FieldEmail, Label: "Correo", Kind: KindEmail},
		{Tag: FieldAddress, Label: "Direccion", Kind: KindText},
		{Tag: FieldNeighborhood, Label: "Barrio", Kind: KindUpper},
		{Tag: FieldLocality, Label: "Localidad", Kind: KindUpper},
	}

	// Order matters: the first fragment contained in a header wins.
	identitySynonyms := []Synonym{
		{"direccion", FieldAddress},
		{"domicilio", FieldAddress},
		{"address", FieldAddress},
		{"barrio", FieldNeighborhood},
		{"vereda", FieldNeighborhood},
		{"neighborhood", FieldNeighborhood},
		{"localidad", FieldLocality},
		{"comuna", FieldLocality},
		{"municipio", FieldLocality},
		{"ciudad", FieldLocality},
		{"locality", FieldLocality},
		{"city", FieldLocality},
		{"apellido", FieldLastName},
		{"last name", FieldLastName},
		{"lastname", FieldLastName},
		{"surname", FieldLastName},
		{"nombre", FieldFirstName},
		{"first name", FieldFirstName},
		{"firstname", FieldFirstName},
		{"cedula", FieldNationalID},
		{"documento", FieldNationalID},
		{"identificacion", FieldNationalID},
		{"national id", FieldNationalID},
		{"cc", FieldNationalID},
		{"dni", FieldNationalID},
		{"id", FieldNationalID},
		{"telefono", FieldPhone},
		{"celular", FieldPhone},
		{"movil", FieldPhone},
		{"phone", FieldPhone},
		{"mobile", FieldPhone},
		{"tel", FieldPhone},
		{"correo", FieldEmail},
		{"email", FieldEmail},
		{"e-mail", FieldEmail},
		{"mail", FieldEmail},
		{"name", FieldFirstName},
	}

	person := append([]FieldSpec{}, identity...)
	person = append(person,
		FieldSpec{Tag: FieldPollingStation, Label: "Puesto de votacion", Kind: KindUpper},
		FieldSpec{Tag: FieldPollingTable, Label: "Mesa", Kind: KindInt},
		FieldSpec{Tag: FieldGender, Label: "Genero", Kind: KindEnum, EnumValues: GenderValues},
		FieldSpec{Tag: FieldNotes, Label: "Observaciones", Kind: KindText},
		FieldSpec{Tag: FieldLeaderNationalID, Label: "Cedula del lider", Kind: KindNationalID},
	)
	personSynonyms := []Synonym{
		{"cedula lider", FieldLeaderNationalID},
		{"cedula del lider", FieldLeaderNationalID},
		{"cc lider", FieldLeaderNationalID},
		{"cc del lider", FieldLeaderNationalID},
		{"documento lider", FieldLeaderNationalID},
		{"documento del lider", FieldLeaderNationalID},
		{"identificacion del lider", FieldLeaderNationalID},
		{"id lider", FieldLeaderNationalID},
		{"id del lider", FieldLeaderNationalID},
		{"leader id", FieldLeaderNationalID},
		{"leader national id", FieldLeaderNationalID},
	}
	// Other columns about the leader must not become the leader key.
	for _, attr := range []string{"nombre", "apellido", "telefono", "celular", "correo", "direccion"} {
		personSynonyms = append(personSynonyms,
			Synonym{attr + " del lider", ignoreHeader},
			Synonym{attr + "s del lider", ignoreHeader},
			Synonym{attr + " lider", ignoreHeader},
			Synonym{attr + "s lider", ignoreHeader},
		)
	}
	personSynonyms = append(personSynonyms,
		Synonym{"leader name", ignoreHeader},
		Synonym{"leader phone", ignoreHeader},
		Synonym{"leader email", ignoreHeader},
		Synonym{"lider", FieldLeaderNationalID},
		Synonym{"leader", FieldLeaderNationalID},
	)
	personSynonyms = append(personSynonyms, []Synonym{
		{"puesto", FieldPollingStation},
		{"polling station", FieldPollingStation},
		{"mesa", FieldPollingTable},
		{"polling table", FieldPollingTable},
		{"genero", FieldGender},
		{"sexo", FieldGender},
		{"gender", FieldGender},
		{"observacion", FieldNotes},
		{"nota", FieldNotes},
		{"comentario", FieldNotes},
		{"notes", FieldNotes},
	}...)
	register(EntitySpec{
		Entity:   EntityPerson,
		Label:    "Planillados",
		Fields:   person,
		Synonyms: append(personSynonyms, identitySynonyms...),
	})

	leader := append([]FieldSpec{}, identity...)
	leader = append(leader,
		FieldSpec{Tag: FieldGoal, Label: "Meta", Kind: KindInt},
		FieldSpec{Tag: FieldGroupName, Label: "Grupo", Kind: KindName},
	)
	leaderSynonyms := []Synonym{
		{"meta", FieldGoal},
		{"objetivo", FieldGoal},
		{"goal", FieldGoal},
		{"grupo", FieldGroupName},
		{"equipo", FieldGroupName},
		{"group", FieldGroupName},
	}
	register(EntitySpec{
		Entity:   EntityLeader,
		Label:    "Lideres",
		Fields:   leader,
		Synonyms: append(leaderSynonyms, identitySynonyms...),
	})

	register(EntitySpec{
		Entity: EntityCandidate,
		Label:  "Candidatos",
		Fields: []FieldSpec{
			{Tag: FieldName, Label: "Nombre", Kind: KindName, Required: true},
			{Tag: FieldEmail, Label: "Correo", Kind: KindEmail, Required: true},
			{Tag: FieldPhone, Label: "Telefono", Kind: KindPhone},
			{Tag: FieldParty, Label: "Partido", Kind: KindText},
			{Tag: FieldOffice, Label: "Cargo", Kind: KindEnum, EnumValues: OfficeValues},
			{Tag: FieldListNumber, Label: "Numero en lista", Kind: KindInt},
		},
		Synonyms: []Synonym{
			{"partido", FieldParty},
			{"movimiento", FieldParty},
			{"party", FieldParty},
			{"cargo", FieldOffice},
			{"corporacion", FieldOffice},
			{"office", FieldOffice},
			{"correo", FieldEmail},
			{"email", FieldEmail},
			{"mail", FieldEmail},
			{"telefono", FieldPhone},
			{"celular", FieldPhone},
			{"phone", FieldPhone},
			{"numero", FieldListNumber},
			{"tarjeton", FieldListNumber},
			{"posicion", FieldListNumber},
			{"list number", FieldListNumber},
			{"nombre", FieldName},
			{"candidato", FieldName},
			{"candidate", FieldName},
			{"name", FieldName},
		},
	})

	register(EntitySpec{
		Entity: EntityGroup,
		Label:  "Grupos",
		Fields: []FieldSpec{
			{Tag: FieldName, Label: "Nombre", Kind: KindName, Required: true},
			{Tag: FieldCandidateName, Label: "Candidato", Kind: KindName, Required: true},
			{Tag: FieldZone, Label: "Zona", Kind: KindUpper},
			{Tag: FieldDescription, Label: "Descripcion", Kind: KindText},
		},
		Synonyms: []Synonym{
			{"candidato", FieldCandidateName},
			{"candidate", FieldCandidateName},
			{"zona", FieldZone},
			{"sector", FieldZone},
			{"zone", FieldZone},
			{"descripcion", FieldDescription},
			{"detalle", FieldDescription},
			{"description", FieldDescription},
			{"nombre", FieldName},
			{"grupo", FieldName},
			{"group", FieldName},
			{"name", FieldName},
		},
	})
}
