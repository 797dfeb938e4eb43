package pipeline

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/schoolgrid/schoolgrid-engine/pkg/apperrors"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
)

// Disambiguator turns extracted keywords plus intent into a semantic
// query: primary table, joins, predicates, select list, ordering.
type Disambiguator struct {
	store  *metadata.Store
	logger *zap.Logger
}

// NewDisambiguator creates a disambiguator.
func NewDisambiguator(store *metadata.Store, logger *zap.Logger) *Disambiguator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Disambiguator{store: store, logger: logger.Named("disambiguate")}
}

// Build constructs the semantic query. The tenant id is mandatory; its
// isolation predicate is always Conditions[0]. Every join template the
// domain defines is included unconditionally.
func (d *Disambiguator) Build(query string, keywords *ExtractedKeywords, intent *IntentResult, tenantID string) (*SemanticQuery, error) {
	if tenantID == "" {
		return nil, apperrors.ErrTenantRequired
	}

	sq := &SemanticQuery{aliases: make(map[string]string)}

	domain, _ := d.store.Domain(keywords.Domain)
	d.resolvePrimary(sq, keywords, domain)

	// Counting needs all three signals to agree: a count action was
	// extracted, no list action was, and the raw query still reads as
	// a bare count. The last check is the shared predicate.
	sq.IsCount = containsAny(keywords.Actions, countActionPhrases) &&
		!containsAny(keywords.Actions, listActionPhrases) &&
		isCountQuery(query)

	sq.Conditions = []string{
		fmt.Sprintf("%s.school_id = '%s'", sq.PrimaryAlias, strings.ReplaceAll(tenantID, "'", "''")),
	}

	if domain != nil {
		d.applyDomainJoins(sq, domain)
	}
	d.applyFilters(sq, keywords)
	if domain != nil {
		d.applyTemporal(sq, keywords, domain)
	}
	d.applyBusinessLogic(sq, keywords)

	d.selectFields(sq, query)
	d.ordering(sq, keywords)

	return sq, nil
}

// resolvePrimary picks the primary table from the domain bundle,
// falling back to students, then lets the first extracted entity
// override it when it names a different known table.
func (d *Disambiguator) resolvePrimary(sq *SemanticQuery, keywords *ExtractedKeywords, domain *metadata.DomainMetadata) {
	sq.PrimaryTable, sq.PrimaryAlias = "students", "s"
	if domain != nil && domain.Table != "" {
		sq.PrimaryTable, sq.PrimaryAlias = domain.Table, domain.Alias
	}

	if len(keywords.Entities) > 0 {
		if ref, ok := d.store.Entity(keywords.Entities[0]); ok && ref.Table != sq.PrimaryTable {
			sq.PrimaryTable, sq.PrimaryAlias = ref.Table, ref.Alias
		}
	}

	sq.aliases[sq.PrimaryTable] = sq.PrimaryAlias
}

// applyDomainJoins appends every join template the domain defines.
func (d *Disambiguator) applyDomainJoins(sq *SemanticQuery, domain *metadata.DomainMetadata) {
	for _, tpl := range domain.CommonJoins {
		d.addJoin(sq, tpl)
	}
}

func (d *Disambiguator) addJoin(sq *SemanticQuery, tpl metadata.JoinTemplate) {
	if sq.HasJoin(tpl.Alias) || tpl.Alias == sq.PrimaryAlias {
		return
	}
	sq.Joins = append(sq.Joins, Join{
		Table: tpl.To,
		Alias: tpl.Alias,
		On:    tpl.On,
		Type:  tpl.Type,
	})
	sq.aliases[tpl.To] = tpl.Alias
	if _, ok := sq.aliases[tpl.From]; !ok {
		if ref, found := d.store.Entity(tpl.From); found {
			sq.aliases[tpl.From] = ref.Alias
		}
	}
}

// applyFilters resolves each filter term to a synonym predicate,
// renders it against the alias table and appends it if new.
func (d *Disambiguator) applyFilters(sq *SemanticQuery, keywords *ExtractedKeywords) {
	for _, filter := range keywords.Filters {
		syn, ok := d.store.Synonym(filter, keywords.Domain)
		if !ok {
			continue
		}
		condition := syn.Predicate.Render(sq.AliasFor(syn.Predicate.Table))
		d.addCondition(sq, condition)
	}
}

// applyTemporal appends the date predicate against whichever joined
// table owns the domain's date column: the attendance alias for
// attendance, the fees alias for fees, the primary alias otherwise.
func (d *Disambiguator) applyTemporal(sq *SemanticQuery, keywords *ExtractedKeywords, domain *metadata.DomainMetadata) {
	if keywords.Temporal == "" {
		return
	}
	tp, ok := d.store.TemporalPattern(keywords.Temporal)
	if !ok {
		return
	}

	alias := sq.PrimaryAlias
	column := "created_at"
	switch keywords.Domain {
	case "attendance", "fees":
		alias = sq.AliasFor(domain.Table)
		column = domain.DateColumn
	default:
		if domain.Table == sq.PrimaryTable && domain.DateColumn != "" {
			column = domain.DateColumn
		}
	}

	d.addCondition(sq, tp.Apply(alias+"."+column))
}

// applyBusinessLogic tries a "{filter}_{entity}" lookup for every
// filter, appending the snippet's condition and any join it names.
// Bundle keys use canonical table names, so the matched entity phrase
// is resolved first: "student" and "students" both look up "_students"
// keys.
func (d *Disambiguator) applyBusinessLogic(sq *SemanticQuery, keywords *ExtractedKeywords) {
	entity := defaultEntity
	if len(keywords.Entities) > 0 {
		entity = keywords.Entities[0]
		if ref, ok := d.store.Entity(entity); ok {
			entity = ref.Table
		}
	}

	for _, filter := range keywords.Filters {
		key := filter + "_" + entity
		bl, ok := d.store.BusinessLogic(key, keywords.Domain)
		if !ok {
			continue
		}
		if bl.Join != nil {
			d.addJoin(sq, *bl.Join)
		}
		if bl.Condition != nil {
			condition := bl.Condition.Render(sq.AliasFor(bl.Condition.Table))
			d.addCondition(sq, condition)
		}
	}
}

// addCondition appends a predicate unless an identical one is present.
func (d *Disambiguator) addCondition(sq *SemanticQuery, condition string) {
	for _, existing := range sq.Conditions {
		if existing == condition {
			return
		}
	}
	sq.Conditions = append(sq.Conditions, condition)
}

// selectFields builds the SELECT list. Count queries emit a single
// COUNT(DISTINCT primary.id); student-primary list queries start from
// the identity columns and grow with the query's cues and the joins in
// play; other primaries select alias.*.
func (d *Disambiguator) selectFields(sq *SemanticQuery, query string) {
	if sq.IsCount {
		sq.SelectFields = []string{
			fmt.Sprintf("COUNT(DISTINCT %s.id) AS count", sq.PrimaryAlias),
		}
		return
	}

	if sq.PrimaryTable != "students" {
		sq.SelectFields = []string{sq.PrimaryAlias + ".*"}
		return
	}

	a := sq.PrimaryAlias
	fields := []string{
		a + ".id", a + ".first_name", a + ".last_name",
		a + ".admission_number", a + ".roll_number",
	}

	q := strings.ToLower(query)

	if classAlias, ok := sq.aliases["classes"]; ok && sq.HasJoin(classAlias) {
		fields = append(fields, classAlias+".name AS class_name")
	}
	if strings.Contains(q, "contact") || strings.Contains(q, "phone") || strings.Contains(q, "parent") {
		fields = append(fields,
			a+".father_phone", a+".mother_phone", a+".emergency_contact_phone")
	}
	if strings.Contains(q, "address") || strings.Contains(q, "location") {
		fields = append(fields, a+".address", a+".city")
	}
	if attAlias, ok := sq.aliases["attendance"]; ok && sq.HasJoin(attAlias) {
		fields = append(fields, attAlias+".status", attAlias+".date")
	}
	if feeAlias, ok := sq.aliases["fees"]; ok && sq.HasJoin(feeAlias) {
		fields = append(fields, feeAlias+".amount", feeAlias+".due_date", feeAlias+".status")
		if ftAlias, ok := sq.aliases["fee_types"]; ok && sq.HasJoin(ftAlias) {
			fields = append(fields, ftAlias+".name AS fee_type")
		}
	}

	sq.SelectFields = fields
}

// ordering applies top/best/highest modifiers (LIMIT 10 plus descending
// order) and the roll-number default for student lists.
func (d *Disambiguator) ordering(sq *SemanticQuery, keywords *ExtractedKeywords) {
	for _, mod := range keywords.Modifiers {
		if mod == "top" || mod == "best" || mod == "highest" {
			sq.Limit = 10
			if sq.IsCount {
				sq.OrderBy = "count DESC"
			} else {
				sq.OrderBy = sq.PrimaryAlias + ".id DESC"
			}
			return
		}
	}

	if sq.PrimaryTable == "students" && !sq.IsCount {
		sq.OrderBy = sq.PrimaryAlias + ".roll_number"
	}
}

func containsAny(haystack, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
