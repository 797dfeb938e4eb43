package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolgrid/schoolgrid-engine/pkg/apperrors"
	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
)

func newDisambiguator(t *testing.T) (*Disambiguator, *KeywordExtractor) {
	t.Helper()
	store := metadata.NewStore()
	require.NoError(t, store.Load())
	return NewDisambiguator(store, nil), NewKeywordExtractor(store)
}

func TestBuild_AbsenceCount(t *testing.T) {
	d, e := newDisambiguator(t)
	query := "how many students are absent today"
	intent := &IntentResult{Intent: "count_attendance", Domain: "attendance"}

	kw, err := e.Extract(query, intent)
	require.NoError(t, err)

	sq, err := d.Build(query, kw, intent, "sch-1")
	require.NoError(t, err)

	assert.Equal(t, "students", sq.PrimaryTable)
	assert.Equal(t, "s", sq.PrimaryAlias)
	assert.True(t, sq.IsCount)
	assert.Equal(t, []string{"COUNT(DISTINCT s.id) AS count"}, sq.SelectFields)

	require.NotEmpty(t, sq.Conditions)
	assert.Equal(t, "s.school_id = 'sch-1'", sq.Conditions[0])
	assert.Contains(t, sq.Conditions, "a.status = 'absent'")
	assert.Contains(t, sq.Conditions, "DATE(a.date) = CURRENT_DATE")

	require.Len(t, sq.Joins, 1)
	assert.Equal(t, "attendance", sq.Joins[0].Table)
	assert.Equal(t, "a", sq.Joins[0].Alias)
	assert.Equal(t, "s.id = a.student_id", sq.Joins[0].On)
}

func TestBuild_ContactNumbersOfAbsentees(t *testing.T) {
	d, e := newDisambiguator(t)
	query := "show me the contact numbers of students absent today"
	intent := &IntentResult{Intent: "list_attendance", Domain: "attendance"}

	kw, err := e.Extract(query, intent)
	require.NoError(t, err)

	sq, err := d.Build(query, kw, intent, "sch-1")
	require.NoError(t, err)

	// A field request never counts, despite "numbers of" in the query.
	assert.False(t, sq.IsCount)
	assert.Equal(t, "students", sq.PrimaryTable)

	assert.Contains(t, sq.SelectFields, "s.father_phone")
	assert.Contains(t, sq.SelectFields, "s.mother_phone")
	assert.Contains(t, sq.SelectFields, "s.emergency_contact_phone")

	assert.Contains(t, sq.Conditions, "a.status = 'absent'")
	assert.Contains(t, sq.Conditions, "DATE(a.date) = CURRENT_DATE")
}

func TestBuild_TenantRequired(t *testing.T) {
	d, e := newDisambiguator(t)
	kw, err := e.Extract("how many students are absent today", nil)
	require.NoError(t, err)

	_, err = d.Build("how many students are absent today", kw, nil, "")
	assert.ErrorIs(t, err, apperrors.ErrTenantRequired)
}

func TestBuild_TenantQuoteEscaped(t *testing.T) {
	d, e := newDisambiguator(t)
	query := "list all students"
	kw, err := e.Extract(query, &IntentResult{Intent: "list_students", Domain: "students"})
	require.NoError(t, err)

	sq, err := d.Build(query, kw, &IntentResult{Intent: "list_students", Domain: "students"}, "o'hara")
	require.NoError(t, err)
	assert.Equal(t, "s.school_id = 'o''hara'", sq.Conditions[0])
}

func TestBuild_DomainJoinsAlwaysIncluded(t *testing.T) {
	d, e := newDisambiguator(t)
	query := "list students with unpaid fees"
	intent := &IntentResult{Intent: "list_fees", Domain: "fees"}

	kw, err := e.Extract(query, intent)
	require.NoError(t, err)

	sq, err := d.Build(query, kw, intent, "sch-1")
	require.NoError(t, err)

	assert.Equal(t, "students", sq.PrimaryTable)
	assert.True(t, sq.HasJoin("f"), "fees join always included for the fees domain")
	assert.True(t, sq.HasJoin("ft"), "fee_types join always included for the fees domain")
	assert.Contains(t, sq.Conditions, "f.status = 'unpaid'")
	// "paid" must not match inside "unpaid".
	assert.NotContains(t, sq.Conditions, "f.status = 'paid'")

	// Fee columns ride along once the join exists.
	assert.Contains(t, sq.SelectFields, "f.amount")
	assert.Contains(t, sq.SelectFields, "ft.name AS fee_type")
}

func TestBuild_TopModifierAddsLimit(t *testing.T) {
	d, e := newDisambiguator(t)
	query := "top students with highest marks"
	intent := &IntentResult{Intent: "list_exams", Domain: "exams"}

	kw, err := e.Extract(query, intent)
	require.NoError(t, err)

	sq, err := d.Build(query, kw, intent, "sch-1")
	require.NoError(t, err)

	assert.Equal(t, 10, sq.Limit)
	assert.NotEmpty(t, sq.OrderBy)
}

func TestBuild_StudentListDefaultOrdering(t *testing.T) {
	d, e := newDisambiguator(t)
	query := "list all students"
	intent := &IntentResult{Intent: "list_students", Domain: "students"}

	kw, err := e.Extract(query, intent)
	require.NoError(t, err)

	sq, err := d.Build(query, kw, intent, "sch-1")
	require.NoError(t, err)

	assert.False(t, sq.IsCount)
	assert.Equal(t, "s.roll_number", sq.OrderBy)
	assert.Contains(t, sq.SelectFields, "s.first_name")
}

func TestBuild_BusinessLogicFiresForEntityPhrase(t *testing.T) {
	d, e := newDisambiguator(t)
	// The matched phrase is "student" but the bundle key is
	// "topper_students"; the lookup goes through the canonical table
	// name, so phrasing the entity must not drop the marks condition.
	for _, query := range []string{"list topper students", "show topper student names"} {
		intent := &IntentResult{Intent: "list_exams", Domain: "exams"}

		kw, err := e.Extract(query, intent)
		require.NoError(t, err)

		sq, err := d.Build(query, kw, intent, "sch-1")
		require.NoError(t, err)

		assert.Equal(t, "students", sq.PrimaryTable, query)
		assert.True(t, sq.HasJoin("er"), query)
		assert.Contains(t, sq.Conditions, "er.marks_obtained >= 90", query)
	}
}

func TestBuild_LeadingEntityWinsPrimary(t *testing.T) {
	d, e := newDisambiguator(t)
	query := "list students with unpaid fees"
	intent := &IntentResult{Intent: "list_fees", Domain: "fees"}

	kw, err := e.Extract(query, intent)
	require.NoError(t, err)

	// Both "students" and "fees" match; the one the question leads with
	// becomes the primary table.
	sq, err := d.Build(query, kw, intent, "sch-1")
	require.NoError(t, err)
	assert.Equal(t, "students", sq.PrimaryTable)
}

func TestBuild_NoDuplicateConditions(t *testing.T) {
	d, e := newDisambiguator(t)
	// "absent" triggers both the column synonym and the absent_students
	// business logic; the condition must appear once.
	query := "how many students are absent today"
	intent := &IntentResult{Intent: "count_attendance", Domain: "attendance"}

	kw, err := e.Extract(query, intent)
	require.NoError(t, err)

	sq, err := d.Build(query, kw, intent, "sch-1")
	require.NoError(t, err)

	seen := map[string]int{}
	for _, c := range sq.Conditions {
		seen[c]++
	}
	for c, n := range seen {
		assert.Equal(t, 1, n, "duplicate condition: %s", c)
	}
	require.Len(t, sq.Joins, 1)
}
