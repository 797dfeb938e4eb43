package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolgrid/schoolgrid-engine/pkg/metadata"
)

func newExtractor(t *testing.T) *KeywordExtractor {
	t.Helper()
	store := metadata.NewStore()
	require.NoError(t, store.Load())
	return NewKeywordExtractor(store)
}

func TestExtract_AbsenceCount(t *testing.T) {
	e := newExtractor(t)

	kw, err := e.Extract("how many students are absent today",
		&IntentResult{Intent: "count_attendance", Domain: "attendance"})
	require.NoError(t, err)

	require.NotEmpty(t, kw.Entities)
	ref, ok := e.store.Entity(kw.Entities[0])
	require.True(t, ok)
	assert.Equal(t, "students", ref.Table)
	assert.Equal(t, "attendance", kw.Domain)
	assert.Equal(t, "today", kw.Temporal)
	assert.Contains(t, kw.Filters, "absent")
	assert.Equal(t, []string{"how many"}, kw.Actions)
}

func TestExtract_ContactList(t *testing.T) {
	e := newExtractor(t)

	kw, err := e.Extract("show me the contact numbers of students absent today",
		&IntentResult{Intent: "list_attendance", Domain: "attendance"})
	require.NoError(t, err)

	require.NotEmpty(t, kw.Entities)
	ref, ok := e.store.Entity(kw.Entities[0])
	require.True(t, ok)
	assert.Equal(t, "students", ref.Table)
	assert.Equal(t, "today", kw.Temporal)
	assert.Contains(t, kw.Filters, "absent")
	// "show" is a list action; count phrases are not consulted.
	assert.Contains(t, kw.Actions, "show")
	assert.NotContains(t, kw.Actions, "number of")
}

func TestExtract_DomainInferredWithoutIntent(t *testing.T) {
	e := newExtractor(t)

	kw, err := e.Extract("which students have unpaid fees", nil)
	require.NoError(t, err)

	assert.Equal(t, "fees", kw.Domain)
	assert.Contains(t, kw.Filters, "unpaid")
}

func TestExtract_DefaultEntity(t *testing.T) {
	e := newExtractor(t)

	kw, err := e.Extract("how many are absent today",
		&IntentResult{Intent: "count_attendance", Domain: "attendance"})
	require.NoError(t, err)

	// Nothing matched an entity phrase; default applies.
	assert.Equal(t, []string{defaultEntity}, kw.Entities)
}

func TestExtract_Modifiers(t *testing.T) {
	e := newExtractor(t)

	kw, err := e.Extract("top students with highest marks",
		&IntentResult{Intent: "list_exams", Domain: "exams"})
	require.NoError(t, err)

	assert.Contains(t, kw.Modifiers, "top")
	assert.Contains(t, kw.Modifiers, "highest")
}

func TestExtract_EntitiesOrderedByPosition(t *testing.T) {
	e := newExtractor(t)

	kw, err := e.Extract("list students with unpaid fees", nil)
	require.NoError(t, err)

	require.Len(t, kw.Entities, 2)
	first, ok := e.store.Entity(kw.Entities[0])
	require.True(t, ok)
	assert.Equal(t, "students", first.Table)
	second, ok := e.store.Entity(kw.Entities[1])
	require.True(t, ok)
	assert.Equal(t, "fees", second.Table)
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("students with unpaid fees", "unpaid"))
	assert.False(t, containsWord("students with unpaid fees", "paid"))

	// Repeated lookups hit the cached pattern.
	for i := 0; i < 3; i++ {
		assert.True(t, containsWord("fees paid today", "paid"))
	}
}

func TestExtract_SingularEntityMatches(t *testing.T) {
	e := newExtractor(t)

	kw, err := e.Extract("find the student with roll number 12", nil)
	require.NoError(t, err)

	require.NotEmpty(t, kw.Entities)
	ref, ok := e.store.Entity(kw.Entities[0])
	require.True(t, ok)
	assert.Equal(t, "students", ref.Table)
}
