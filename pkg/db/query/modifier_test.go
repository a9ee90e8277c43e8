package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModifierEmpty(t *testing.T) {
	sql, args := New().SQL(false)
	assert.Empty(t, sql)
	assert.Empty(t, args)

	sql, _ = New().SQL(true)
	assert.Empty(t, sql)
}

func TestModifierWhereChain(t *testing.T) {
	m := New().
		Where("uid", "=", "A100", true, false).
		Where("site", "=", "Dalhousie", true, false).
		Where("site", "=", "McGill", true, true)

	sql, args := m.SQL(false)
	assert.Equal(t, " WHERE uid = ? AND site = ? OR site = ?", sql)
	assert.Equal(t, []any{"A100", "Dalhousie", "McGill"}, args)
}

func TestModifierNullValues(t *testing.T) {
	m := New().
		Where("parent_image_id", "=", nil, true, false).
		Where("note", "!=", nil, true, false)

	sql, args := m.SQL(false)
	assert.Equal(t, " WHERE parent_image_id IS NULL AND note IS NOT NULL", sql)
	assert.Empty(t, args)
}

func TestModifierBrackets(t *testing.T) {
	m := New().
		Where("downloaded", "=", 1, true, false).
		WhereBracket(true, false).
		Where("laterality", "=", "left", true, false).
		Where("laterality", "=", "none", true, true).
		WhereBracket(false, false)

	sql, args := m.SQL(false)
	assert.Equal(t, " WHERE downloaded = ? AND (laterality = ? OR laterality = ? )", sql)
	assert.Equal(t, []any{1, "left", "none"}, args)
}

func TestModifierUnescaped(t *testing.T) {
	m := New().Where("exams.interview_id", "=", "interviews.id", false, false)

	sql, args := m.SQL(false)
	assert.Equal(t, " WHERE exams.interview_id = interviews.id", sql)
	assert.Empty(t, args)
}

func TestModifierAppending(t *testing.T) {
	m := New().Where("type", "=", "CarotidIntima", true, false).Order("uid", false)

	sql, args := m.SQL(true)
	assert.Equal(t, " AND ( type = ? ) ORDER BY uid", sql)
	assert.Equal(t, []any{"CarotidIntima"}, args)

	sql, _ = New().Order("uid", true).SQL(true)
	assert.Equal(t, " ORDER BY uid DESC", sql)
}

func TestModifierGroupOrderLimit(t *testing.T) {
	m := New().Group("exam_id").Order("uid", false).Order("id", true).Limit(10, 20)

	sql, _ := m.SQL(false)
	assert.Equal(t, " GROUP BY exam_id ORDER BY uid, id DESC LIMIT 10 OFFSET 20", sql)
}

func TestModifierMerge(t *testing.T) {
	search := New().Where("site", "=", "Calgary", true, false).Order("uid", false)
	own := New().Where("downloaded", "=", 0, true, false).Limit(5, 0)

	own.Merge(search)

	sql, args := own.SQL(false)
	assert.Equal(t, " WHERE downloaded = ? AND site = ? ORDER BY uid LIMIT 5", sql)
	assert.Equal(t, []any{0, "Calgary"}, args)
	assert.True(t, own.HasWhere())
}
