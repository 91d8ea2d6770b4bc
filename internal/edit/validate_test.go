package edit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/datashelf/pkg/types"
)

func newTestValidator(t *testing.T, columns ...types.ColumnRule) *Validator {
	t.Helper()
	v, err := NewValidator(&types.Template{Name: "test", Columns: columns})
	require.NoError(t, err)
	return v
}

func TestValidateRow_RequiredField(t *testing.T) {
	v := newTestValidator(t, types.ColumnRule{Key: "region", DType: types.DTypeText, Required: true})

	assert.Empty(t, v.ValidateRow(map[string]any{"region": "north"}))

	errs := v.ValidateRow(map[string]any{"region": "  "})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "required")

	errs = v.ValidateRow(map[string]any{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "required")
}

func TestValidateRow_NumberAcceptsCommaDecimal(t *testing.T) {
	min, max := 0.0, 100.0
	v := newTestValidator(t, types.ColumnRule{
		Key: "amount", DType: types.DTypeNumber, Min: &min, Max: &max,
	})

	assert.Empty(t, v.ValidateRow(map[string]any{"amount": "7,5"}))
	assert.Empty(t, v.ValidateRow(map[string]any{"amount": "7.5"}))
	assert.Empty(t, v.ValidateRow(map[string]any{"amount": 7.5}))

	errs := v.ValidateRow(map[string]any{"amount": "seven"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not a number")

	errs = v.ValidateRow(map[string]any{"amount": "-1"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "below the minimum")

	errs = v.ValidateRow(map[string]any{"amount": "101"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "above the maximum")
}

func TestValidateRow_DateAcceptsBothLayouts(t *testing.T) {
	v := newTestValidator(t, types.ColumnRule{Key: "day", DType: types.DTypeDate})

	assert.Empty(t, v.ValidateRow(map[string]any{"day": "15.01.2026"}))
	assert.Empty(t, v.ValidateRow(map[string]any{"day": "2026-01-15"}))

	errs := v.ValidateRow(map[string]any{"day": "01/15/2026"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not a date")
}

func TestValidateRow_RegexMatchesAnywhere(t *testing.T) {
	v := newTestValidator(t, types.ColumnRule{Key: "code", DType: types.DTypeText, Regex: `\d{4}`})

	assert.Empty(t, v.ValidateRow(map[string]any{"code": "ab-1234-z"}))

	errs := v.ValidateRow(map[string]any{"code": "abc"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "pattern")
}

func TestValidateRow_Choices(t *testing.T) {
	v := newTestValidator(t, types.ColumnRule{
		Key: "region", DType: types.DTypeText, Choices: []string{"north", "south"},
	})

	assert.Empty(t, v.ValidateRow(map[string]any{"region": "north"}))

	errs := v.ValidateRow(map[string]any{"region": "west"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "not an allowed value")
}

func TestValidateRow_EmptyOptionalSkipsTypeChecks(t *testing.T) {
	v := newTestValidator(t,
		types.ColumnRule{Key: "amount", DType: types.DTypeNumber},
		types.ColumnRule{Key: "day", DType: types.DTypeDate},
	)

	assert.Empty(t, v.ValidateRow(map[string]any{"amount": "", "day": nil}))
}

func TestValidateRow_CollectsAllFailures(t *testing.T) {
	v := newTestValidator(t,
		types.ColumnRule{Key: "region", DType: types.DTypeText, Required: true},
		types.ColumnRule{Key: "amount", DType: types.DTypeNumber},
	)

	errs := v.ValidateRow(map[string]any{"amount": "bad"})
	assert.Len(t, errs, 2)
}

func TestNewValidator_RejectsBadPattern(t *testing.T) {
	_, err := NewValidator(&types.Template{
		Name:    "broken",
		Columns: []types.ColumnRule{{Key: "x", DType: types.DTypeText, Regex: "("}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling pattern")
}

func TestNormalizeRow_RewritesDatesToISO(t *testing.T) {
	v := newTestValidator(t,
		types.ColumnRule{Key: "day", DType: types.DTypeDate},
		types.ColumnRule{Key: "note", DType: types.DTypeText},
	)

	data := map[string]any{"day": "15.01.2026", "note": "31.12.2026"}
	v.NormalizeRow(data)
	assert.Equal(t, "2026-01-15", data["day"])
	// Only date columns normalize.
	assert.Equal(t, "31.12.2026", data["note"])
}

func TestBuildSchema_FlattensTemplate(t *testing.T) {
	min := 0.0
	snap := &types.Snapshot{Meta: map[string]any{types.MetaEditable: true}}
	tpl := &types.Template{
		Name: "monthly",
		Columns: []types.ColumnRule{
			{Key: "region", DType: types.DTypeText, Required: true, Choices: []string{"north"}},
			{Key: "amount", DType: types.DTypeNumber, Min: &min},
		},
	}

	schema := BuildSchema(snap, tpl)
	assert.True(t, schema.Editable)
	assert.Equal(t, "monthly", schema.Template)
	require.Len(t, schema.Columns, 2)
	assert.Equal(t, "region", schema.Columns[0].Key)
	assert.True(t, schema.Columns[0].Required)
}

func TestBuildSchema_NoTemplate(t *testing.T) {
	schema := BuildSchema(&types.Snapshot{}, nil)
	assert.False(t, schema.Editable)
	assert.Empty(t, schema.Columns)
}
