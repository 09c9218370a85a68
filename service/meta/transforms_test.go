package meta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_toFloat(t *testing.T) {
	fn, ok := LookupTransform("toFloat")
	require.True(t, ok)

	tests := []struct {
		name    string
		input   interface{}
		want    interface{}
		wantErr bool
	}{
		{"字符串数字", "123.45", 123.45, false},
		{"整数", 10, float64(10), false},
		{"浮点数", 99.9, 99.9, false},
		{"空字符串返回nil", "", nil, false},
		{"nil返回nil", nil, nil, false},
		{"非数字报错", "abc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fn(tt.input, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransform_toFloatOrZero(t *testing.T) {
	fn, ok := LookupTransform("toFloatOrZero")
	require.True(t, ok)

	got, err := fn(nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, float64(0), got)

	got, err = fn("150.50", nil)
	assert.NoError(t, err)
	assert.Equal(t, 150.50, got)
}

func TestTransform_notFalse(t *testing.T) {
	fn, ok := LookupTransform("notFalse")
	require.True(t, ok)

	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{false, false},
		{"anything", true},
		{1, true},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := fn(tt.input, nil)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestTransform_parseDate(t *testing.T) {
	fn, ok := LookupTransform("parseDate")
	require.True(t, ok)

	got, err := fn("2024-03-15", nil)
	require.NoError(t, err)
	parsed, ok := got.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, time.March, parsed.Month())
	assert.Equal(t, 15, parsed.Day())

	got, err = fn("2024-03-15T10:30:00Z", nil)
	require.NoError(t, err)
	_, ok = got.(time.Time)
	assert.True(t, ok)

	// 空值返回nil而非当前时间
	got, err = fn(nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = fn("not-a-date", nil)
	assert.Error(t, err)
}

func TestTransform_dateOrNow(t *testing.T) {
	fn, ok := LookupTransform("dateOrNow")
	require.True(t, ok)

	got, err := fn(nil, nil)
	require.NoError(t, err)
	now, ok := got.(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), now, time.Minute)
}

func TestTransform_stringOrEmpty(t *testing.T) {
	fn, ok := LookupTransform("stringOrEmpty")
	require.True(t, ok)

	got, err := fn(nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = fn("12345678900", nil)
	assert.NoError(t, err)
	assert.Equal(t, "12345678900", got)
}

func TestRegisterTransform_跨字段转换(t *testing.T) {
	RegisterTransform("testPersonDocument", func(value interface{}, record map[string]interface{}) (interface{}, error) {
		if record["personType"] == "company" {
			return record["cnpj"], nil
		}
		return record["cpf"], nil
	})

	fn, ok := LookupTransform("testPersonDocument")
	require.True(t, ok)

	got, err := fn(nil, map[string]interface{}{"personType": "company", "cnpj": "11222333000144", "cpf": "999"})
	assert.NoError(t, err)
	assert.Equal(t, "11222333000144", got)
}

func TestRegisterScriptTransform(t *testing.T) {
	err := RegisterScriptTransform("testUpperDoc", `func(value interface{}, record map[string]interface{}) interface{} {
		s, ok := value.(string)
		if !ok {
			return value
		}
		out := ""
		for _, r := range s {
			if r >= 'a' && r <= 'z' {
				r = r - 'a' + 'A'
			}
			out += string(r)
		}
		return out
	}`)
	require.NoError(t, err)

	fn, ok := LookupTransform("testUpperDoc")
	require.True(t, ok)

	got, err := fn("abc12", nil)
	assert.NoError(t, err)
	assert.Equal(t, "ABC12", got)
}

func TestRegisterScriptTransform_非法脚本(t *testing.T) {
	err := RegisterScriptTransform("testBad", `func bad syntax {`)
	assert.Error(t, err)

	err = RegisterScriptTransform("testWrongType", `42`)
	assert.Error(t, err)
}
