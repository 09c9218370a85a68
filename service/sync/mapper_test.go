/*
 * @module service/sync/mapper_test
 * @description 字段映射引擎单元测试
 * @architecture 测试层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 构造上游记录 -> 执行映射 -> 断言行内容或拒绝原因
 * @rules 覆盖别名优先级、必填拒绝、默认值和可选转换失败
 * @dependencies testify
 * @refs service/sync/mapper.go
 */

package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasync-service/service/meta"
)

func TestMapRecord_基本映射(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")
	raw := map[string]interface{}{
		"id":      float64(101),
		"name":    "Maria Silva",
		"cpfCnpj": "12345678901",
		"email":   "maria@example.com",
		"active":  true,
	}

	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)

	assert.Equal(t, float64(101), row["id_cliente"])
	assert.Equal(t, "Maria Silva", row["nome_completo"])
	assert.Equal(t, "12345678901", row["cpf_cnpj"])
	assert.Equal(t, "maria@example.com", row["email"])
	assert.Equal(t, true, row["ativo"])
}

func TestMapRecord_别名优先级(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")

	// 同时给出name和fullName时，先声明的name生效
	raw := map[string]interface{}{
		"id":       float64(1),
		"name":     "Nome Principal",
		"fullName": "Nome Alternativo",
		"cpfCnpj":  "111",
	}
	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, "Nome Principal", row["nome_completo"])

	// 首选别名缺失时退到后声明的别名
	raw = map[string]interface{}{
		"id":       float64(2),
		"fullName": "Nome Alternativo",
		"cpf":      "222",
	}
	row, err = MapRecord(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, "Nome Alternativo", row["nome_completo"])
	assert.Equal(t, "222", row["cpf_cnpj"])
}

func TestMapRecord_必填字段缺失拒绝记录(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")
	raw := map[string]interface{}{
		"id":      float64(3),
		"cpfCnpj": "333",
		// name和fullName都缺失
	}

	_, err := MapRecord(raw, cfg)
	require.Error(t, err)

	var mappingErr *MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "customers", mappingErr.Entity)
	assert.Contains(t, mappingErr.Reason, "必填字段缺失")
}

func TestMapRecord_必填字段由别名满足(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")

	// cpfCnpj缺失但别名cnpj有值，必填校验应通过
	raw := map[string]interface{}{
		"id":   float64(4),
		"name": "Empresa X",
		"cnpj": "12345678000199",
	}
	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, "12345678000199", row["cpf_cnpj"])
}

func TestMapRecord_后声明别名的显式值优先于默认值(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")

	// active缺失但isActive显式为false时，不能被active映射的默认值true盖掉
	raw := map[string]interface{}{
		"id":       float64(10),
		"name":     "Cliente Inativo",
		"cpfCnpj":  "101",
		"isActive": false,
	}
	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, false, row["ativo"])

	// 首选别名有显式值时仍然优先
	raw = map[string]interface{}{
		"id":       float64(11),
		"name":     "Cliente Ativo",
		"cpfCnpj":  "111",
		"active":   true,
		"isActive": false,
	}
	row, err = MapRecord(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, true, row["ativo"])
}

func TestMapRecord_默认值(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")
	raw := map[string]interface{}{
		"id":      float64(5),
		"name":    "Cliente Sem Status",
		"cpfCnpj": "555",
		// active缺失，走默认值true
	}

	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)
	assert.Equal(t, true, row["ativo"])
}

func TestMapRecord_可选字段转换失败跳过(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")
	raw := map[string]interface{}{
		"id":        float64(6),
		"name":      "Cliente",
		"cpfCnpj":   "666",
		"birthDate": "data-invalida",
	}

	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)

	_, hasBirthDate := row["data_nascimento"]
	assert.False(t, hasBirthDate, "无法解析的可选日期应被跳过")
	assert.Equal(t, "Cliente", row["nome_completo"])
}

func TestMapRecord_必填字段转换失败拒绝记录(t *testing.T) {
	cfg := &meta.EndpointConfig{
		Entity:     "test-entity",
		TableName:  "test_entity",
		PrimaryKey: "id",
		FieldMappings: []meta.FieldMapping{
			{SourceField: "id", TargetField: "id", Required: true},
			{SourceField: "due", TargetField: "due", Transform: "parseDate", Required: true},
		},
	}
	raw := map[string]interface{}{
		"id":  float64(7),
		"due": "not-a-date",
	}

	_, err := MapRecord(raw, cfg)
	var mappingErr *MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Contains(t, mappingErr.Reason, "转换失败")
}

func TestMapRecord_未注册转换函数报错(t *testing.T) {
	cfg := &meta.EndpointConfig{
		Entity:     "test-entity",
		TableName:  "test_entity",
		PrimaryKey: "id",
		FieldMappings: []meta.FieldMapping{
			{SourceField: "id", TargetField: "id", Transform: "doesNotExist"},
		},
	}

	_, err := MapRecord(map[string]interface{}{"id": float64(1)}, cfg)
	var mappingErr *MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Contains(t, mappingErr.Reason, "未注册的转换函数")
}

func TestMapRecord_日期转换(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")
	raw := map[string]interface{}{
		"id":        float64(8),
		"name":      "Cliente",
		"cpfCnpj":   "888",
		"birthDate": "1990-05-20",
		"createdAt": "2024-01-15T10:30:00Z",
	}

	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)

	birth, ok := row["data_nascimento"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 1990, birth.Year())

	created, ok := row["data_cadastro"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, created.Year())
}

func TestMapRecord_未映射字段不输出(t *testing.T) {
	cfg := meta.GetEndpointConfig("customers")
	raw := map[string]interface{}{
		"id":           float64(9),
		"name":         "Cliente",
		"cpfCnpj":      "999",
		"unknownField": "should be dropped",
	}

	row, err := MapRecord(raw, cfg)
	require.NoError(t, err)
	_, exists := row["unknownField"]
	assert.False(t, exists)
}
