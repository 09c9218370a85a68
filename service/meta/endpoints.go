/*
 * @module service/meta/endpoints
 * @description 同步端点元数据，声明每个实体的API端点、目标表和字段映射规则
 * @architecture 元数据驱动 - 静态配置表
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 服务启动时加载，运行期只读
 * @rules 同一目标字段的多个别名按声明顺序取第一个有值的；引用规则决定外键缺失时的处理策略
 * @dependencies service/meta/transforms.go
 * @refs service/sync/mapper.go, service/sync/repository.go
 */

package meta

// 引用缺失处理策略
const (
	OnMissingNull = "null" // 引用不存在时置空外键
	OnMissingFail = "fail" // 引用不存在时拒绝该记录
)

// FieldMapping 字段映射规则
type FieldMapping struct {
	SourceField  string      `json:"source_field"`            // API响应中的字段名
	TargetField  string      `json:"target_field"`            // 数据库列名
	Transform    string      `json:"transform,omitempty"`     // 转换函数名，见transforms.go注册表
	Required     bool        `json:"required,omitempty"`      // 缺失时拒绝整条记录
	DefaultValue interface{} `json:"default_value,omitempty"` // 源字段缺失时的默认值
}

// ReferenceRule 外键引用规则
type ReferenceRule struct {
	Column    string `json:"column"`     // 本实体的外键列
	Entity    string `json:"entity"`     // 被引用的实体名
	OnMissing string `json:"on_missing"` // null 或 fail
}

// EndpointConfig 实体同步端点配置
type EndpointConfig struct {
	Entity        string          `json:"entity"`
	APIEndpoint   string          `json:"api_endpoint"`
	TableName     string          `json:"table_name"`
	PrimaryKey    string          `json:"primary_key"` // 数据库主键列
	FieldMappings []FieldMapping  `json:"field_mappings"`
	References    []ReferenceRule `json:"references,omitempty"`
}

// EndpointConfigs 全部实体的端点配置
// 字段别名成对出现（camelCase与snake_case），先声明者优先
var EndpointConfigs = map[string]*EndpointConfig{
	"customers": {
		Entity:      "customers",
		APIEndpoint: "/customers",
		TableName:   "clientes",
		PrimaryKey:  "id_cliente",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_cliente", Required: true},
			{SourceField: "name", TargetField: "nome_completo", Required: true},
			{SourceField: "fullName", TargetField: "nome_completo"},
			{SourceField: "cpfCnpj", TargetField: "cpf_cnpj", Transform: "stringOrEmpty", Required: true},
			{SourceField: "cpf", TargetField: "cpf_cnpj"},
			{SourceField: "cnpj", TargetField: "cpf_cnpj"},
			{SourceField: "email", TargetField: "email"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "isActive", TargetField: "ativo", Transform: "notFalse"},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "created_at", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
			{SourceField: "updated_at", TargetField: "data_atualizacao", Transform: "now"},
			{SourceField: "socialName", TargetField: "nome_social"},
			{SourceField: "social_name", TargetField: "nome_social"},
			{SourceField: "rg", TargetField: "rg"},
			{SourceField: "birthDate", TargetField: "data_nascimento", Transform: "parseDate"},
			{SourceField: "birth_date", TargetField: "data_nascimento", Transform: "parseDate"},
			{SourceField: "nationality", TargetField: "nacionalidade"},
			{SourceField: "maritalStatus", TargetField: "estado_civil"},
			{SourceField: "marital_status", TargetField: "estado_civil"},
			{SourceField: "profession", TargetField: "profissao"},
			{SourceField: "personType", TargetField: "tipo_pessoa"},
			{SourceField: "person_type", TargetField: "tipo_pessoa"},
		},
	},

	"companies": {
		Entity:      "companies",
		APIEndpoint: "/companies",
		TableName:   "empresas",
		PrimaryKey:  "id_empresa",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_empresa", Required: true},
			{SourceField: "name", TargetField: "nome_empresa", Required: true},
			{SourceField: "companyName", TargetField: "nome_empresa"},
			{SourceField: "company_name", TargetField: "nome_empresa"},
			{SourceField: "cnpj", TargetField: "cnpj"},
			{SourceField: "stateRegistration", TargetField: "inscricao_estadual"},
			{SourceField: "state_registration", TargetField: "inscricao_estadual"},
			{SourceField: "cityRegistration", TargetField: "inscricao_municipal"},
			{SourceField: "city_registration", TargetField: "inscricao_municipal"},
			{SourceField: "address", TargetField: "endereco"},
			{SourceField: "city", TargetField: "cidade"},
			{SourceField: "state", TargetField: "estado"},
			{SourceField: "zipCode", TargetField: "cep"},
			{SourceField: "zip_code", TargetField: "cep"},
			{SourceField: "phone", TargetField: "telefone"},
			{SourceField: "email", TargetField: "email"},
			{SourceField: "website", TargetField: "site"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "isActive", TargetField: "ativo", Transform: "notFalse"},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "created_at", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
			{SourceField: "updated_at", TargetField: "data_atualizacao", Transform: "now"},
		},
	},

	"cost-centers": {
		Entity:      "cost-centers",
		APIEndpoint: "/cost-centers",
		TableName:   "centros_custo",
		PrimaryKey:  "id_centro_custo",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_centro_custo", Required: true},
			{SourceField: "name", TargetField: "nome", Required: true},
			{SourceField: "description", TargetField: "nome"},
			{SourceField: "cnpj", TargetField: "cnpj"},
			{SourceField: "idCompany", TargetField: "id_empresa"},
			{SourceField: "companyId", TargetField: "id_empresa"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
		},
	},

	"indexers": {
		Entity:      "indexers",
		APIEndpoint: "/indexers",
		TableName:   "indexadores",
		PrimaryKey:  "id_indexador",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_indexador", Required: true},
			{SourceField: "name", TargetField: "nome", Required: true},
			{SourceField: "description", TargetField: "nome"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
		},
	},

	"financial-plans": {
		Entity:      "financial-plans",
		APIEndpoint: "/payment-categories",
		TableName:   "planos_financeiros",
		PrimaryKey:  "id_plano_financeiro",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_plano_financeiro", Required: true},
			{SourceField: "name", TargetField: "nome", Required: true},
			{SourceField: "description", TargetField: "nome"},
			{SourceField: "typeId", TargetField: "tipo"},
			{SourceField: "type_id", TargetField: "tipo"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
		},
	},

	"receivable-carriers": {
		Entity:      "receivable-carriers",
		APIEndpoint: "/receivable-carriers",
		TableName:   "portadores_recebimento",
		PrimaryKey:  "id_portador",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_portador", Required: true},
			{SourceField: "name", TargetField: "nome", Required: true},
			{SourceField: "description", TargetField: "nome"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
		},
	},

	"enterprises": {
		Entity:      "enterprises",
		APIEndpoint: "/enterprises",
		TableName:   "empreendimentos",
		PrimaryKey:  "id_empreendimento",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_empreendimento", Required: true},
			{SourceField: "name", TargetField: "nome", Required: true},
			{SourceField: "commercialName", TargetField: "nome_comercial"},
			{SourceField: "enterpriseObservation", TargetField: "observacao"},
			{SourceField: "cnpj", TargetField: "cnpj"},
			{SourceField: "type", TargetField: "tipo"},
			// 上游API的历史拼写错误，两个形式都接受
			{SourceField: "adress", TargetField: "endereco"},
			{SourceField: "address", TargetField: "endereco"},
			{SourceField: "city", TargetField: "cidade"},
			{SourceField: "state", TargetField: "estado"},
			{SourceField: "zipCode", TargetField: "cep"},
			{SourceField: "phone", TargetField: "telefone"},
			{SourceField: "email", TargetField: "email"},
			{SourceField: "site", TargetField: "site"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "isActive", TargetField: "ativo", Transform: "notFalse"},
			{SourceField: "companyId", TargetField: "id_empresa"},
			{SourceField: "companyName", TargetField: "nome_empresa"},
			{SourceField: "costDatabaseId", TargetField: "id_base_custos"},
			{SourceField: "costDatabaseDescription", TargetField: "descricao_base_custos"},
			{SourceField: "buildingTypeId", TargetField: "id_tipo_obra"},
			{SourceField: "buildingTypeDescription", TargetField: "descricao_tipo_obra"},
			{SourceField: "creationDate", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "modificationDate", TargetField: "data_atualizacao", Transform: "dateOrNow"},
			{SourceField: "createdBy", TargetField: "criado_por"},
			{SourceField: "modifiedBy", TargetField: "modificado_por"},
		},
		References: []ReferenceRule{
			{Column: "id_empresa", Entity: "companies", OnMissing: OnMissingNull},
		},
	},

	"projects": {
		Entity:      "projects",
		APIEndpoint: "/building-projects",
		TableName:   "projetos",
		PrimaryKey:  "id_projeto",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_projeto", Required: true},
			{SourceField: "name", TargetField: "nome", Required: true},
			{SourceField: "description", TargetField: "descricao"},
			{SourceField: "companyId", TargetField: "id_empresa"},
			{SourceField: "company_id", TargetField: "id_empresa"},
			{SourceField: "status", TargetField: "situacao"},
			{SourceField: "active", TargetField: "ativo", Transform: "notFalse", DefaultValue: true},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
		},
		References: []ReferenceRule{
			{Column: "id_empresa", Entity: "companies", OnMissing: OnMissingNull},
		},
	},

	"sales-contracts": {
		Entity:      "sales-contracts",
		APIEndpoint: "/sales-contracts",
		TableName:   "contratos_venda",
		PrimaryKey:  "id_contrato",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_contrato", Required: true},
			{SourceField: "companyId", TargetField: "id_empresa"},
			{SourceField: "company_id", TargetField: "id_empresa"},
			{SourceField: "enterpriseId", TargetField: "id_empreendimento"},
			{SourceField: "enterprise_id", TargetField: "id_empreendimento"},
			{SourceField: "customerId", TargetField: "id_cliente"},
			{SourceField: "customer_id", TargetField: "id_cliente"},
			{SourceField: "contractDate", TargetField: "data_contrato", Transform: "parseDate"},
			{SourceField: "contract_date", TargetField: "data_contrato", Transform: "parseDate"},
			{SourceField: "issueDate", TargetField: "data_emissao", Transform: "parseDate"},
			{SourceField: "issue_date", TargetField: "data_emissao", Transform: "parseDate"},
			{SourceField: "number", TargetField: "numero"},
			{SourceField: "contractNumber", TargetField: "numero"},
			{SourceField: "contract_number", TargetField: "numero"},
			{SourceField: "situation", TargetField: "situacao"},
			{SourceField: "status", TargetField: "situacao"},
			{SourceField: "value", TargetField: "valor", Transform: "toFloat"},
			{SourceField: "totalValue", TargetField: "valor_total_venda", Transform: "toFloat"},
			{SourceField: "total_value", TargetField: "valor_total_venda", Transform: "toFloat"},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "created_at", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
			{SourceField: "updated_at", TargetField: "data_atualizacao", Transform: "now"},
		},
		References: []ReferenceRule{
			{Column: "id_empreendimento", Entity: "enterprises", OnMissing: OnMissingNull},
		},
	},

	"units": {
		Entity:      "units",
		APIEndpoint: "/units",
		TableName:   "unidades",
		PrimaryKey:  "id_unidade",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_unidade", Required: true},
			{SourceField: "enterpriseId", TargetField: "id_empreendimento", Required: true},
			{SourceField: "contractId", TargetField: "id_contrato"},
			{SourceField: "indexerId", TargetField: "id_indexador"},
			{SourceField: "name", TargetField: "nome", Required: true},
			{SourceField: "propertyType", TargetField: "tipo_imovel"},
			{SourceField: "note", TargetField: "observacao"},
			{SourceField: "commercialStock", TargetField: "estoque_comercial"},
			{SourceField: "latitude", TargetField: "latitude"},
			{SourceField: "longitude", TargetField: "longitude"},
			{SourceField: "legalRegistrationNumber", TargetField: "matricula"},
			{SourceField: "deliveryDate", TargetField: "data_entrega", Transform: "parseDate"},
			{SourceField: "privateArea", TargetField: "area_privativa", Transform: "toFloat"},
			{SourceField: "commonArea", TargetField: "area_comum", Transform: "toFloat"},
			{SourceField: "terrainArea", TargetField: "area_terreno", Transform: "toFloat"},
			{SourceField: "nonProportionalCommonArea", TargetField: "area_comum_nao_proporcional", Transform: "toFloat"},
			{SourceField: "idealFraction", TargetField: "fracao_ideal", Transform: "toFloat"},
			{SourceField: "idealFractionSquareMeter", TargetField: "fracao_ideal_m2", Transform: "toFloat"},
			{SourceField: "generalSaleValueFraction", TargetField: "fracao_vgv", Transform: "toFloat"},
			{SourceField: "indexedQuantity", TargetField: "quantidade_indexada", Transform: "toFloat"},
			{SourceField: "prizedCompliance", TargetField: "adimplencia_premiada", Transform: "toFloat"},
			{SourceField: "terrainValue", TargetField: "valor_terreno", Transform: "toFloat"},
			{SourceField: "floor", TargetField: "pavimento"},
			{SourceField: "contractNumber", TargetField: "numero_contrato"},
			{SourceField: "usableArea", TargetField: "area_util", Transform: "toFloat"},
			{SourceField: "iptuValue", TargetField: "valor_iptu", Transform: "toFloat"},
			{SourceField: "realEstateRegistration", TargetField: "inscricao_imobiliaria"},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
		},
		References: []ReferenceRule{
			{Column: "id_contrato", Entity: "sales-contracts", OnMissing: OnMissingNull},
		},
	},

	"accounts-receivable": {
		Entity:      "accounts-receivable",
		APIEndpoint: "/accounts-receivable",
		TableName:   "titulos_receber",
		PrimaryKey:  "id_titulo_receber",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_titulo_receber", Required: true},
			{SourceField: "contractId", TargetField: "id_contrato"},
			{SourceField: "contract_id", TargetField: "id_contrato"},
			{SourceField: "customerId", TargetField: "id_cliente", Required: true},
			{SourceField: "customer_id", TargetField: "id_cliente", Required: true},
			{SourceField: "clientId", TargetField: "id_cliente"},
			{SourceField: "client_id", TargetField: "id_cliente"},
			{SourceField: "companyId", TargetField: "id_empresa"},
			{SourceField: "company_id", TargetField: "id_empresa"},
			{SourceField: "documentNumber", TargetField: "numero_documento", Required: true},
			{SourceField: "document_number", TargetField: "numero_documento", Required: true},
			{SourceField: "number", TargetField: "numero_documento"},
			{SourceField: "issueDate", TargetField: "data_emissao", Transform: "dateOrNow"},
			{SourceField: "issue_date", TargetField: "data_emissao", Transform: "dateOrNow"},
			{SourceField: "dueDate", TargetField: "data_vencimento", Transform: "dateOrNow"},
			{SourceField: "due_date", TargetField: "data_vencimento", Transform: "dateOrNow"},
			{SourceField: "originalValue", TargetField: "valor_original", Transform: "toFloatOrZero"},
			{SourceField: "original_value", TargetField: "valor_original", Transform: "toFloatOrZero"},
			{SourceField: "value", TargetField: "valor_original", Transform: "toFloatOrZero"},
			{SourceField: "updatedValue", TargetField: "valor_atualizado", Transform: "toFloat"},
			{SourceField: "updated_value", TargetField: "valor_atualizado", Transform: "toFloat"},
			{SourceField: "status", TargetField: "status", DefaultValue: "pending"},
			{SourceField: "observations", TargetField: "observacoes"},
			{SourceField: "notes", TargetField: "observacoes"},
		},
		References: []ReferenceRule{
			// 财务数据置空外键会破坏下游汇总，引用缺失直接拒绝
			{Column: "id_contrato", Entity: "sales-contracts", OnMissing: OnMissingFail},
		},
	},

	"accounts-payable": {
		Entity:      "accounts-payable",
		APIEndpoint: "/accounts-payable",
		TableName:   "titulos_pagar",
		PrimaryKey:  "id_titulo_pagar",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_titulo_pagar", Required: true},
			{SourceField: "companyId", TargetField: "id_empresa"},
			{SourceField: "company_id", TargetField: "id_empresa"},
			{SourceField: "creditorId", TargetField: "id_credor"},
			{SourceField: "creditor_id", TargetField: "id_credor"},
			{SourceField: "documentNumber", TargetField: "numero_documento", Required: true},
			{SourceField: "document_number", TargetField: "numero_documento", Required: true},
			{SourceField: "issueDate", TargetField: "data_emissao", Transform: "dateOrNow"},
			{SourceField: "dueDate", TargetField: "data_vencimento", Transform: "dateOrNow"},
			{SourceField: "originalValue", TargetField: "valor_original", Transform: "toFloatOrZero"},
			{SourceField: "value", TargetField: "valor_original", Transform: "toFloatOrZero"},
			{SourceField: "status", TargetField: "status", DefaultValue: "pending"},
			{SourceField: "observations", TargetField: "observacoes"},
		},
	},

	"sales-commissions": {
		Entity:      "sales-commissions",
		APIEndpoint: "/sales-commissions",
		TableName:   "comissoes_venda",
		PrimaryKey:  "id_comissao",
		FieldMappings: []FieldMapping{
			{SourceField: "id", TargetField: "id_comissao", Required: true},
			{SourceField: "contractId", TargetField: "id_contrato", Required: true},
			{SourceField: "contract_id", TargetField: "id_contrato"},
			{SourceField: "brokerId", TargetField: "id_corretor"},
			{SourceField: "broker_id", TargetField: "id_corretor"},
			{SourceField: "value", TargetField: "valor", Transform: "toFloatOrZero"},
			{SourceField: "percentage", TargetField: "percentual", Transform: "toFloat"},
			{SourceField: "installments", TargetField: "parcelas"},
			{SourceField: "status", TargetField: "status"},
			{SourceField: "createdAt", TargetField: "data_cadastro", Transform: "dateOrNow"},
			{SourceField: "updatedAt", TargetField: "data_atualizacao", Transform: "now"},
		},
		References: []ReferenceRule{
			{Column: "id_contrato", Entity: "sales-contracts", OnMissing: OnMissingFail},
		},
	},
}

// GetEndpointConfig 获取实体的端点配置
func GetEndpointConfig(entity string) *EndpointConfig {
	return EndpointConfigs[entity]
}

// HasEndpointConfig 检查实体是否有端点配置
func HasEndpointConfig(entity string) bool {
	_, ok := EndpointConfigs[entity]
	return ok
}

// ListConfiguredEntities 列出所有已配置的实体名
func ListConfiguredEntities() []string {
	entities := make([]string, 0, len(EndpointConfigs))
	for name := range EndpointConfigs {
		entities = append(entities, name)
	}
	return entities
}
