package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// updateSchemaJSON constrains manual edits coming from the API: every
// field is an optional string or null, no extra keys, and the three
// section statuses only take the known values.
const updateSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"razao_social":    {"type": ["string", "null"], "maxLength": 255},
		"nome_fantasia":   {"type": ["string", "null"], "maxLength": 255},
		"data_emissao":    {"type": ["string", "null"], "pattern": "^$|^\\d{2}/\\d{2}/\\d{4}$"},
		"validade":        {"type": ["string", "null"], "maxLength": 100},
		"cnpj":            {"type": ["string", "null"], "maxLength": 30},
		"telefone":        {"type": ["string", "null"], "maxLength": 50},
		"celular":         {"type": ["string", "null"], "maxLength": 50},
		"email":           {"type": ["string", "null"], "maxLength": 255},
		"pessoa_contato":  {"type": ["string", "null"], "maxLength": 255},
		"valor_total":     {"type": ["string", "null"], "maxLength": 50},
		"cod_vendedor":    {"type": ["string", "null"], "maxLength": 20},
		"data_vencimento": {"type": ["string", "null"], "pattern": "^$|^\\d{2}/\\d{2}/\\d{4}$"},
		"instalacao_status":    {"type": ["string", "null"], "enum": ["Incluso", "Não incluso", "Não informado", null]},
		"qualificacoes_status": {"type": ["string", "null"]},
		"treinamento_status":   {"type": ["string", "null"]},
		"garantia_resumo": {"type": ["string", "null"]},
		"garantia_texto":  {"type": ["string", "null"]},
		"observacoes":     {"type": ["string", "null"], "maxLength": 4000}
	}
}`

var (
	updateSchemaOnce sync.Once
	updateSchema     *jsonschema.Schema
	updateSchemaErr  error
)

// validateUpdatePayload checks the raw request body against the manual
// edit schema before it is decoded into the patch struct.
func validateUpdatePayload(body []byte) error {
	updateSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("proposta-update.json", strings.NewReader(updateSchemaJSON)); err != nil {
			updateSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		updateSchema, updateSchemaErr = compiler.Compile("proposta-update.json")
	})
	if updateSchemaErr != nil {
		return updateSchemaErr
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("unmarshal body: %w", err)
	}
	if err := updateSchema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
