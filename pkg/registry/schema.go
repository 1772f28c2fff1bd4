package registry

// templateSchema is the structural JSON Schema every template document must
// satisfy before struct-level and graph-level validation run.
const templateSchema = `{
	"type": "object",
	"required": ["id", "version", "name", "application_type", "start_stage_id", "stages"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"version": {"type": "integer", "minimum": 1},
		"name": {"type": "string", "minLength": 3},
		"application_type": {"type": "string", "minLength": 1},
		"status": {"type": "string", "enum": ["draft", "active", "retired"]},
		"start_stage_id": {"type": "string", "minLength": 1},
		"stages": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "name"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"sequence": {"type": "integer"},
					"required_document_types": {"type": "array", "items": {"type": "string"}},
					"required_action_keys": {"type": "array", "items": {"type": "string"}},
					"assigned_role_id": {"type": "string"},
					"notification_triggers": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["event_key", "template_key", "channels"],
							"properties": {
								"event_key": {"type": "string", "minLength": 1},
								"template_key": {"type": "string", "minLength": 1},
								"channels": {
									"type": "array",
									"minItems": 1,
									"items": {"type": "string", "enum": ["email", "sms", "in_app"]}
								}
							}
						}
					}
				}
			}
		},
		"transitions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "name", "source_stage_id", "target_stage_id"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string", "minLength": 1},
					"source_stage_id": {"type": "string", "minLength": 1},
					"target_stage_id": {"type": "string", "minLength": 1},
					"is_automatic": {"type": "boolean"},
					"required_permissions": {"type": "array", "items": {"type": "string"}},
					"condition": {"$ref": "#/definitions/condition"}
				}
			}
		}
	},
	"definitions": {
		"condition": {
			"type": "object",
			"properties": {
				"combinator": {"type": "string", "enum": ["ALL", "ANY"]},
				"children": {
					"type": "array",
					"items": {"$ref": "#/definitions/condition"}
				},
				"field": {"type": "string"},
				"operator": {
					"type": "string",
					"enum": ["=", "!=", ">", ">=", "<", "<=", "contains", "in", "not_in"]
				},
				"value": {}
			}
		}
	}
}`
