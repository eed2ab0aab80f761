package persistence

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// snapshotSchema describes the shape a persisted snapshot may take. Every
// field is optional because absent fields are filled from the defaults; the
// schema only rejects fields that are present with the wrong shape.
const snapshotSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "user": {
      "type": ["object", "null"],
      "properties": {
        "username": {"type": "string"},
        "title": {"type": "string"},
        "avatarId": {"type": "string"},
        "holdingId": {"type": "string"},
        "creationDate": {"type": "number"}
      }
    },
    "money": {"type": "number"},
    "gems": {"type": "number"},
    "totalMoneyEarned": {"type": "number"},
    "hasCompletedIntro": {"type": "boolean"},
    "day": {"type": "integer"},
    "timeOfDay": {"type": "number"},
    "companies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string"},
          "type": {"type": "string"},
          "level": {"type": "integer"},
          "unlocked": {"type": "boolean"},
          "employees": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["role"],
              "properties": {
                "id": {"type": "string"},
                "role": {"type": "string"},
                "dailySalary": {"type": "number"},
                "efficiency": {"type": "number"},
                "isPaused": {"type": "boolean"}
              }
            }
          }
        }
      }
    },
    "foodtruckMastery": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "level": {"type": "integer"},
          "xp": {"type": "integer"},
          "xpMax": {"type": "integer"}
        }
      }
    },
    "foodtruckUpgrades": {
      "type": "object",
      "properties": {
        "unlockedIngredients": {"type": ["array", "null"], "items": {"type": "string"}}
      }
    },
    "freelanceUpgrades": {
      "type": "object",
      "properties": {
        "ownedThemes": {"type": ["array", "null"], "items": {"type": "string"}},
        "activeThemeId": {"type": "string"}
      }
    },
    "achievements": {
      "type": ["array", "null"],
      "items": {"type": "object", "required": ["id"], "properties": {"id": {"type": "string"}}}
    },
    "lastSavedAt": {"type": "number"},
    "lastOnlineAt": {"type": "number"}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("snapshot.schema.json", snapshotSchema)
	})
	return schema, schemaErr
}

// ValidateSnapshot checks raw JSON against the snapshot schema.
func ValidateSnapshot(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile snapshot schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("snapshot schema: %w", err)
	}
	return nil
}
