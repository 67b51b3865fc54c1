// Package docs registers the OpenAPI document of the Ancestor HTTP API with
// swag. Regenerate with `swag init -g cmd/ancestord/docs.go -o internal/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ancestor": {
            "get": {
                "produces": ["application/json", "audio/mpeg"],
                "tags": ["ancestor"],
                "summary": "Ask Ancestor (query string)",
                "parameters": [
                    {"type": "string", "description": "User question", "name": "q", "in": "query", "required": true},
                    {"type": "boolean", "description": "Return synthesized speech instead of JSON", "name": "audio", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ancestor"],
                "summary": "Ask Ancestor",
                "parameters": [
                    {"description": "Conversation", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.AskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/ancestor/stream": {
            "post": {
                "description": "Plain text by default: each write is the text added since the previous one.\nWith format=ndjson every line is a types.StreamChunk and the last one has done=true.",
                "consumes": ["application/json"],
                "produces": ["text/plain", "application/x-ndjson"],
                "tags": ["ancestor"],
                "summary": "Ask Ancestor (streamed)",
                "parameters": [
                    {"description": "Conversation", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.AskRequest"}},
                    {"type": "string", "description": "text (default) or ndjson", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Engine and model status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ChatMessage": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "example": "user"},
                "content": {"type": "string", "example": "What does the baobab teach us?"}
            }
        },
        "types.AskRequest": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/types.ChatMessage"}},
                "tts": {"type": "boolean", "example": false},
                "max_tokens": {"type": "integer", "example": 180}
            }
        },
        "types.AskResponse": {
            "type": "object",
            "properties": {
                "response": {"type": "string", "example": "Patience, child. The river does not hurry, yet it reaches the sea."},
                "tts_file": {"type": "string", "example": "tts_output/6f1c0f3e.wav"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "No user message found in messages[]"},
                "code": {"type": "integer", "example": 400}
            }
        },
        "types.EngineStatus": {
            "type": "object",
            "properties": {
                "backend": {"type": "string", "example": "cli"},
                "state": {"type": "string", "example": "ready"},
                "busy": {"type": "boolean", "example": true},
                "waiters": {"type": "integer", "example": 2},
                "breaker": {"type": "string", "example": "closed"},
                "last_error": {"type": "string"},
                "generations_total": {"type": "integer", "example": 12},
                "fallbacks_total": {"type": "integer", "example": 1}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "capybarahermes-2.5-mistral-7b.Q3_K_S"},
                "name": {"type": "string", "example": "capybarahermes-2.5-mistral-7b"},
                "path": {"type": "string"},
                "quant": {"type": "string", "example": "Q3_K_S"},
                "size_bytes": {"type": "integer", "example": 3164567552}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "engine": {"$ref": "#/definitions/types.EngineStatus"},
                "model": {"$ref": "#/definitions/types.Model"},
                "speech": {"type": "string", "example": "none"},
                "uptime_seconds": {"type": "integer", "example": 3600},
                "server_time_unix": {"type": "integer", "example": 1700000000}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "ancestord API",
	Description:      "Ancestor conversational inference over a local llama.cpp model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
