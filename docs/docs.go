// Package docs holds the Swagger spec served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "description": "Service health, version and number of loaded audit rules",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/api/audit/email": {
            "post": {
                "description": "Evaluate one email against every active rule",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Audit a single email",
                "parameters": [
                    {"description": "Email to audit", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AuditEmailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.EmailEvaluation"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/audit/thread": {
            "post": {
                "description": "Evaluate every email of a thread in chronological order and summarize the result.\nWhen notifyEmail is set the report is also emailed to that address.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Audit an email thread",
                "parameters": [
                    {"description": "Thread to audit", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AuditThreadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ThreadAuditReport"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/audit/upload": {
            "post": {
                "description": "Parse .eml and .mbox uploads, group the emails into threads and audit each thread",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["audit"],
                "summary": "Audit uploaded email files",
                "parameters": [
                    {"type": "file", "description": "One or more .eml or .mbox files", "name": "files", "in": "formData", "required": true},
                    {"type": "string", "description": "Employee whose replies are audited", "name": "employeeEmail", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.UploadAuditResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/rules": {
            "get": {
                "description": "Active rules in evaluation order",
                "produces": ["application/json"],
                "tags": ["rules"],
                "summary": "List audit rules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RulesResponse"}}
                }
            }
        },
        "/api/admin/login": {
            "post": {
                "description": "Authenticate admin user and receive a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Admin login",
                "parameters": [
                    {"description": "Login credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/admin/rules/reload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Re-read the rule configuration file",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Reload audit rules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RulesResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.UploadAuditResponse": {
            "type": "object",
            "properties": {
                "emails": {"type": "integer"},
                "threads": {"type": "integer"},
                "reports": {"type": "array", "items": {"$ref": "#/definitions/models.ThreadAuditReport"}}
            }
        },
        "models.Attachment": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "contentType": {"type": "string"}
            }
        },
        "models.Email": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "from": {"type": "string"},
                "to": {"type": "string"},
                "date": {"type": "string"},
                "text": {"type": "string"},
                "html": {"type": "string"},
                "messageId": {"type": "string"},
                "inReplyTo": {"type": "string"},
                "references": {"type": "array", "items": {"type": "string"}},
                "attachments": {"type": "array", "items": {"$ref": "#/definitions/models.Attachment"}},
                "threadId": {"type": "string"}
            }
        },
        "models.AuditEmailRequest": {
            "type": "object",
            "properties": {
                "email": {"$ref": "#/definitions/models.Email"}
            }
        },
        "models.AuditThreadRequest": {
            "type": "object",
            "properties": {
                "emails": {"type": "array", "items": {"$ref": "#/definitions/models.Email"}},
                "employeeEmail": {"type": "string", "example": "agent@example.com"},
                "notifyEmail": {"type": "string", "example": "lead@example.com"}
            }
        },
        "models.RuleEvaluationResult": {
            "type": "object",
            "properties": {
                "ruleId": {"type": "string"},
                "ruleName": {"type": "string"},
                "score": {"type": "number"},
                "passed": {"type": "boolean"},
                "justification": {"type": "string"}
            }
        },
        "models.EmailEvaluation": {
            "type": "object",
            "properties": {
                "messageId": {"type": "string"},
                "totalScore": {"type": "number"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/models.RuleEvaluationResult"}},
                "suggestions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.ThreadAuditReport": {
            "type": "object",
            "properties": {
                "auditId": {"type": "string"},
                "threadId": {"type": "string"},
                "employeeEmail": {"type": "string"},
                "generatedAt": {"type": "string"},
                "averageThreadScore": {"type": "number"},
                "emailEvaluations": {"type": "array", "items": {"$ref": "#/definitions/models.EmailEvaluation"}},
                "overallStrengths": {"type": "string"},
                "overallImprovementAreas": {"type": "string"},
                "topSuggestions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "Request body must contain a non-empty array of emails."},
                "details": {"type": "string"}
            }
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "timestamp": {"type": "string", "example": "2023-01-01T00:00:00Z"},
                "version": {"type": "string", "example": "1.0.0"},
                "rules_loaded": {"type": "integer", "example": 5}
            }
        },
        "models.RuleSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "type": {"type": "string"},
                "expectedOutputFormat": {"type": "string"},
                "weight": {"type": "number"},
                "condition": {"type": "string"}
            }
        },
        "models.RulesResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer", "example": 5},
                "rules": {"type": "array", "items": {"$ref": "#/definitions/models.RuleSummary"}}
            }
        },
        "models.LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "models.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Mail Audit API",
	Description:      "Audits email threads against configurable communication-quality rules.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
