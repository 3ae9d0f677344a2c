package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Shuttle API",
        "description": "Bus assignment advisor for the transport office",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Advisor", "description": "Assignment suggestions and the actions that resolve them"},
        {"name": "Announcements", "description": "Rider announcement feed"}
    ],
    "paths": {
        "/advisor/suggestions": {
            "get": {
                "tags": ["Advisor"],
                "summary": "Bus assignment suggestions for a date",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date", "description": "Defaults to today in the advisor timezone"}
                ],
                "responses": {
                    "200": {"description": "Suggestions ordered by priority", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed date", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Store unreachable, retryable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/actions": {
            "get": {
                "tags": ["Advisor"],
                "summary": "Latest advisor actions",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/actions/assign": {
            "post": {
                "tags": ["Advisor"],
                "summary": "Assign an Active bus to a schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionPayload"}}
                ],
                "responses": {
                    "200": {"description": "Applied; data carries the refreshed suggestions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Another action is in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "PARTIAL_ACTION, details list the applied steps", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "No write applied, retryable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/actions/activate": {
            "post": {
                "tags": ["Advisor"],
                "summary": "Set a bus Active",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/actions/extra-trip": {
            "post": {
                "tags": ["Advisor"],
                "summary": "Run an extra trip of a schedule on another bus",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/actions/deactivate": {
            "post": {
                "tags": ["Advisor"],
                "summary": "Take a bus out of service",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/actions/apply": {
            "post": {
                "tags": ["Advisor"],
                "summary": "Apply the current suggestion for a schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ActionPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Suggestion no longer applies", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/reports": {
            "post": {
                "tags": ["Advisor"],
                "summary": "Export the suggestions of a date as CSV or PDF",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored; data.url is a signed download link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisor/reports/download": {
            "get": {
                "tags": ["Advisor"],
                "summary": "Download an exported report",
                "security": [],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "403": {"description": "Invalid or expired link"}
                }
            }
        },
        "/advisor/schedules/{id}/occupancy": {
            "get": {
                "tags": ["Advisor"],
                "summary": "Seats booked and remaining on a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/announcements": {
            "get": {
                "tags": ["Announcements"],
                "summary": "Latest active announcements",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/announcements/{id}": {
            "patch": {
                "tags": ["Announcements"],
                "summary": "Show or hide an announcement",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAnnouncementRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ActionPayload": {
            "type": "object",
            "properties": {
                "scheduleId": {"type": "string"},
                "busId": {"type": "string"},
                "date": {"type": "string", "format": "date"}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "UpdateAnnouncementRequest": {
            "type": "object",
            "required": ["isActive"],
            "properties": {
                "isActive": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
