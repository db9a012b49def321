// Package docs holds the OpenAPI description served by the preview API under /docs.
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
        "/": {
            "get": {
                "description": "Get basic HUD information and capabilities",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "HUD information",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.InfoResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Check if the HUD is up and whether its render loop is running",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HealthResponse"}}
                }
            }
        },
        "/state": {
            "get": {
                "description": "Scores, top emotion and face box as last rendered",
                "produces": ["application/json"],
                "tags": ["hud"],
                "summary": "Current HUD state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HUDSnapshot"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/stream.mjpeg": {
            "get": {
                "description": "Multipart MJPEG stream of the frames shown in the HUD window",
                "produces": ["multipart/x-mixed-replace"],
                "tags": ["hud"],
                "summary": "Live annotated stream",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/system/stats": {
            "get": {
                "description": "Get process statistics and preview counters",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Get system stats",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "no frame rendered yet"}
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "loop": {"type": "string", "example": "running"},
                "session_id": {"type": "string", "example": "laptop-4242"},
                "status": {"type": "string", "example": "healthy"}
            }
        },
        "handlers.InfoResponse": {
            "type": "object",
            "properties": {
                "capabilities": {"type": "array", "items": {"type": "string"}},
                "session_id": {"type": "string", "example": "laptop-4242"},
                "status": {"type": "string", "example": "running"},
                "version": {"type": "string", "example": "1.0.0"}
            }
        },
        "models.FaceBox": {
            "type": "object",
            "properties": {
                "h": {"type": "integer"},
                "w": {"type": "integer"},
                "x": {"type": "integer"},
                "y": {"type": "integer"}
            }
        },
        "models.HUDSnapshot": {
            "type": "object",
            "properties": {
                "face_box": {"$ref": "#/definitions/models.FaceBox"},
                "scores": {"type": "object", "additionalProperties": {"type": "number"}},
                "top_confidence": {"type": "integer"},
                "top_emotion": {"type": "string"},
                "updated_at": {"type": "string"},
                "updates": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Emotion HUD Preview API",
	Description:      "Read-only view of the webcam emotion HUD: live annotated MJPEG stream and the current emotion reading",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
