package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Class Scheduling API",
        "description": "Conflict-checked booking of class schedules, teacher availability and rooms",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedules", "description": "Class schedule booking and suggestions"},
        {"name": "Availability", "description": "Teacher availability intervals"},
        {"name": "Rooms", "description": "Dated room bookings and overrides"},
        {"name": "Exports", "description": "Timetable documents"}
    ],
    "paths": {
        "/schedules/class": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Book a class schedule",
                "description": "Commits the slot when no teacher, room or class conflict exists. Conflicts are returned with success=false and HTTP 200.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Resources busy", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "put": {
                "tags": ["Schedules"],
                "summary": "Update a class schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateClassScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated or conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete a class schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/schedules/class/{classId}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List a class's schedule",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/teacher/{teacherId}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List a teacher's schedule",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "startDate", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "endDate", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Inverted window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/room/{roomId}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List a room's schedule",
                "parameters": [
                    {"name": "roomId", "in": "path", "required": true, "type": "string"},
                    {"name": "startDate", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "endDate", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Inverted window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/available-slots": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Suggest free periods for a teacher",
                "description": "At most five conflict-free standard periods, best score first.",
                "parameters": [
                    {"name": "teacherId", "in": "query", "required": true, "type": "string"},
                    {"name": "rooms", "in": "query", "required": true, "type": "string", "description": "Comma separated room IDs"},
                    {"name": "startDate", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "endDate", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "preferredDays", "in": "query", "type": "string", "description": "Comma separated weekdays, 0=Sunday"}
                ],
                "responses": {
                    "200": {"description": "Suggestions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/open-days": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List weekdays free for a whole teaching day",
                "parameters": [
                    {"name": "teacherId", "in": "query", "required": true, "type": "string"},
                    {"name": "roomId", "in": "query", "required": true, "type": "string"},
                    {"name": "startDate", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "endDate", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{owner}/{id}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export a teacher, room or class timetable",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "owner", "in": "path", "required": true, "type": "string", "enum": ["teacher", "room", "class"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]},
                    {"name": "startDate", "in": "query", "type": "string", "format": "date", "description": "Required for teacher and room timetables"},
                    {"name": "endDate", "in": "query", "type": "string", "format": "date", "description": "Required for teacher and room timetables"}
                ],
                "responses": {
                    "200": {"description": "Document", "schema": {"type": "file"}}
                }
            }
        },
        "/schedules/import": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Import class schedules from an XLSX workbook",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "Per-row outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unreadable workbook", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{teacherId}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get teacher availability",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "startDate", "in": "query", "type": "string", "format": "date"},
                    {"name": "endDate", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace teacher availability intervals",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Clear teacher availability",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "days", "in": "query", "required": true, "type": "string", "description": "Comma separated weekdays, 0=Sunday"}
                ],
                "responses": {
                    "200": {"description": "Removed count", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/available": {
            "get": {
                "tags": ["Availability"],
                "summary": "Find teachers available for an interval",
                "parameters": [
                    {"name": "dayOfWeek", "in": "query", "required": true, "type": "integer"},
                    {"name": "startTime", "in": "query", "required": true, "type": "string"},
                    {"name": "endTime", "in": "query", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Teacher IDs", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/available": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Find rooms free for an interval",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "startTime", "in": "query", "required": true, "type": "string"},
                    {"name": "endTime", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Room IDs", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{roomId}/bookings": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List room bookings",
                "parameters": [
                    {"name": "roomId", "in": "path", "required": true, "type": "string"},
                    {"name": "startDate", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "endDate", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rooms"],
                "summary": "Book a room",
                "parameters": [
                    {"name": "roomId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Rooms"],
                "summary": "Cancel a room booking",
                "parameters": [
                    {"name": "roomId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomSlotRequest"}}
                ],
                "responses": {
                    "204": {"description": "Cancelled"},
                    "404": {"description": "No such booking", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{roomId}/status": {
            "put": {
                "tags": ["Rooms"],
                "summary": "Override a room interval status",
                "parameters": [
                    {"name": "roomId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoomStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateClassScheduleRequest": {
            "type": "object",
            "required": ["classId", "teacherId", "roomId", "dayOfWeek", "startTime", "endTime", "startDate", "endDate"],
            "properties": {
                "classId": {"type": "string"},
                "teacherId": {"type": "string"},
                "roomId": {"type": "string"},
                "dayOfWeek": {"type": "integer", "minimum": 0, "maximum": 6},
                "startTime": {"type": "string", "example": "08:00"},
                "endTime": {"type": "string", "example": "09:30"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"}
            }
        },
        "UpdateClassScheduleRequest": {
            "type": "object",
            "properties": {
                "classId": {"type": "string"},
                "teacherId": {"type": "string"},
                "roomId": {"type": "string"},
                "dayOfWeek": {"type": "integer", "minimum": 0, "maximum": 6},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"}
            }
        },
        "UpdateAvailabilityRequest": {
            "type": "object",
            "required": ["status", "slots"],
            "properties": {
                "status": {"type": "string", "enum": ["available", "busy", "preferred"]},
                "slots": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "dayOfWeek": {"type": "integer"},
                            "startTime": {"type": "string"},
                            "endTime": {"type": "string"},
                            "date": {"type": "string", "format": "date"}
                        }
                    }
                }
            }
        },
        "RoomSlotRequest": {
            "type": "object",
            "required": ["date", "startTime", "endTime"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"}
            }
        },
        "RoomStatusRequest": {
            "type": "object",
            "required": ["date", "startTime", "endTime", "status"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "startTime": {"type": "string"},
                "endTime": {"type": "string"},
                "status": {"type": "string", "enum": ["booked", "available", "maintenance"]}
            }
        },
        "ScheduleConflict": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["teacher", "room", "class"]},
                "entityId": {"type": "string"},
                "existingSchedule": {"type": "object"},
                "existingInterval": {"type": "object"},
                "requestedSlot": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "conflicts": {"type": "array", "items": {"$ref": "#/definitions/ScheduleConflict"}},
                "message": {"type": "string"},
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
