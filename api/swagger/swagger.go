package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Report API",
        "description": "Cross-store attendance reports over PostgreSQL, Neo4j, Redis and Elasticsearch",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Reports", "description": "Attendance and requirement reports"},
        {"name": "Internal", "description": "Change-feed ingestion"},
        {"name": "Health", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Liveness probe with a metrics snapshot",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness probe pinging every store",
                "responses": {
                    "200": {"description": "All stores answered", "schema": {"$ref": "#/definitions/Readiness"}},
                    "503": {"description": "At least one store is down", "schema": {"$ref": "#/definitions/Readiness"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Health"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Prometheus exposition format"}
                }
            }
        },
        "/api/v1/reports/visits": {
            "get": {
                "tags": ["Reports"],
                "summary": "Lowest attendance on lectures matching a term",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "term", "in": "query", "required": true, "type": "string", "description": "Free-text term matched against lecture material"},
                    {"name": "start_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end_date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"$ref": "#/parameters/format"}
                ],
                "responses": {
                    "200": {"description": "Up to ten rows ranked by ascending attendance", "schema": {"$ref": "#/definitions/TermReportEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "500": {"$ref": "#/responses/QueryError"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/api/v1/reports/course-requirements": {
            "get": {
                "tags": ["Reports"],
                "summary": "Lecture requirements and auditorium suitability for a course",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "course_name", "in": "query", "required": true, "type": "string", "description": "Case-insensitive course name fragment"},
                    {"name": "semester", "in": "query", "required": true, "type": "integer", "minimum": 1, "maximum": 8},
                    {"name": "year", "in": "query", "required": true, "type": "integer", "minimum": 2020, "maximum": 2030},
                    {"$ref": "#/parameters/format"}
                ],
                "responses": {
                    "200": {"description": "One row per scheduled lecture", "schema": {"$ref": "#/definitions/CourseReportEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "500": {"$ref": "#/responses/QueryError"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/api/v1/reports/group": {
            "get": {
                "tags": ["Reports"],
                "summary": "Attended hours of a group on courses with requirement lectures",
                "produces": ["application/json", "text/csv", "application/pdf"],
                "parameters": [
                    {"name": "group_name", "in": "query", "required": true, "type": "string"},
                    {"$ref": "#/parameters/format"}
                ],
                "responses": {
                    "200": {"description": "One row per student and course", "schema": {"$ref": "#/definitions/GroupReportEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "404": {"description": "Unknown group", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"$ref": "#/responses/QueryError"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/api/v1/internal/cdc/students": {
            "post": {
                "tags": ["Internal"],
                "summary": "Apply a students table change event to the cache",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StudentChangeEvent"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        }
    },
    "parameters": {
        "format": {"name": "format", "in": "query", "required": false, "type": "string", "enum": ["json", "csv", "pdf"], "default": "json"}
    },
    "responses": {
        "BadRequest": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
        "QueryError": {"description": "A store rejected a query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
        "Unavailable": {"description": "A store is unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
    },
    "definitions": {
        "TermAttendanceItem": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "full_name": {"type": "string"},
                "group_name": {"type": "string"},
                "department": {"type": "string"},
                "course_name": {"type": "string"},
                "lecture_id": {"type": "integer"},
                "lecture_name": {"type": "string"},
                "attendance_percentage": {"type": "number", "x-nullable": true},
                "period_start": {"type": "string", "format": "date"},
                "period_end": {"type": "string", "format": "date"},
                "matching_term": {"type": "string"},
                "date_of_admission": {"type": "string"}
            }
        },
        "CourseRequirementItem": {
            "type": "object",
            "properties": {
                "course_id": {"type": "integer"},
                "course_name": {"type": "string"},
                "lecture_id": {"type": "integer"},
                "lecture_topic": {"type": "string"},
                "tech_requirements": {"type": "string"},
                "auditorium": {"type": "string"},
                "student_count": {"type": "integer"},
                "current_capacity": {"type": "integer"},
                "is_suitable": {"type": "boolean"},
                "semester": {"type": "integer"},
                "year": {"type": "integer"}
            }
        },
        "GroupAttendanceItem": {
            "type": "object",
            "properties": {
                "group_name": {"type": "string"},
                "student_id": {"type": "integer"},
                "student_name": {"type": "string"},
                "course_id": {"type": "integer"},
                "course_name": {"type": "string"},
                "planned_hours": {"type": "integer"},
                "attended_hours": {"type": "integer"},
                "department": {"type": "string"},
                "date_of_admission": {"type": "string"}
            }
        },
        "StudentChangeEvent": {
            "type": "object",
            "properties": {
                "key": {"type": "object", "properties": {"id": {"type": "integer"}}},
                "after": {"type": "object", "x-nullable": true}
            }
        },
        "StoreStatus": {
            "type": "object",
            "properties": {
                "store": {"type": "string"},
                "status": {"type": "string", "enum": ["up", "down"]},
                "error": {"type": "string"}
            }
        },
        "Readiness": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "stores": {"type": "array", "items": {"$ref": "#/definitions/StoreStatus"}}
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
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "TermReportEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/TermAttendanceItem"}},
                "meta": {"type": "object"}
            }
        },
        "CourseReportEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/CourseRequirementItem"}},
                "meta": {"type": "object"}
            }
        },
        "GroupReportEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/GroupAttendanceItem"}},
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
