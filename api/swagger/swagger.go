package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EduPay API",
        "description": "School fee management backend",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Accounts, sessions and tokens"},
        {"name": "Students", "description": "Student roster management"},
        {"name": "Fees", "description": "Fee types and fee assignment"},
        {"name": "Payments", "description": "Payment recording and statistics"},
        {"name": "Dashboard", "description": "Aggregated collection overview"},
        {"name": "Reports", "description": "Asynchronous report exports"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register dashboard account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {
                    "204": {"description": "Revoked"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "responses": {
                    "204": {"description": "Changed"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "Profile"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "grade", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Student page", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Duplicate student_id or email"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "x-student-id", "in": "header", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Student"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "responses": {
                    "200": {"description": "Updated"}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student",
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Dependent fee records exist"}
                }
            }
        },
        "/fees/student/{id}": {
            "get": {
                "tags": ["Fees"],
                "summary": "List a student's fees ordered by due date",
                "responses": {
                    "200": {"description": "Fees"}
                }
            }
        },
        "/payments/student/{id}": {
            "get": {
                "tags": ["Payments"],
                "summary": "List payments across a student's fees, newest first",
                "responses": {
                    "200": {"description": "Payments"}
                }
            }
        },
        "/fees/types": {
            "get": {
                "tags": ["Fees"],
                "summary": "List fee types",
                "responses": {
                    "200": {"description": "Fee types"}
                }
            },
            "post": {
                "tags": ["Fees"],
                "summary": "Create fee type",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/fees/types/{id}": {
            "delete": {
                "tags": ["Fees"],
                "summary": "Delete fee type",
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Fees reference this type"}
                }
            }
        },
        "/fees": {
            "get": {
                "tags": ["Fees"],
                "summary": "List fees",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "partial", "paid"]}
                ],
                "responses": {
                    "200": {"description": "Fee page"}
                }
            },
            "post": {
                "tags": ["Fees"],
                "summary": "Assign fee to student",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/fees/{id}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Get fee detail",
                "responses": {
                    "200": {"description": "Fee"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Fees"],
                "summary": "Delete fee",
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Payments recorded against fee"}
                }
            }
        },
        "/fees/{id}/status": {
            "patch": {
                "tags": ["Fees"],
                "summary": "Override fee status",
                "responses": {
                    "200": {"description": "Updated fee"},
                    "400": {"description": "Unknown status value"}
                }
            }
        },
        "/payments/fee/{id}": {
            "get": {
                "tags": ["Payments"],
                "summary": "List payments for a fee, newest first",
                "responses": {
                    "200": {"description": "Payments"}
                }
            }
        },
        "/payments": {
            "post": {
                "tags": ["Payments"],
                "summary": "Record payment and settle fee status",
                "responses": {
                    "201": {"description": "Receipt with new fee status"},
                    "400": {"description": "Invalid payload"},
                    "404": {"description": "Fee not found"}
                }
            }
        },
        "/payments/stats": {
            "get": {
                "tags": ["Payments"],
                "summary": "Payment statistics over the trailing window",
                "responses": {
                    "200": {"description": "Aggregates"}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Server-computed dashboard totals",
                "responses": {
                    "200": {"description": "Summary"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue report export",
                "responses": {
                    "202": {"description": "Job queued"}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "responses": {
                    "200": {"description": "Status and result URL"}
                }
            }
        },
        "/reports/download/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download generated report via signed token",
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
