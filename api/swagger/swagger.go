package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Allocation API",
        "description": "Time-slot generation, course-request lifecycle and allocation engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "TimeSlots", "description": "Discrete teaching slot generation"},
        {"name": "CourseRequests", "description": "Staffing request lifecycle"},
        {"name": "Blocks", "description": "Class timetable allocation"},
        {"name": "Exams", "description": "Exam session scheduling"},
        {"name": "Schedule", "description": "Schedule state management"},
        {"name": "Exports", "description": "Asynchronous timetable exports"}
    ],
    "paths": {
        "/slots/generate": {
            "post": {
                "tags": ["TimeSlots"],
                "summary": "Generate fixed-length time slots for a shift",
                "responses": {
                    "200": {"description": "Replacement slot set"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/slots/distribution": {
            "post": {
                "tags": ["TimeSlots"],
                "summary": "Generate day-scoped slots from a length distribution",
                "responses": {
                    "200": {"description": "Replacement slot set"},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/slots": {
            "get": {
                "tags": ["TimeSlots"],
                "summary": "List time slots for a shift",
                "responses": {
                    "200": {"description": "Slots"}
                }
            }
        },
        "/course-requests/generate": {
            "post": {
                "tags": ["CourseRequests"],
                "summary": "Generate pending requests for uncovered offerings",
                "responses": {
                    "200": {"description": "Created and skipped counts"}
                }
            }
        },
        "/course-requests": {
            "get": {
                "tags": ["CourseRequests"],
                "summary": "List course requests by status",
                "responses": {
                    "200": {"description": "Requests"}
                }
            }
        },
        "/course-requests/{id}/accept": {
            "post": {
                "tags": ["CourseRequests"],
                "summary": "Accept a pending request with teaching preferences",
                "responses": {
                    "200": {"description": "Acceptance with undo deadline"},
                    "409": {"description": "Request no longer pending"}
                }
            }
        },
        "/course-requests/{id}/undo": {
            "post": {
                "tags": ["CourseRequests"],
                "summary": "Undo a recent acceptance while its window is open",
                "responses": {
                    "200": {"description": "Request returned to pending"},
                    "410": {"description": "Undo window expired"}
                }
            }
        },
        "/blocks/generate": {
            "post": {
                "tags": ["Blocks"],
                "summary": "Run the block allocator over accepted requests",
                "responses": {
                    "200": {"description": "Blocks created and unassigned report"}
                }
            }
        },
        "/blocks": {
            "get": {
                "tags": ["Blocks"],
                "summary": "List committed blocks",
                "responses": {
                    "200": {"description": "Blocks"}
                }
            }
        },
        "/blocks/{id}": {
            "patch": {
                "tags": ["Blocks"],
                "summary": "Manually relocate a block to a new room, day and slot",
                "responses": {
                    "200": {"description": "Moved block"},
                    "409": {"description": "Target placement conflicts with an existing block"}
                }
            }
        },
        "/blocks/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the class timetable as CSV or PDF",
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        },
        "/exams/sessions": {
            "post": {
                "tags": ["Exams"],
                "summary": "Schedule an exam session across its calendar window",
                "responses": {
                    "200": {"description": "Exams created and conflict report"}
                }
            }
        },
        "/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List scheduled exams",
                "responses": {
                    "200": {"description": "Exams"}
                }
            }
        },
        "/schedule/reset": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Clear generated scheduling state by scope",
                "responses": {
                    "200": {"description": "Reset summary"}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a timetable or exam-plan export",
                "responses": {
                    "202": {"description": "Job queued"}
                }
            }
        },
        "/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Report an export job state and download URL",
                "responses": {
                    "200": {"description": "Job status"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "Envelope": {
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
