package constants

// Common error messages
const (
	ErrPleaseLogin        = "Please login to continue."
	ErrUnauthorized       = "Unauthorized"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrInvalidRequestBody = "Invalid request body"
	ErrUpstream           = "Upstream request failed"
	ErrUnknownPage        = "Unknown page"
	ErrUnknownFilter      = "Unknown filter or option"
	ErrNotSupported       = "Not supported on this page"
	ErrRateLimited        = "Too many requests"
)

// Validation messages
const (
	ErrMissingUnitQuery  = "project and unitNumber are required"
	ErrMissingDocID      = "docId is required"
	ErrMissingUploadFile = "file is required"
	ErrTooManyFiles      = "only one file can be imported at a time"
	ErrUnsupportedFile   = "only .xlsx, .xls and .csv files are accepted"
	ErrNothingToImport   = "no file selected"
	ErrImportInProgress  = "an import is already running"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeXLS  = "application/vnd.ms-excel"
	ContentTypeCSV  = "text/csv"
	ContentTypeSSE  = "text/event-stream"
)

// Headers
const (
	HeaderAccessControlAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
	HeaderContentDisposition        = "Content-Disposition"
)

// Cookies
const (
	CookieAuthToken = "authToken"
	CookieToken     = "token"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
)
