/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the
server and in messages sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Stroke Business Logic Errors
const (
	// ErrRoomNotFound indicates that the referenced room does not exist.
	ErrRoomNotFound = 2101

	// ErrRoomNameExists indicates that the requested room name is already taken.
	ErrRoomNameExists = 2102

	// ErrInvalidRoomName indicates that the room name is outside the 3-50 character bounds.
	ErrInvalidRoomName = 2103

	// ErrStrokeNotFound indicates that the referenced stroke is absent or not
	// authored by the caller. The two cases are deliberately not distinguished
	// toward the caller.
	ErrStrokeNotFound = 2201

	// ErrInvalidStroke indicates a malformed stroke payload (missing id or empty points).
	ErrInvalidStroke = 2202

	// ErrNotInRoom indicates a stroke or clear operation for a room the caller has not joined.
	ErrNotInRoom = 2203
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid bearer credential.
	ErrUnauthorized = 3001

	// ErrInvalidCredentials indicates that email/password verification failed.
	ErrInvalidCredentials = 3002

	// ErrEmailAlreadyExists indicates the registration email is already registered.
	ErrEmailAlreadyExists = 3003

	// ErrInvalidUsername indicates a username outside the 3-30 character bounds.
	ErrInvalidUsername = 3004

	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = 3005

	// ErrInvalidPassword indicates a password shorter than 6 characters.
	ErrInvalidPassword = 3006

	// ErrAlreadyLoggedIn indicates a register/login attempt with a valid session.
	ErrAlreadyLoggedIn = 3007
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified server internal error.
	ErrUnknown = 5000

	// ErrStorageFailure indicates a persistence layer failure for one operation.
	ErrStorageFailure = 5001
)
