/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to CustomError templates, used to
standardize HTTP responses and WebSocket error events.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// A zero Status means HTTP 200 with a non-zero business code, which is how
// recoverable protocol errors are reported.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Stroke Business Logic Errors
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Room not found."},
	ErrRoomNameExists:  {Code: ErrRoomNameExists, Message: "Room name already exists."},
	ErrInvalidRoomName: {Code: ErrInvalidRoomName, Message: "Room name should have 3 to 50 characters."},
	ErrStrokeNotFound:  {Code: ErrStrokeNotFound, Message: "Stroke not found or not yours."},
	ErrInvalidStroke:   {Code: ErrInvalidStroke, Message: "Invalid stroke data."},
	ErrNotInRoom:       {Code: ErrNotInRoom, Message: "You have not joined this room."},

	// 3xxx: User, Session, and Security Errors
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Invalid credentials."},
	ErrEmailAlreadyExists: {Code: ErrEmailAlreadyExists, Message: "Email already registered."},
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Username should have 3 to 30 characters."},
	ErrInvalidEmail:       {Code: ErrInvalidEmail, Message: "Email must be valid."},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Password should be at least 6 characters."},
	ErrAlreadyLoggedIn:    {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},

	// 5xxx: Internal System Errors
	ErrUnknown:        {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageFailure: {Code: ErrStorageFailure, Message: "Unable to save your changes. Please try again."},
}
