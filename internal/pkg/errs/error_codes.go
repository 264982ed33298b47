/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Member, Graph, and Content Business Logic Errors
const (
	// ErrMemberNotFound indicates that the referenced member id does not exist.
	ErrMemberNotFound = 2101

	// ErrSelfRequest indicates an attempt to send or accept a friend request targeting oneself.
	ErrSelfRequest = 2102

	// ErrMessageContentTooLong indicates that a chat message exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates that an upload exceeded the maximum allowed file size.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates that an upload's name or MIME type is not an accepted image type.
	ErrFileTypeInvalid = 2302
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates the caller has no valid authenticated identity.
	ErrUnauthorized = 3001

	// ErrAlreadyLoggedIn indicates that an authenticated caller attempted signup or login again.
	ErrAlreadyLoggedIn = 3002

	// ErrInvalidName indicates that the supplied display name failed validation.
	ErrInvalidName = 3003

	// ErrInvalidEmail indicates that the supplied email address failed validation.
	ErrInvalidEmail = 3004

	// ErrInvalidAge indicates that the supplied age is outside the accepted range.
	ErrInvalidAge = 3005

	// ErrInvalidPassword indicates that the supplied password failed validation.
	ErrInvalidPassword = 3006

	// ErrEmailAlreadyExists indicates that a member with the given email is already registered.
	ErrEmailAlreadyExists = 3007

	// ErrInvalidCredentials indicates that the email/password pair did not match a member.
	ErrInvalidCredentials = 3008
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the object storage service rejected an operation.
	ErrFileStorageFailed = 5001
)
