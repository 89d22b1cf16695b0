/*
Package user contains the wire-level representation of an account identity.

The User struct is what presence events and member lists carry to clients;
credential material never leaves the database layer.
*/
package user

// User represents the identity of a board participant as sent to clients.
type User struct {
	// ID is the account identifier, authoritative for authorship and
	// ownership checks across the drawing protocol.
	ID string `json:"id"`

	// Username is the display name shown in member lists.
	Username string `json:"username"`

	// Email is the registered email address.
	Email string `json:"email,omitempty"`
}
