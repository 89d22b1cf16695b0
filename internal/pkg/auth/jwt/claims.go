package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims carried by a syncboard identity token.
// The ID claim is the account identity bound to every WebSocket connection;
// it is the only authoritative author key for strokes and ownership checks.
type Payload struct {
	// StandardClaims embeds Exp, Iat and Iss, used for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the account identifier of the authenticated user.
	ID string `json:"id"`

	// Username is the display name, carried so clients can label presence
	// entries without an extra lookup.
	Username string `json:"username"`

	// Email is the registered email address of the account.
	Email string `json:"email"`
}
