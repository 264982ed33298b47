package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims issued by the server.
// It includes standard claims required by the JWT specification and the custom claims
// necessary for identifying a member across the HTTP API and the real-time channel.
type Payload struct {
	// StandardClaims embeds the JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims

	// ID is the unique member identifier the token holder authenticated as.
	ID string `json:"id"`

	// Name is the member's display name, carried so the real-time layer can
	// label outbound messages without a store lookup per connection.
	Name string `json:"name"`
}
