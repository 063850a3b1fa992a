package identity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAvatarURL is assigned to every account at creation so clients always
// have an image to render before the user picks their own.
const DefaultAvatarURL = "https://img.freepik.com/free-psd/3d-illustration-person-with-sunglasses_23-2149436188.jpg"

// User is an account bound to a verified email address. Everything except the
// avatar is immutable after creation.
type User struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}
