package domain

// User is the identity projection kept by the session. It is derived by
// mapping whichever profile shape the identity provider returns and is only
// ever replaced wholesale on (re)login, never mutated field by field.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
