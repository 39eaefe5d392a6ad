package models

// Request bodies of the auth and user endpoints. Password fields always
// carry the client-side hash, never the raw password.

type LoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpTokenBody struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	AvatarURL *string `json:"avatar_url"`
}

type PasswordTokenBody struct {
	Email string `json:"email"`
}

type CreateUserBody struct {
	UserPublicKey  string `json:"user_public_key"`
	TokenKey       string `json:"token_key"`
	TokenPin       string `json:"token_pin"`
	RecaptchaToken string `json:"recaptcha_token"`
}

type UpdateUserBody struct {
	Name      *string `json:"name,omitempty"`
	Password  *string `json:"password,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type ResetPasswordBody struct {
	Email             string `json:"email"`
	TokenID           string `json:"token_id"`
	TemporaryPassword string `json:"temporary_password"`
	NewPassword       string `json:"new_password"`
}
