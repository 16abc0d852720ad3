package models

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateProjectRequest struct {
	Name        string  `json:"name"`
	APIKey      string  `json:"api_key"`
	Description *string `json:"description,omitempty"`
}

type UpdateProjectRequest struct {
	APIKey      *string `json:"api_key,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateServerRequest struct {
	Name       string   `json:"name"`
	ServerType string   `json:"server_type"`
	Image      string   `json:"image"`
	Location   string   `json:"location,omitempty"`
	SSHKeys    []string `json:"ssh_keys,omitempty"`
}
