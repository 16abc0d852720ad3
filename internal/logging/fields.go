package logging

import "log/slog"

// Common field names for consistent log output.
const (
	FieldService  = "service"
	FieldUserID   = "user_id"
	FieldUsername = "username"
	FieldProject  = "project_id"
	FieldAction   = "action"
	FieldStatus   = "status"
	FieldError    = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// UserID returns a slog attribute for the user ID.
func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

// Username returns a slog attribute for the username.
func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

// ProjectID returns a slog attribute for the project scope.
func ProjectID(id string) slog.Attr {
	return slog.String(FieldProject, id)
}

// Action returns a slog attribute for the audited action name.
func Action(name string) slog.Attr {
	return slog.String(FieldAction, name)
}

// Err returns a slog attribute for an error message.
func Err(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
