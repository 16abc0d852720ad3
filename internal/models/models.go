package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	APIKey      string    `json:"-"`
	Description *string   `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogRecord is one immutable entry in a project's audit trail. The ID is
// assigned by the store at insert time and is monotonically increasing,
// which makes (CreatedAt, ID) the eviction order.
type LogRecord struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Status    string    `json:"status"`
	ProjectID *string   `json:"project_id,omitempty"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ValidStatus reports whether s is one of the closed set of record statuses.
func ValidStatus(s string) bool {
	return s == StatusSuccess || s == StatusFailed
}

// Audited action names. Account-level actions (LOGIN, CHANGE_PASSWORD,
// USER_CREATE) are recorded without a project scope.
const (
	ActionLogin          = "LOGIN"
	ActionChangePassword = "CHANGE_PASSWORD"
	ActionUserCreate     = "USER_CREATE"
	ActionAPIConnection  = "API_CONNECTION"
	ActionProjectCreate  = "PROJECT_CREATE"
	ActionProjectUpdate  = "PROJECT_UPDATE"
	ActionProjectDelete  = "PROJECT_DELETE"
	ActionServerList     = "SERVER_LIST"
	ActionServerGet      = "SERVER_GET"
	ActionServerCreate   = "SERVER_CREATE"
	ActionServerDelete   = "SERVER_DELETE"
	ActionServerPowerOn  = "SERVER_POWER_ON"
	ActionServerPowerOff = "SERVER_POWER_OFF"
	ActionServerReboot   = "SERVER_REBOOT"
	ActionServerTypes    = "SERVER_TYPES_LIST"
	ActionImagesList     = "IMAGES_LIST"
)

// LogFilter narrows ListLogRecords. Skip/Limit paginate; the date bounds are
// inclusive and optional.
type LogFilter struct {
	ProjectID string
	UserID    string
	Skip      int
	Limit     int
	StartDate *time.Time
	EndDate   *time.Time
}
