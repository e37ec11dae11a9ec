package jobs

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of a scheduled job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusCancelled
}

// FileNameSeparator joins display names in the file_name column of jobs with
// more than one attachment.
const FileNameSeparator = ","

// Attachment is one file reference of a job, kept in upload order.
type Attachment struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Job is a scheduled email and its delivery state.
type Job struct {
	ID            uuid.UUID    `json:"id"`
	UserID        string       `json:"user_id"`
	ShipID        *uuid.UUID   `json:"ship_id,omitempty"`
	ShipName      string       `json:"ship_name"`
	TargetEmail   string       `json:"target_email"`
	Subject       string       `json:"subject"`
	Message       string       `json:"message"`
	FilePath      string       `json:"file_path"`
	FileName      string       `json:"file_name"`
	FileSize      int64        `json:"file_size"`
	Attachments   []Attachment `json:"attachments"`
	ScheduledTime time.Time    `json:"scheduled_time"`
	Timezone      string       `json:"timezone"`
	Status        Status       `json:"status"`
	SentAt        *time.Time   `json:"sent_at"`
	ErrorLog      *string      `json:"error_log"`
	RetryCount    int          `json:"retry_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// IsDue reports whether the job is pending and its scheduled time is not after now.
func (j *Job) IsDue(now time.Time) bool {
	return j.Status == StatusPending && !j.ScheduledTime.After(now)
}

// DisplayNames splits the file_name column into its display names.
// Blank entries are dropped.
func (j *Job) DisplayNames() []string {
	if strings.TrimSpace(j.FileName) == "" {
		return nil
	}
	parts := strings.Split(j.FileName, FileNameSeparator)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// StorageKeys returns every object key the job references, list entries first,
// then the legacy file_path when it is not already included.
func (j *Job) StorageKeys() []string {
	keys := make([]string, 0, len(j.Attachments)+1)
	seen := make(map[string]struct{}, len(j.Attachments)+1)
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, a := range j.Attachments {
		add(a.Path)
	}
	add(j.FilePath)
	return keys
}

// CompatColumns derives the single-file columns from an attachment list:
// the first path, the comma-joined display names and the total size.
func CompatColumns(atts []Attachment) (path, name string, size int64) {
	if len(atts) == 0 {
		return "", "", 0
	}
	names := make([]string, 0, len(atts))
	for _, a := range atts {
		names = append(names, strings.ReplaceAll(a.Name, FileNameSeparator, " "))
		size += a.Size
	}
	return atts[0].Path, strings.Join(names, FileNameSeparator), size
}
