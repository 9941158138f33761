package project

import "time"

// Status is the lifecycle state of a submission or project.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusSubmitted  Status = "Submitted"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusArchived   Status = "Archived"
)

// ReviewDecision returns s when it is a valid teacher decision.
func ReviewDecision(s string) (Status, error) {
	switch Status(s) {
	case StatusApproved, StatusRejected:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// NextArchiveStatus is the status the archiving screen offers for a project
// in status s, or "" when no change is offered.
func NextArchiveStatus(s Status) Status {
	switch s {
	case StatusInProgress:
		return StatusCompleted
	case StatusCompleted:
		return StatusArchived
	default:
		return ""
	}
}

// UserRef is a nested user reference in list payloads.
type UserRef struct {
	Username string `json:"username"`
}

// StudentSubmission is a row of the student's own submissions.
type StudentSubmission struct {
	ID        int64  `json:"id"`
	GroupName string `json:"group_name,omitempty"`
	Title     string `json:"title"`
	Status    Status `json:"status"`
	Progress  *int   `json:"progress"`
}

// TeacherSubmission is a submission awaiting review.
type TeacherSubmission struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	GroupName        string   `json:"group_name"`
	Student          UserRef  `json:"student"`
	RelevanceScore   *float64 `json:"relevance_score"`
	FeasibilityScore *float64 `json:"feasibility_score"`
	InnovationScore  *float64 `json:"innovation_score"`
	AbstractText     string   `json:"abstract_text"`
}

// ApprovedProject is a row of the teacher's approved-projects monitor.
type ApprovedProject struct {
	ID                 int64  `json:"id"`
	SubmissionID       int64  `json:"submission_id"`
	Title              string `json:"title"`
	StudentName        string `json:"student_name"`
	Status             Status `json:"status"`
	ProgressPercentage int    `json:"progress_percentage"`
	Category           string `json:"category"`
}

// Project is a row of the archiving screen.
type Project struct {
	ID                 int64      `json:"id"`
	Title              string     `json:"title"`
	Abstract           string     `json:"abstract"`
	Category           string     `json:"category"`
	Status             Status     `json:"status"`
	Submission         Submission `json:"submission"`
	ProgressPercentage int        `json:"progress_percentage"`
}

// Submission is the nested submission of a Project.
type Submission struct {
	Student UserRef `json:"student"`
}

// StatusCount is one bar of the status chart.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CategoryCount is one slice of the category chart.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// ScoredTitle is a project title with its innovation score.
type ScoredTitle struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Analytics is the analytics dashboard payload.
type Analytics struct {
	ProjectStatusCounts   []StatusCount   `json:"project_status_counts"`
	ProjectCategoryCounts []CategoryCount `json:"project_category_counts"`
	TopInnovativeProjects []ScoredTitle   `json:"top_innovative_projects"`
}

// User is a platform account as listed to administrators.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Group is a student group with its assigned teachers.
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Teachers    []UserRef `json:"teachers"`
	Students    []UserRef `json:"students"`
}

// AdminDashboard is the admin panel payload.
type AdminDashboard struct {
	Users  []User  `json:"users"`
	Groups []Group `json:"groups"`
}

// AlumniProject is a finished project in the student's own portfolio.
type AlumniProject struct {
	Title        string    `json:"title"`
	Status       Status    `json:"status"`
	AbstractText string    `json:"abstract_text"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// TopProject is a publicly listed alumni project.
type TopProject struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Student         UserRef   `json:"student"`
	InnovationScore float64   `json:"innovation_score"`
	AbstractText    string    `json:"abstract_text"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// SimilarProject is the existing project a submission was found similar to.
type SimilarProject struct {
	Title        string `json:"title"`
	Student      string `json:"student"`
	AbstractText string `json:"abstract_text"`
}
