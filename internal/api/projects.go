package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aipms/client/internal/domain/project"
)

// TeacherView selects which submissions a teacher lists.
type TeacherView string

const (
	TeacherAppointed   TeacherView = "appointed"
	TeacherUnappointed TeacherView = "unappointed"
)

// ParseTeacherView validates a teacher list selector.
func ParseTeacherView(s string) (TeacherView, error) {
	switch TeacherView(s) {
	case TeacherAppointed, TeacherUnappointed:
		return TeacherView(s), nil
	default:
		return "", fmt.Errorf("%w: teacher view %q", project.ErrInvalidInput, s)
	}
}

// StudentSubmissions lists the signed-in student's submissions.
func (c *Client) StudentSubmissions(ctx context.Context) ([]project.StudentSubmission, error) {
	var out []project.StudentSubmission
	err := c.do(ctx, request{method: http.MethodGet, path: "/student/submissions/", auth: true}, &out)
	return out, err
}

// SubmitProject uploads a new proposal. A similarity rejection is returned
// as *SimilarityConflict.
func (c *Client) SubmitProject(ctx context.Context, sub project.NewSubmission) error {
	body, contentType, err := multipartBody(sub)
	if err != nil {
		return err
	}

	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/projects/submit/",
		auth:        true,
		body:        body,
		contentType: contentType,
	}, nil)
	if serr, ok := isStatus(err, http.StatusConflict); ok {
		conflict := &SimilarityConflict{}
		if jerr := json.Unmarshal(serr.Body, conflict); jerr != nil {
			c.logger.Warn("undecodable similarity conflict", "error", jerr)
		}
		return conflict
	}
	return err
}

func multipartBody(sub project.NewSubmission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("title", sub.Title); err != nil {
		return nil, "", fmt.Errorf("writing title: %w", err)
	}
	if err := w.WriteField("abstract_text", sub.AbstractText); err != nil {
		return nil, "", fmt.Errorf("writing abstract: %w", err)
	}
	for field, path := range map[string]string{
		"abstract_file": sub.AbstractFile,
		"audio_file":    sub.AudioFile,
	} {
		if path == "" {
			continue
		}
		if err := attachFile(w, field, path); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", field, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("creating %s part: %w", field, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copying %s: %w", field, err)
	}
	return nil
}

// UpdateProgress sets the progress percentage of a submission's project.
func (c *Client) UpdateProgress(ctx context.Context, submissionID int64, update project.ProgressUpdate) error {
	body, err := jsonBody(update)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPatch,
		path:        fmt.Sprintf("/projects/progress/update/%d/", submissionID),
		endpoint:    "/projects/progress/update/{id}/",
		auth:        true,
		body:        body,
		contentType: "application/json",
	}, nil)
}

// Progress returns the progress percentage of a submission's project.
func (c *Client) Progress(ctx context.Context, submissionID int64) (int, error) {
	var out struct {
		ProgressPercentage *int `json:"progress_percentage"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/projects/progress/%d/", submissionID),
		endpoint: "/projects/progress/{id}/",
		auth:     true,
	}, &out)
	if err != nil || out.ProgressPercentage == nil {
		return 0, err
	}
	return *out.ProgressPercentage, nil
}

// TeacherSubmissions lists submissions awaiting review.
func (c *Client) TeacherSubmissions(ctx context.Context, view TeacherView) ([]project.TeacherSubmission, error) {
	var out []project.TeacherSubmission
	path := "/teacher/" + string(view) + "/"
	err := c.do(ctx, request{method: http.MethodGet, path: path, auth: true}, &out)
	return out, err
}

// ReviewSubmission approves or rejects a submission.
func (c *Client) ReviewSubmission(ctx context.Context, submissionID int64, decision project.Status) error {
	if _, err := project.ReviewDecision(string(decision)); err != nil {
		return err
	}
	body, err := jsonBody(map[string]project.Status{"status": decision})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPatch,
		path:        fmt.Sprintf("/teacher/submissions/%d/", submissionID),
		endpoint:    "/teacher/submissions/{id}/",
		auth:        true,
		body:        body,
		contentType: "application/json",
	}, nil)
}

// ApprovedProjects lists the projects a teacher monitors.
func (c *Client) ApprovedProjects(ctx context.Context) ([]project.ApprovedProject, error) {
	var out []project.ApprovedProject
	err := c.do(ctx, request{method: http.MethodGet, path: "/teacher/approved-projects/", auth: true}, &out)
	return out, err
}

// AllProjects lists every project for archiving.
func (c *Client) AllProjects(ctx context.Context) ([]project.Project, error) {
	var out []project.Project
	err := c.do(ctx, request{method: http.MethodGet, path: "/projects/all/", auth: true}, &out)
	return out, err
}

// ChangeProjectStatus moves a project to Completed or Archived.
func (c *Client) ChangeProjectStatus(ctx context.Context, projectID int64, status project.Status) error {
	if status != project.StatusCompleted && status != project.StatusArchived {
		return fmt.Errorf("%w: %q", project.ErrInvalidStatus, status)
	}
	body, err := jsonBody(map[string]project.Status{"status": status})
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:      http.MethodPatch,
		path:        fmt.Sprintf("/projects/archive/%d/", projectID),
		endpoint:    "/projects/archive/{id}/",
		auth:        true,
		body:        body,
		contentType: "application/json",
	}, nil)
}
