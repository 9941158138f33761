package api

import (
	"context"
	"net/http"

	"github.com/aipms/client/internal/domain/viva"
)

// Chat sends a prompt to the AI assistant and returns its reply.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	body, err := jsonBody(map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}
	var out struct {
		Response string `json:"response"`
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/ai/chat/",
		auth:        true,
		body:        body,
		contentType: "application/json",
	}, &out)
	return out.Response, err
}

// VivaQuestions generates viva questions for a project at its progress.
func (c *Client) VivaQuestions(ctx context.Context, projectID int64, progress int) ([]string, error) {
	body, err := jsonBody(struct {
		ProjectID          int64 `json:"project_id"`
		ProgressPercentage int   `json:"progress_percentage"`
	}{projectID, progress})
	if err != nil {
		return nil, err
	}
	var out struct {
		Questions []string `json:"questions"`
	}
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/ai/viva/",
		auth:        true,
		body:        body,
		contentType: "application/json",
	}, &out)
	return out.Questions, err
}

// EvaluateAnswer scores an answer to a viva question.
func (c *Client) EvaluateAnswer(ctx context.Context, projectID int64, question, answer string) (viva.Evaluation, error) {
	body, err := jsonBody(struct {
		ProjectID int64  `json:"project_id"`
		Question  string `json:"question"`
		Answer    string `json:"answer"`
	}{projectID, question, answer})
	if err != nil {
		return viva.Evaluation{}, err
	}
	var out viva.Evaluation
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/ai/viva/evaluate/",
		auth:        true,
		body:        body,
		contentType: "application/json",
	}, &out)
	return out, err
}

var _ viva.API = (*Client)(nil)
