package lmssdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListEnrollments(ctx context.Context) (Page[Enrollment], error) {
	return GetJSON[Page[Enrollment]](ctx, c, "/enrollments", nil)
}

func (c *Client) ListCertifications(ctx context.Context) (Page[Certification], error) {
	return GetJSON[Page[Certification]](ctx, c, "/certifications", nil)
}

func (c *Client) GetAssessment(ctx context.Context, id ID) (*Assessment, error) {
	a, err := GetJSON[Assessment](ctx, c, "/assessments/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) AssessmentQuestions(ctx context.Context, id ID) (Page[Question], error) {
	return GetJSON[Page[Question]](ctx, c, "/assessments/"+url.PathEscape(id.String())+"/questions", nil)
}

// SubmitAssessment submits answers keyed by question id.
func (c *Client) SubmitAssessment(ctx context.Context, id ID, answers map[string]any) (*Submission, error) {
	if answers == nil {
		answers = map[string]any{}
	}
	s, err := SendJSON[Submission](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/assessments/" + url.PathEscape(id.String()) + "/submit",
		Body:   AssessmentSubmission{Answers: answers},
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListSubmissions(ctx context.Context) (Page[Submission], error) {
	return GetJSON[Page[Submission]](ctx, c, "/submissions", nil)
}

// CreateAnnouncement posts an announcement to a course or to every user
// holding a role.
func (c *Client) CreateAnnouncement(ctx context.Context, a Announcement) (*Announcement, error) {
	if a.Title == "" || a.Content == "" {
		return nil, errors.New("announcement title and content are required")
	}
	if a.CourseID == nil && a.RoleName == "" {
		return nil, fmt.Errorf("announcement needs a course or a role")
	}

	out, err := SendJSON[Announcement](ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/announcements",
		Body:   a,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
