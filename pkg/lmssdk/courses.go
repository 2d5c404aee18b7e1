package lmssdk

import (
	"context"
	"net/http"
	"net/url"
)

func (q CourseQuery) values() url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("campus", q.Campus)
	set("category", q.Category)
	set("difficulty", q.Difficulty)
	set("search", q.Search)
	return v
}

// ListCourses returns the published catalog filtered by q.
func (c *Client) ListCourses(ctx context.Context, q CourseQuery) (Page[Course], error) {
	return GetJSON[Page[Course]](ctx, c, "/courses", q.values())
}

// InstructorCourses returns the courses owned by the current instructor.
func (c *Client) InstructorCourses(ctx context.Context) (Page[Course], error) {
	return GetJSON[Page[Course]](ctx, c, "/instructor/courses", nil)
}

// PendingCourses returns courses awaiting admin approval.
func (c *Client) PendingCourses(ctx context.Context) (Page[Course], error) {
	return GetJSON[Page[Course]](ctx, c, "/admin/courses/pending", nil)
}

func (c *Client) GetCourse(ctx context.Context, id ID) (*Course, error) {
	course, err := GetJSON[Course](ctx, c, "/courses/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	course, err := SendJSON[Course](ctx, c, &Request{Method: http.MethodPost, Path: "/courses", Body: in})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) UpdateCourse(ctx context.Context, id ID, in CourseInput) (*Course, error) {
	course, err := SendJSON[Course](ctx, c, &Request{
		Method: http.MethodPut,
		Path:   "/courses/" + url.PathEscape(id.String()),
		Body:   in,
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// ApproveCourse publishes a pending course. Admin only.
func (c *Client) ApproveCourse(ctx context.Context, id ID) error {
	return sendNoContent(ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/courses/" + url.PathEscape(id.String()) + "/approve",
	})
}

// RejectCourse declines a pending course. Admin only.
func (c *Client) RejectCourse(ctx context.Context, id ID) error {
	return sendNoContent(ctx, c, &Request{
		Method: http.MethodDelete,
		Path:   "/courses/" + url.PathEscape(id.String()) + "/approve",
	})
}

func (c *Client) CourseModules(ctx context.Context, courseID ID) (Page[Module], error) {
	return GetJSON[Page[Module]](ctx, c, "/courses/"+url.PathEscape(courseID.String())+"/modules", nil)
}

func (c *Client) ModuleLessons(ctx context.Context, moduleID ID) (Page[Lesson], error) {
	return GetJSON[Page[Lesson]](ctx, c, "/modules/"+url.PathEscape(moduleID.String())+"/lessons", nil)
}

// Enroll enrolls the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID ID) error {
	return sendNoContent(ctx, c, &Request{
		Method: http.MethodPost,
		Path:   "/courses/" + url.PathEscape(courseID.String()) + "/enroll",
	})
}
