package lmstest

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/cryptox"
	"github.com/ministrylearn/ministrylearn/pkg/httpx"
	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
)

const (
	roleAdmin      = "Admin"
	roleInstructor = "Instructor"
)

func (s *Server) authed(h http.Handler) http.Handler {
	return httpx.Chain(h, httpx.AuthnMiddleware(s), s.userLimit)
}

func (s *Server) withRoles(h http.HandlerFunc, roles ...string) http.Handler {
	return httpx.Chain(h, httpx.AuthnMiddleware(s), s.userLimit, httpx.RequireAnyRole(roles...))
}

func (s *Server) routes() {
	s.userLimit = httpx.RateLimitByUser(s.userRate)

	var credential []httpx.Middleware
	if s.loginRate != nil {
		credential = append(credential, httpx.RateLimitByIP(*s.loginRate))
	}

	s.mux.Handle("POST /auth/login", httpx.Chain(http.HandlerFunc(s.handleLogin), credential...))
	s.mux.Handle("POST /auth/register", httpx.Chain(http.HandlerFunc(s.handleRegister), credential...))
	s.mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	s.mux.Handle("GET /auth/profile", s.authed(http.HandlerFunc(s.handleProfile)))
	s.mux.Handle("PUT /auth/profile", s.authed(http.HandlerFunc(s.handleUpdateProfile)))

	s.mux.Handle("GET /courses", s.authed(http.HandlerFunc(s.handleListCourses)))
	s.mux.Handle("POST /courses", s.withRoles(s.handleCreateCourse, roleInstructor, roleAdmin))
	s.mux.Handle("GET /courses/{id}", s.authed(http.HandlerFunc(s.handleGetCourse)))
	s.mux.Handle("PUT /courses/{id}", s.withRoles(s.handleUpdateCourse, roleInstructor, roleAdmin))
	s.mux.Handle("POST /courses/{id}/approve", s.withRoles(s.handleApprove, roleAdmin))
	s.mux.Handle("DELETE /courses/{id}/approve", s.withRoles(s.handleReject, roleAdmin))
	s.mux.Handle("GET /courses/{id}/modules", s.authed(http.HandlerFunc(s.handleModules)))
	s.mux.Handle("POST /courses/{id}/enroll", s.authed(http.HandlerFunc(s.handleEnroll)))
	s.mux.Handle("GET /modules/{id}/lessons", s.authed(http.HandlerFunc(s.handleLessons)))
	s.mux.Handle("GET /instructor/courses", s.withRoles(s.handleInstructorCourses, roleInstructor, roleAdmin))
	s.mux.Handle("GET /admin/courses/pending", s.withRoles(s.handlePending, roleAdmin))

	s.mux.Handle("GET /enrollments", s.authed(http.HandlerFunc(s.handleEnrollments)))
	s.mux.Handle("GET /certifications", s.authed(http.HandlerFunc(s.handleCertifications)))
	s.mux.Handle("GET /assessments/{id}", s.authed(http.HandlerFunc(s.handleAssessment)))
	s.mux.Handle("GET /assessments/{id}/questions", s.authed(http.HandlerFunc(s.handleQuestions)))
	s.mux.Handle("POST /assessments/{id}/submit", s.authed(http.HandlerFunc(s.handleSubmit)))
	s.mux.Handle("GET /submissions", s.authed(http.HandlerFunc(s.handleSubmissions)))
	s.mux.Handle("POST /announcements", s.withRoles(s.handleAnnouncement, roleInstructor, roleAdmin))

	s.mux.Handle("POST /ai/chat", s.authed(http.HandlerFunc(s.handleChat)))
	s.mux.Handle("POST /ai/generate-quiz", s.withRoles(s.handleGenerateQuiz, roleInstructor, roleAdmin))
	s.mux.Handle("POST /ai/save-quiz", s.withRoles(s.handleSaveQuiz, roleInstructor, roleAdmin))
	s.mux.Handle("POST /ai/unpublish-quiz", s.withRoles(s.handleUnpublishQuiz, roleInstructor, roleAdmin))
}

func subject(r *http.Request) string {
	id, _ := r.Context().Value(httpx.CtxKeyUserID).(string)
	return id
}

func hasRole(r *http.Request, role string) bool {
	c, ok := httpx.ClaimsFromContext(r.Context())
	return ok && c.HasRole(role)
}

// ============================================================================
// Auth
// ============================================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req lmssdk.LoginRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	u := s.userByEmail(req.Email)
	if u == nil || cryptox.VerifyPassword(req.Password, u.passwordHash) != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	resp, err := s.issue(u)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req lmssdk.RegisterRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		httpx.WriteError(w, http.StatusBadRequest, "email, username and password are required")
		return
	}
	if s.userByEmail(req.Email) != nil {
		httpx.WriteError(w, http.StatusConflict, "Email already registered")
		return
	}

	s.AddUser(User{Email: req.Email, Username: req.Username, Password: req.Password, Roles: []string{"Learner"}})
	httpx.WriteJSON(w, http.StatusCreated, lmssdk.MessageResponse{Message: "registered"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	failure := s.refreshFailure
	s.mu.Unlock()
	if failure != 0 {
		httpx.WriteError(w, failure, "refresh unavailable")
		return
	}

	raw, ok := httpx.BearerToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	fp := cryptox.FingerprintToken(raw)
	s.mu.Lock()
	userID, live := s.refresh[fp]
	if live && s.rotateRefresh {
		delete(s.refresh, fp)
	}
	s.mu.Unlock()
	if !live {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	u := s.userByID(userID)
	if u == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	access, err := s.issueAccess(u)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := lmssdk.RefreshResponse{AccessToken: access}
	if s.rotateRefresh {
		if resp.RefreshToken, err = s.issueRefresh(u); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) profileOf(u *User) lmssdk.Profile {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return lmssdk.Profile{
		ID:        lmssdk.ID(u.ID),
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		Campus:    u.Campus,
		Roles:     slices.Clone(u.Roles),
		CreatedAt: &created,
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u := s.userByID(subject(r))
	if u == nil {
		httpx.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	s.mu.Lock()
	p := s.profileOf(u)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd lmssdk.ProfileUpdate
	if !httpx.DecodeJSON(w, r, &upd) {
		return
	}
	u := s.userByID(subject(r))
	if u == nil {
		httpx.WriteError(w, http.StatusNotFound, "User not found")
		return
	}

	s.mu.Lock()
	if upd.Username != "" {
		u.Username = upd.Username
	}
	if upd.FullName != "" {
		u.FullName = upd.FullName
	}
	if upd.Campus != "" {
		u.Campus = upd.Campus
	}
	p := s.profileOf(u)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, p)
}

// ============================================================================
// Catalog
// ============================================================================

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))

	s.mu.Lock()
	items := []lmssdk.Course{}
	for _, c := range s.data.courses {
		switch {
		case !c.Approved:
		case q.Get("campus") != "" && c.Campus != q.Get("campus"):
		case q.Get("category") != "" && c.Category != q.Get("category"):
		case q.Get("difficulty") != "" && c.Difficulty != q.Get("difficulty"):
		case search != "" && !strings.Contains(strings.ToLower(c.Title), search):
		default:
			items = append(items, c.Course)
		}
	}
	s.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, lmssdk.Page[lmssdk.Course]{Items: items, Total: len(items), Page: 1, PerPage: 20})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c := s.data.course(r.PathValue("id"))
	var out lmssdk.Course
	if c != nil {
		out = c.Course
	}
	s.mu.Unlock()

	if c == nil {
		httpx.WriteError(w, http.StatusNotFound, "Course not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var in lmssdk.CourseInput
	if !httpx.DecodeJSON(w, r, &in) {
		return
	}
	if in.Title == "" {
		httpx.WriteError(w, http.StatusBadRequest, "title is required")
		return
	}

	s.mu.Lock()
	c := &course{Course: courseFromInput(s.data.id(), in), ownerID: subject(r)}
	s.data.courses = append(s.data.courses, c)
	out := c.Course
	s.mu.Unlock()

	httpx.WriteJSON(w, http.StatusCreated, out)
}

func courseFromInput(id lmssdk.ID, in lmssdk.CourseInput) lmssdk.Course {
	return lmssdk.Course{
		ID:           id,
		Title:        in.Title,
		Description:  in.Description,
		Category:     in.Category,
		Campus:       in.Campus,
		Difficulty:   in.Difficulty,
		ThumbnailURL: in.ThumbnailURL,
	}
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var in lmssdk.CourseInput
	if !httpx.DecodeJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.data.course(r.PathValue("id"))
	if c == nil {
		httpx.WriteError(w, http.StatusNotFound, "Course not found")
		return
	}
	if c.ownerID != subject(r) && !hasRole(r, roleAdmin) {
		httpx.WriteError(w, http.StatusForbidden, "Not your course")
		return
	}

	updated := courseFromInput(c.ID, in)
	updated.Published, updated.Approved = c.Published, c.Approved
	c.Course = updated
	httpx.WriteJSON(w, http.StatusOK, c.Course)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.setApproval(w, r, true)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.setApproval(w, r, false)
}

func (s *Server) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	s.mu.Lock()
	c := s.data.course(r.PathValue("id"))
	if c != nil {
		c.Approved, c.Published = approved, approved
	}
	s.mu.Unlock()

	if c == nil {
		httpx.WriteError(w, http.StatusNotFound, "Course not found")
		return
	}
	msg := "Course rejected"
	if approved {
		msg = "Course approved"
	}
	httpx.WriteJSON(w, http.StatusOK, lmssdk.MessageResponse{Message: msg})
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	mods := append([]lmssdk.Module{}, s.data.modules[r.PathValue("id")]...)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, mods)
}

func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	lessons := append([]lmssdk.Lesson{}, s.data.lessons[r.PathValue("id")]...)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, lessons)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user := subject(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.data.course(id)
	if c == nil || !c.Approved {
		httpx.WriteError(w, http.StatusNotFound, "Course not found")
		return
	}
	for _, e := range s.data.enrollments[user] {
		if e.CourseID.String() == id {
			httpx.WriteError(w, http.StatusConflict, "Already enrolled")
			return
		}
	}

	e := lmssdk.Enrollment{ID: s.data.id(), CourseID: c.ID, Status: "active"}
	s.data.enrollments[user] = append(s.data.enrollments[user], e)
	httpx.WriteJSON(w, http.StatusCreated, e)
}

func (s *Server) handleInstructorCourses(w http.ResponseWriter, r *http.Request) {
	user := subject(r)
	s.mu.Lock()
	items := []lmssdk.Course{}
	for _, c := range s.data.courses {
		if c.ownerID == user {
			items = append(items, c.Course)
		}
	}
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, lmssdk.Page[lmssdk.Course]{Items: items, Total: len(items)})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := []lmssdk.Course{}
	for _, c := range s.data.courses {
		if !c.Approved {
			items = append(items, c.Course)
		}
	}
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, lmssdk.Page[lmssdk.Course]{Items: items, Total: len(items)})
}

// ============================================================================
// Learning
// ============================================================================

func (s *Server) handleEnrollments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]lmssdk.Enrollment{}, s.data.enrollments[subject(r)]...)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleCertifications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]lmssdk.Certification{}, s.data.certs[subject(r)]...)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a, ok := s.data.assessments[r.PathValue("id")]
	var out lmssdk.Assessment
	if ok {
		out = a.Assessment
	}
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Assessment not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	a, ok := s.data.assessments[r.PathValue("id")]
	var out []lmssdk.Question
	if ok {
		out = append([]lmssdk.Question{}, a.questions...)
	}
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Assessment not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body lmssdk.AssessmentSubmission
	if !httpx.DecodeJSON(w, r, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.data.assessments[r.PathValue("id")]
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "Assessment not found")
		return
	}

	var score float64
	for _, q := range a.questions {
		if _, answered := body.Answers[q.ID.String()]; answered {
			score += q.Points
		}
	}
	now := time.Now().UTC()
	sub := lmssdk.Submission{ID: s.data.id(), AssessmentID: a.ID, Status: "submitted", Score: &score, SubmittedAt: &now}
	user := subject(r)
	s.data.submissions[user] = append(s.data.submissions[user], sub)
	httpx.WriteJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := append([]lmssdk.Submission{}, s.data.submissions[subject(r)]...)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, lmssdk.Page[lmssdk.Submission]{Items: items, Total: len(items)})
}

func (s *Server) handleAnnouncement(w http.ResponseWriter, r *http.Request) {
	var a lmssdk.Announcement
	if !httpx.DecodeJSON(w, r, &a) {
		return
	}
	if a.Title == "" || a.Content == "" {
		httpx.WriteError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	s.mu.Lock()
	a.ID = s.data.id()
	s.data.announcements = append(s.data.announcements, a)
	s.mu.Unlock()
	httpx.WriteJSON(w, http.StatusCreated, a)
}

// ============================================================================
// AI
// ============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req lmssdk.ChatRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	s.data.lastChat = req
	s.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, lmssdk.ChatResponse{
		Response: "You asked: " + req.Message,
		Status:   "success",
	})
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req lmssdk.GenerateQuizRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	qs := make([]lmssdk.QuizQuestion, 0, req.NumQuestions)
	for i := range req.NumQuestions {
		qs = append(qs, lmssdk.QuizQuestion{
			Question:      fmt.Sprintf("Question %d on lesson %s", i+1, req.LessonID),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "A",
		})
	}
	httpx.WriteJSON(w, http.StatusOK, lmssdk.GenerateQuizResponse{Questions: qs})
}

func (s *Server) handleSaveQuiz(w http.ResponseWriter, r *http.Request) {
	var req lmssdk.SaveQuizRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.data.id()
	if req.UpdateExisting && req.AssessmentID != nil {
		id = *req.AssessmentID
	}
	s.data.quizzes[req.LessonID.String()] = req
	s.data.assessments[id.String()] = &assessment{Assessment: lmssdk.Assessment{ID: id, Title: req.AssessmentTitle}}
	httpx.WriteJSON(w, http.StatusOK, lmssdk.SaveQuizResponse{AssessmentID: id, Message: "Quiz saved"})
}

func (s *Server) handleUnpublishQuiz(w http.ResponseWriter, r *http.Request) {
	var req lmssdk.UnpublishQuizRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	_, ok := s.data.quizzes[req.LessonID.String()]
	delete(s.data.quizzes, req.LessonID.String())
	s.mu.Unlock()

	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "No quiz for lesson")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lmssdk.MessageResponse{Message: "Quiz unpublished"})
}
