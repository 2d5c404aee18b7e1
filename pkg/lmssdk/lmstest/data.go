package lmstest

import (
	"strconv"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
)

type course struct {
	lmssdk.Course
	ownerID string
}

type assessment struct {
	lmssdk.Assessment
	questions []lmssdk.Question
}

// dataset is the fake's catalog. It is guarded by Server.mu.
type dataset struct {
	nextID        int
	courses       []*course
	modules       map[string][]lmssdk.Module // by course id
	lessons       map[string][]lmssdk.Lesson // by module id
	assessments   map[string]*assessment
	enrollments   map[string][]lmssdk.Enrollment // by user id
	certs         map[string][]lmssdk.Certification
	submissions   map[string][]lmssdk.Submission
	announcements []lmssdk.Announcement
	quizzes       map[string]lmssdk.SaveQuizRequest // by lesson id
	lastChat      lmssdk.ChatRequest
}

func (d *dataset) id() lmssdk.ID {
	d.nextID++
	return lmssdk.ID(strconv.Itoa(d.nextID))
}

func seedData(instructorID, learnerID string) *dataset {
	d := &dataset{
		nextID:      100,
		modules:     make(map[string][]lmssdk.Module),
		lessons:     make(map[string][]lmssdk.Lesson),
		assessments: make(map[string]*assessment),
		enrollments: make(map[string][]lmssdk.Enrollment),
		certs:       make(map[string][]lmssdk.Certification),
		submissions: make(map[string][]lmssdk.Submission),
		quizzes:     make(map[string]lmssdk.SaveQuizRequest),
	}

	d.courses = []*course{
		{Course: lmssdk.Course{
			ID: "1", Title: "Foundations of Ministry", Category: "Theology",
			Campus: "Sydney", Difficulty: "Beginner", Published: true, Approved: true,
		}, ownerID: instructorID},
		{Course: lmssdk.Course{
			ID: "2", Title: "Pastoral Care", Category: "Care",
			Campus: "Melbourne", Difficulty: "Intermediate", Published: true, Approved: true,
		}, ownerID: instructorID},
		{Course: lmssdk.Course{
			ID: "3", Title: "Worship Leading", Category: "Music",
			Campus: "Sydney", Difficulty: "Advanced",
		}, ownerID: instructorID},
	}

	d.modules["1"] = []lmssdk.Module{{ID: "11", Title: "Getting started"}}
	d.lessons["11"] = []lmssdk.Lesson{
		{ID: "111", Title: "Welcome", Type: "video", URL: "https://example.com/welcome.mp4"},
		{ID: "112", Title: "Reading", Type: "text", Content: "Read chapter one."},
	}

	d.assessments["21"] = &assessment{
		Assessment: lmssdk.Assessment{ID: "21", Title: "Module 1 quiz"},
		questions: []lmssdk.Question{
			{ID: "211", Type: "multiple_choice", Prompt: "Pick one", Options: []string{"a", "b"}, Points: 1},
			{ID: "212", Type: "short_answer", Prompt: "Explain", Points: 2},
		},
	}

	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d.enrollments[learnerID] = []lmssdk.Enrollment{{ID: "31", CourseID: "1", Status: "active", Progress: 50}}
	d.certs[learnerID] = []lmssdk.Certification{{ID: "41", CourseID: "1", CertificationRule: "complete", IssuedAt: &issued}}

	return d
}

func (d *dataset) course(id string) *course {
	for _, c := range d.courses {
		if c.ID.String() == id {
			return c
		}
	}
	return nil
}
