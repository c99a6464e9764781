package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/internal/relstore"
)

// ListCoursesHandler handles GET /api/courses.
func (a *App) ListCoursesHandler(rw http.ResponseWriter, req *http.Request) {
	courses, err := a.Rel.SelectAllCourses()
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, courses)
}

// CreateCourseHandler handles POST /api/courses. Requires a signed-in user.
func (a *App) CreateCourseHandler(rw http.ResponseWriter, req *http.Request) {
	user := currentUser(req)
	if user.IsAnonymous() {
		writeError(rw, cms.NewOpError(cms.CodeForbidden, "sign in to create courses", nil))
		return
	}

	var payload struct {
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(req, &payload); err != nil {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "malformed course payload", err))
		return
	}
	if !cms.SlugPattern.MatchString(payload.Slug) || payload.Title == "" {
		writeError(rw, cms.NewOpError(cms.CodeValidation, "course needs a valid slug and a title", nil))
		return
	}

	course := &relstore.Course{
		Slug:        payload.Slug,
		Title:       payload.Title,
		Description: payload.Description,
		AuthorID:    user.ID,
	}
	if err := a.Rel.InsertCourse(course); err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, course)
}

// GetCourseHandler handles GET /api/courses/{slug}, including the current
// enrollment count.
func (a *App) GetCourseHandler(rw http.ResponseWriter, req *http.Request) {
	course, err := a.Rel.SelectCourse(mux.Vars(req)["slug"])
	if err != nil {
		if errors.Is(err, relstore.ErrCourseNotFound) {
			writeError(rw, cms.NewOpError(cms.CodeNotFound, "course does not exist", err))
			return
		}
		writeError(rw, err)
		return
	}

	enrolled, err := a.Rel.CountEnrollments(course.ID)
	if err != nil {
		writeError(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, map[string]any{
		"course":   course,
		"enrolled": enrolled,
	})
}

// EnrollHandler handles POST /api/courses/{slug}/enroll for the current user.
func (a *App) EnrollHandler(rw http.ResponseWriter, req *http.Request) {
	user := currentUser(req)
	if user.IsAnonymous() {
		writeError(rw, cms.NewOpError(cms.CodeForbidden, "sign in to enroll", nil))
		return
	}

	course, err := a.Rel.SelectCourse(mux.Vars(req)["slug"])
	if err != nil {
		if errors.Is(err, relstore.ErrCourseNotFound) {
			writeError(rw, cms.NewOpError(cms.CodeNotFound, "course does not exist", err))
			return
		}
		writeError(rw, err)
		return
	}

	if err := a.Rel.EnrollUser(course.ID, user.ID); err != nil {
		writeError(rw, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}
