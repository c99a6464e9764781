package relstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lecternapp/lectern/cms"
)

// Sentinel errors for relational lookups.
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrUserNotFound   = errors.New("user not found")
)

// Course is one unit of curriculum; its lessons reference article slugs
// in the file store.
type Course struct {
	ID          string    `db:"id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	AuthorID    string    `db:"author_id"`
	Created     time.Time `db:"created"`
}

// InsertCourse persists a new course, assigning an ID if absent.
func (s *Store) InsertCourse(course *Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	_, err := s.conn.Exec(
		`INSERT INTO Course (id, slug, title, description, author_id) VALUES (?, ?, ?, ?, ?)`,
		course.ID, course.Slug, course.Title, course.Description, course.AuthorID)
	return err
}

// SelectCourse retrieves a course by slug.
func (s *Store) SelectCourse(slug string) (*Course, error) {
	course := &Course{}
	err := s.conn.Get(course, `SELECT * FROM Course WHERE slug = ?`, slug)
	if err == sql.ErrNoRows {
		return nil, ErrCourseNotFound
	}
	return course, err
}

// SelectAllCourses lists courses, newest first.
func (s *Store) SelectAllCourses() ([]*Course, error) {
	courses := []*Course{}
	err := s.conn.Select(&courses, `SELECT * FROM Course ORDER BY created DESC`)
	return courses, err
}

// EnrollUser records an enrollment; re-enrolling is a no-op.
func (s *Store) EnrollUser(courseID, userID string) error {
	_, err := s.conn.Exec(
		`INSERT OR IGNORE INTO Enrollment (course_id, user_id) VALUES (?, ?)`,
		courseID, userID)
	return err
}

// CountEnrollments returns the number of users enrolled in a course.
func (s *Store) CountEnrollments(courseID string) (int, error) {
	var n int
	err := s.conn.Get(&n, `SELECT COUNT(*) FROM Enrollment WHERE course_id = ?`, courseID)
	return n, err
}

// InsertUser persists a new user account.
func (s *Store) InsertUser(user *cms.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.conn.Exec(
		`INSERT INTO User (id, screenname, email, passwordhash, admin) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.ScreenName, user.Email, user.PasswordHash, user.Admin)
	return err
}

// SelectUserByScreenName retrieves a user account by screen name.
func (s *Store) SelectUserByScreenName(screenname string) (*cms.User, error) {
	user := &cms.User{}
	err := s.conn.Get(user,
		`SELECT id, screenname, email, passwordhash, admin FROM User WHERE screenname = ?`,
		screenname)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}
