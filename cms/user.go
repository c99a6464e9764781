package cms

import "golang.org/x/crypto/bcrypt"

// User identifies an author. Account management lives outside the article
// store; the repository only needs the ID for ownership checks.
type User struct {
	ID           string `db:"id"`
	ScreenName   string `db:"screenname"`
	Email        string `db:"email"`
	PasswordHash string `db:"passwordhash"`
	RawPassword  string `db:"-" json:"-"`
	Admin        bool   `db:"admin"`
}

// SetPasswordHash hashes RawPassword into PasswordHash and clears the raw
// value.
func (u *User) SetPasswordHash() error {
	rawHash, err := bcrypt.GenerateFromPassword([]byte(u.RawPassword), bcrypt.DefaultCost)
	u.RawPassword = ""
	if err != nil {
		return err
	}
	u.PasswordHash = string(rawHash)
	return nil
}

// CheckPassword compares raw against the stored hash.
func (u *User) CheckPassword(raw string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(raw))
}

func (u *User) IsAnonymous() bool { return u.ID == "" }

func (u *User) IsAdmin() bool { return u.Admin }

// AnonymousUser is the identity attached to unauthenticated requests.
func AnonymousUser() *User {
	return &User{}
}
