package proxy

// User is one username/password pair in the allow-list.
type User struct {
	Username string
	Password string
}

// UserList is a static credential allow-list. It is never mutated after
// construction, so concurrent handlers may check it without locking.
type UserList struct {
	users []User
}

func NewUserList(users ...User) *UserList {
	return &UserList{users: append([]User(nil), users...)}
}

// Check reports whether the pair exactly matches an allow-list entry. A
// nil list denies everything.
func (l *UserList) Check(username, password string) bool {
	if l == nil {
		return false
	}
	for _, u := range l.users {
		if u.Username == username && u.Password == password {
			return true
		}
	}
	return false
}

// Len returns the number of configured users.
func (l *UserList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.users)
}
