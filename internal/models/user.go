package models

import "time"

// User mirrors the server's user payload. Optional demographic fields use
// pointers so an absent value is distinguishable from a zero one.
type User struct {
	ID         int        `json:"id"`
	Email      string     `json:"email"`
	FullName   *string    `json:"full_name,omitempty"`
	AvatarURL  *string    `json:"avatar_url,omitempty"`
	Age        *int       `json:"age,omitempty"`
	Gender     *string    `json:"gender,omitempty"`
	Location   *string    `json:"location,omitempty"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// UserUpdate carries the editable profile fields. Nil fields are omitted from
// the request body and left untouched by the server.
type UserUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Age      *int    `json:"age,omitempty"`
	Gender   *string `json:"gender,omitempty"`
	Location *string `json:"location,omitempty"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// aliasing the manager's internal state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.FullName = cloneStr(u.FullName)
	c.AvatarURL = cloneStr(u.AvatarURL)
	c.Age = cloneInt(u.Age)
	c.Gender = cloneStr(u.Gender)
	c.Location = cloneStr(u.Location)
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		c.CreatedAt = &t
	}
	return &c
}

// Merge overlays src onto base and returns the result: fields src carries
// overwrite, fields it leaves unset keep base's value. Used by profile
// refresh, where the server may return a partial record.
func Merge(base, src *User) *User {
	if base == nil {
		return src.Clone()
	}
	if src == nil {
		return base.Clone()
	}
	m := base.Clone()
	if src.ID != 0 {
		m.ID = src.ID
	}
	if src.Email != "" {
		m.Email = src.Email
	}
	if src.FullName != nil {
		m.FullName = cloneStr(src.FullName)
	}
	if src.AvatarURL != nil {
		m.AvatarURL = cloneStr(src.AvatarURL)
	}
	if src.Age != nil {
		m.Age = cloneInt(src.Age)
	}
	if src.Gender != nil {
		m.Gender = cloneStr(src.Gender)
	}
	if src.Location != nil {
		m.Location = cloneStr(src.Location)
	}
	m.IsActive = src.IsActive
	m.IsVerified = src.IsVerified
	if src.CreatedAt != nil {
		t := *src.CreatedAt
		m.CreatedAt = &t
	}
	return m
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
