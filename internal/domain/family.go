package domain

import (
	"slices"
	"time"
)

type Family struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MemberIDs  []string  `json:"member_ids"`
	RequestIDs []string  `json:"request_ids"` // outstanding money requests
	CreatedAt  time.Time `json:"created_at"`
}

func (f *Family) HasMember(memberID string) bool {
	return slices.Contains(f.MemberIDs, memberID)
}

func (f *Family) Clone() *Family {
	c := *f
	c.MemberIDs = slices.Clone(f.MemberIDs)
	c.RequestIDs = slices.Clone(f.RequestIDs)
	return &c
}
