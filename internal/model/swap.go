package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusAccepted  SwapStatus = "accepted"
	SwapStatusRejected  SwapStatus = "rejected"
	SwapStatusCancelled SwapStatus = "cancelled"
	SwapStatusCompleted SwapStatus = "completed"
)

// ParseSwapStatus reports whether s names one of the five swap statuses.
func ParseSwapStatus(s string) (SwapStatus, bool) {
	switch st := SwapStatus(s); st {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusRejected, SwapStatusCancelled, SwapStatusCompleted:
		return st, true
	}
	return "", false
}

// Terminal statuses accept no further transition.
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusRejected || s == SwapStatusCancelled || s == SwapStatusCompleted
}

// SwapRole is the part a user plays in a swap.
type SwapRole int

const (
	RoleNone SwapRole = iota
	RoleRequester
	RoleRequested
)

func (r SwapRole) String() string {
	switch r {
	case RoleRequester:
		return "requester"
	case RoleRequested:
		return "requested"
	}
	return "none"
}

type transitionRule struct {
	from  SwapStatus
	to    SwapStatus
	roles []SwapRole
}

var transitionRules = []transitionRule{
	{from: SwapStatusPending, to: SwapStatusAccepted, roles: []SwapRole{RoleRequested}},
	{from: SwapStatusPending, to: SwapStatusRejected, roles: []SwapRole{RoleRequested}},
	{from: SwapStatusPending, to: SwapStatusCancelled, roles: []SwapRole{RoleRequester}},
	{from: SwapStatusAccepted, to: SwapStatusCompleted, roles: []SwapRole{RoleRequester, RoleRequested}},
}

// TransitionAllowed looks up the edge from -> to. edge is false when no such edge
// exists; allowed reports whether role may take it.
func TransitionAllowed(from, to SwapStatus, role SwapRole) (edge bool, allowed bool) {
	for _, r := range transitionRules {
		if r.from != from || r.to != to {
			continue
		}
		for _, rr := range r.roles {
			if rr == role {
				return true, true
			}
		}
		return true, false
	}
	return false, false
}

// Swap is a proposed exchange of skills between two users.
//
// RequesterRating/RequesterFeedback hold what the requester said about the
// requested user; RequestedRating/RequestedFeedback the reverse. Each pair is
// written at most once.
type Swap struct {
	ID                string     `gorm:"primaryKey;size:36"`
	RequesterID       string     `gorm:"column:requester_id;size:128;index;not null"`
	RequestedID       string     `gorm:"column:requested_id;size:128;index;not null"`
	SkillOffered      string     `gorm:"column:skill_offered;size:100;not null"`
	SkillWanted       string     `gorm:"column:skill_wanted;size:100;not null"`
	Message           string     `gorm:"column:message;size:500"`
	Status            SwapStatus `gorm:"column:status;size:16;index;not null"`
	RequesterRating   *int       `gorm:"column:requester_rating"`
	RequesterFeedback *string    `gorm:"column:requester_feedback;type:text"`
	RequestedRating   *int       `gorm:"column:requested_rating"`
	RequestedFeedback *string    `gorm:"column:requested_feedback;type:text"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime"`
}

func (Swap) TableName() string {
	return "swaps"
}

func (s *Swap) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// RoleOf returns the role uid plays in the swap, RoleNone for outsiders.
func (s *Swap) RoleOf(uid string) SwapRole {
	switch uid {
	case "":
		return RoleNone
	case s.RequesterID:
		return RoleRequester
	case s.RequestedID:
		return RoleRequested
	}
	return RoleNone
}

// Counterpart returns the other participant's id.
func (s *Swap) Counterpart(uid string) string {
	if uid == s.RequesterID {
		return s.RequestedID
	}
	return s.RequesterID
}

// HasRated reports whether the participant in role already left feedback.
func (s *Swap) HasRated(role SwapRole) bool {
	switch role {
	case RoleRequester:
		return s.RequesterRating != nil
	case RoleRequested:
		return s.RequestedRating != nil
	}
	return false
}
