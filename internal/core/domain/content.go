package domain

import (
	"errors"
	"slices"
	"time"
)

// ContentRole orders granted capability: MAINTAINER ⊇ EDITOR ⊇ VIEWER.
type ContentRole string

const (
	RoleMaintainer ContentRole = "MAINTAINER"
	RoleEditor     ContentRole = "EDITOR"
	RoleViewer     ContentRole = "VIEWER"
)

var roleRank = map[ContentRole]int{
	RoleViewer:     1,
	RoleEditor:     2,
	RoleMaintainer: 3,
}

// ErrUnknownRole reports a role string outside the fixed set.
var ErrUnknownRole = errors.New("domain: unknown content role")

// ParseContentRole validates a role carried in claims or requests.
func ParseContentRole(s string) (ContentRole, error) {
	r := ContentRole(s)
	if _, ok := roleRank[r]; !ok {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Satisfies reports whether holding r grants the capability of required.
func (r ContentRole) Satisfies(required ContentRole) bool {
	return roleRank[r] >= roleRank[required]
}

// Visibility is the content-level exposure state.
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityShared  Visibility = "SHARED"
	VisibilityPublic  Visibility = "PUBLIC"
)

// SubjectType distinguishes user grants from group grants.
type SubjectType string

const (
	SubjectUser  SubjectType = "USER"
	SubjectGroup SubjectType = "GROUP"
)

// AccessPermissions holds per-subject role grants as three disjoint sets.
// A subject id appears in at most one set: Put moves, never duplicates.
// All mutators are value-semantics, returning an updated copy so callers
// save explicitly (no hidden aliasing).
type AccessPermissions struct {
	Maintainers []string `json:"maintainers,omitempty"`
	Editors     []string `json:"editors,omitempty"`
	Viewers     []string `json:"viewers,omitempty"`
}

func (p AccessPermissions) clone() AccessPermissions {
	return AccessPermissions{
		Maintainers: slices.Clone(p.Maintainers),
		Editors:     slices.Clone(p.Editors),
		Viewers:     slices.Clone(p.Viewers),
	}
}

// Put assigns role to subjectID, removing any prior role first.
func (p AccessPermissions) Put(subjectID string, role ContentRole) AccessPermissions {
	out := p.Remove(subjectID)
	switch role {
	case RoleMaintainer:
		out.Maintainers = append(out.Maintainers, subjectID)
	case RoleEditor:
		out.Editors = append(out.Editors, subjectID)
	case RoleViewer:
		out.Viewers = append(out.Viewers, subjectID)
	}
	return out
}

// Remove drops subjectID from every role set.
func (p AccessPermissions) Remove(subjectID string) AccessPermissions {
	out := p.clone()
	del := func(s []string) []string {
		return slices.DeleteFunc(s, func(id string) bool { return id == subjectID })
	}
	out.Maintainers = del(out.Maintainers)
	out.Editors = del(out.Editors)
	out.Viewers = del(out.Viewers)
	return out
}

// RoleOf returns the role held by subjectID, if any.
func (p AccessPermissions) RoleOf(subjectID string) (ContentRole, bool) {
	switch {
	case slices.Contains(p.Maintainers, subjectID):
		return RoleMaintainer, true
	case slices.Contains(p.Editors, subjectID):
		return RoleEditor, true
	case slices.Contains(p.Viewers, subjectID):
		return RoleViewer, true
	}
	return "", false
}

// Grants reports whether subjectID holds required or a higher role.
func (p AccessPermissions) Grants(subjectID string, required ContentRole) bool {
	role, ok := p.RoleOf(subjectID)
	return ok && role.Satisfies(required)
}

// IsEmpty reports whether no subject holds any role.
func (p AccessPermissions) IsEmpty() bool {
	return len(p.Maintainers) == 0 && len(p.Editors) == 0 && len(p.Viewers) == 0
}

// AccessDetails is the per-content authorization document.
type AccessDetails struct {
	OwnerID       string            `json:"owner_id"`
	Visibility    Visibility        `json:"visibility"`
	Users         AccessPermissions `json:"users"`
	Groups        AccessPermissions `json:"groups"`
	InvitationIDs []string          `json:"invitation_ids,omitempty"`
}

// NewAccessDetails is the state given to freshly created content.
func NewAccessDetails(ownerID string) AccessDetails {
	return AccessDetails{OwnerID: ownerID, Visibility: VisibilityPrivate}
}

// HasSubjectAccess evaluates a single subject against the grant sets.
// The owner satisfies any check on their own content.
func (a AccessDetails) HasSubjectAccess(subjectType SubjectType, subjectID string, required ContentRole) bool {
	if subjectType == SubjectUser && subjectID == a.OwnerID {
		return true
	}
	switch subjectType {
	case SubjectUser:
		return a.Users.Grants(subjectID, required)
	case SubjectGroup:
		return a.Groups.Grants(subjectID, required)
	}
	return false
}

// HasAccess is the authorization predicate for an authenticated principal:
// admin, owner, direct user grant, any group grant, or public visibility
// for viewer checks.
func (a AccessDetails) HasAccess(p Principal, required ContentRole) bool {
	if p.Admin {
		return true
	}
	if a.HasSubjectAccess(SubjectUser, p.UserID, required) {
		return true
	}
	for _, g := range p.GroupIDs {
		if a.Groups.Grants(g, required) {
			return true
		}
	}
	return required == RoleViewer && a.Visibility == VisibilityPublic
}

// Share assigns role to a subject. Sharing private content promotes its
// visibility to SHARED.
func (a AccessDetails) Share(subjectType SubjectType, subjectID string, role ContentRole) AccessDetails {
	out := a
	if out.Visibility == VisibilityPrivate {
		out.Visibility = VisibilityShared
	}
	switch subjectType {
	case SubjectUser:
		out.Users = out.Users.Put(subjectID, role)
	case SubjectGroup:
		out.Groups = out.Groups.Put(subjectID, role)
	}
	return out
}

// Unshare removes a subject's grant. An emptied SHARED document collapses
// back to PRIVATE.
func (a AccessDetails) Unshare(subjectType SubjectType, subjectID string) AccessDetails {
	out := a
	switch subjectType {
	case SubjectUser:
		out.Users = out.Users.Remove(subjectID)
	case SubjectGroup:
		out.Groups = out.Groups.Remove(subjectID)
	}
	return out.normalized()
}

// AccessUpdate is a visibility-change request: target visibility plus a
// full replacement of the shared user and group role assignments.
type AccessUpdate struct {
	Visibility Visibility
	UserRoles  map[string]ContentRole
	GroupRoles map[string]ContentRole
}

// ApplyUpdate replaces the grant sets and visibility in bulk. A SHARED
// target with no grants is not a stable representation and collapses to
// PRIVATE. Pending invitations are untouched.
func (a AccessDetails) ApplyUpdate(req AccessUpdate) AccessDetails {
	out := a
	out.Visibility = req.Visibility
	out.Users = AccessPermissions{}
	out.Groups = AccessPermissions{}
	for id, role := range req.UserRoles {
		out.Users = out.Users.Put(id, role)
	}
	for id, role := range req.GroupRoles {
		out.Groups = out.Groups.Put(id, role)
	}
	return out.normalized()
}

// MakePrivate clears all grants and sets visibility PRIVATE. Pending
// invitations survive and may still be accepted, re-sharing the content.
func (a AccessDetails) MakePrivate() AccessDetails {
	out := a
	out.Visibility = VisibilityPrivate
	out.Users = AccessPermissions{}
	out.Groups = AccessPermissions{}
	return out
}

// TransferOwnership changes the owner. The previous owner keeps nothing
// implicit; grant them a role explicitly if needed.
func (a AccessDetails) TransferOwnership(newOwnerID string) AccessDetails {
	out := a
	out.OwnerID = newOwnerID
	out.Users = out.Users.Remove(newOwnerID)
	return out
}

// AddInvitation registers a pending invitation id.
func (a AccessDetails) AddInvitation(invitationID string) AccessDetails {
	out := a
	if !slices.Contains(out.InvitationIDs, invitationID) {
		out.InvitationIDs = append(slices.Clone(out.InvitationIDs), invitationID)
	}
	return out
}

// RemoveInvitation drops a consumed or revoked invitation id.
func (a AccessDetails) RemoveInvitation(invitationID string) AccessDetails {
	out := a
	out.InvitationIDs = slices.DeleteFunc(slices.Clone(out.InvitationIDs), func(id string) bool {
		return id == invitationID
	})
	return out
}

func (a AccessDetails) normalized() AccessDetails {
	if a.Visibility == VisibilityShared && a.Users.IsEmpty() && a.Groups.IsEmpty() {
		a.Visibility = VisibilityPrivate
	}
	return a
}

// Content is an authorized entity (article, file, ...). Version backs the
// optimistic concurrency control on access mutations.
type Content struct {
	ID        string // ULID
	Key       string // stable external key, unique
	Name      string
	Access    AccessDetails
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
