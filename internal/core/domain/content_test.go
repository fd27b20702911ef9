package domain_test

import (
	"testing"

	"github.com/antistereov/singularity-core/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestAccessPermissionsPut(t *testing.T) {
	t.Parallel()

	t.Run("subject holds exactly one role", func(t *testing.T) {
		p := domain.AccessPermissions{}
		p = p.Put("u1", domain.RoleViewer)
		p = p.Put("u1", domain.RoleEditor)
		p = p.Put("u1", domain.RoleMaintainer)

		require.Equal(t, []string{"u1"}, p.Maintainers)
		require.Empty(t, p.Editors)
		require.Empty(t, p.Viewers)
	})

	t.Run("downgrade moves between sets", func(t *testing.T) {
		p := domain.AccessPermissions{}
		p = p.Put("u1", domain.RoleMaintainer)
		p = p.Put("u1", domain.RoleViewer)

		role, ok := p.RoleOf("u1")
		require.True(t, ok)
		require.Equal(t, domain.RoleViewer, role)
		require.Empty(t, p.Maintainers)
	})

	t.Run("put does not mutate the receiver", func(t *testing.T) {
		orig := domain.AccessPermissions{}.Put("u1", domain.RoleViewer)
		_ = orig.Put("u2", domain.RoleEditor)
		require.Empty(t, orig.Editors)
	})
}

func TestRoleContainment(t *testing.T) {
	t.Parallel()

	p := domain.AccessPermissions{}.
		Put("maintainer", domain.RoleMaintainer).
		Put("editor", domain.RoleEditor).
		Put("viewer", domain.RoleViewer)

	cases := []struct {
		subject  string
		required domain.ContentRole
		want     bool
	}{
		{"maintainer", domain.RoleMaintainer, true},
		{"maintainer", domain.RoleEditor, true},
		{"maintainer", domain.RoleViewer, true},
		{"editor", domain.RoleMaintainer, false},
		{"editor", domain.RoleEditor, true},
		{"editor", domain.RoleViewer, true},
		{"viewer", domain.RoleMaintainer, false},
		{"viewer", domain.RoleEditor, false},
		{"viewer", domain.RoleViewer, true},
		{"stranger", domain.RoleViewer, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, p.Grants(tc.subject, tc.required),
			"%s checked for %s", tc.subject, tc.required)
	}
}

func TestShare(t *testing.T) {
	t.Parallel()

	t.Run("sharing private content promotes to shared", func(t *testing.T) {
		a := domain.NewAccessDetails("owner")
		require.Equal(t, domain.VisibilityPrivate, a.Visibility)

		a = a.Share(domain.SubjectUser, "u2", domain.RoleViewer)

		require.Equal(t, domain.VisibilityShared, a.Visibility)
		require.True(t, a.HasAccess(domain.Principal{UserID: "u2"}, domain.RoleViewer))
		require.False(t, a.HasAccess(domain.Principal{UserID: "u2"}, domain.RoleEditor))
	})

	t.Run("sharing public content keeps it public", func(t *testing.T) {
		a := domain.NewAccessDetails("owner")
		a.Visibility = domain.VisibilityPublic
		a = a.Share(domain.SubjectGroup, "g1", domain.RoleEditor)
		require.Equal(t, domain.VisibilityPublic, a.Visibility)
	})
}

func TestHasAccess(t *testing.T) {
	t.Parallel()

	a := domain.NewAccessDetails("owner")
	a = a.Share(domain.SubjectUser, "editor-user", domain.RoleEditor)
	a = a.Share(domain.SubjectGroup, "viewer-group", domain.RoleViewer)

	t.Run("owner satisfies any role", func(t *testing.T) {
		require.True(t, a.HasAccess(domain.Principal{UserID: "owner"}, domain.RoleMaintainer))
	})

	t.Run("admin satisfies any role", func(t *testing.T) {
		require.True(t, a.HasAccess(domain.Principal{UserID: "x", Admin: true}, domain.RoleMaintainer))
	})

	t.Run("group grant applies to members", func(t *testing.T) {
		member := domain.Principal{UserID: "m", GroupIDs: []string{"other", "viewer-group"}}
		require.True(t, a.HasAccess(member, domain.RoleViewer))
		require.False(t, a.HasAccess(member, domain.RoleEditor))
	})

	t.Run("public grants viewer only", func(t *testing.T) {
		pub := a
		pub.Visibility = domain.VisibilityPublic
		stranger := domain.Principal{UserID: "nobody"}
		require.True(t, pub.HasAccess(stranger, domain.RoleViewer))
		require.False(t, pub.HasAccess(stranger, domain.RoleEditor))
	})
}

func TestApplyUpdate(t *testing.T) {
	t.Parallel()

	t.Run("shared with empty sets collapses to private", func(t *testing.T) {
		a := domain.NewAccessDetails("owner").Share(domain.SubjectUser, "u2", domain.RoleViewer)

		a = a.ApplyUpdate(domain.AccessUpdate{Visibility: domain.VisibilityShared})

		require.Equal(t, domain.VisibilityPrivate, a.Visibility)
		require.True(t, a.Users.IsEmpty())
	})

	t.Run("replaces grant sets in bulk", func(t *testing.T) {
		a := domain.NewAccessDetails("owner").Share(domain.SubjectUser, "old", domain.RoleEditor)

		a = a.ApplyUpdate(domain.AccessUpdate{
			Visibility: domain.VisibilityShared,
			UserRoles:  map[string]domain.ContentRole{"new": domain.RoleMaintainer},
			GroupRoles: map[string]domain.ContentRole{"g1": domain.RoleViewer},
		})

		_, ok := a.Users.RoleOf("old")
		require.False(t, ok)
		require.True(t, a.Users.Grants("new", domain.RoleMaintainer))
		require.True(t, a.Groups.Grants("g1", domain.RoleViewer))
		require.Equal(t, domain.VisibilityShared, a.Visibility)
	})
}

func TestMakePrivate(t *testing.T) {
	t.Parallel()

	a := domain.NewAccessDetails("owner").
		Share(domain.SubjectUser, "u2", domain.RoleViewer).
		AddInvitation("inv-1")

	a = a.MakePrivate()

	require.Equal(t, domain.VisibilityPrivate, a.Visibility)
	require.True(t, a.Users.IsEmpty())
	require.Equal(t, []string{"inv-1"}, a.InvitationIDs, "pending invitations survive a downgrade")
}

func TestUnshareCollapse(t *testing.T) {
	t.Parallel()

	a := domain.NewAccessDetails("owner").Share(domain.SubjectUser, "u2", domain.RoleViewer)
	a = a.Unshare(domain.SubjectUser, "u2")

	require.Equal(t, domain.VisibilityPrivate, a.Visibility)
}

func TestInvitationIDs(t *testing.T) {
	t.Parallel()

	a := domain.NewAccessDetails("owner").AddInvitation("a").AddInvitation("b").AddInvitation("a")
	require.Equal(t, []string{"a", "b"}, a.InvitationIDs)

	a = a.RemoveInvitation("a")
	require.Equal(t, []string{"b"}, a.InvitationIDs)
}

func TestTransferOwnership(t *testing.T) {
	t.Parallel()

	a := domain.NewAccessDetails("owner").Share(domain.SubjectUser, "u2", domain.RoleViewer)
	a = a.TransferOwnership("u2")

	require.Equal(t, "u2", a.OwnerID)
	_, ok := a.Users.RoleOf("u2")
	require.False(t, ok, "new owner needs no explicit grant")
	require.True(t, a.HasAccess(domain.Principal{UserID: "u2"}, domain.RoleMaintainer))
}

func TestParseContentRole(t *testing.T) {
	t.Parallel()

	role, err := domain.ParseContentRole("EDITOR")
	require.NoError(t, err)
	require.Equal(t, domain.RoleEditor, role)

	_, err = domain.ParseContentRole("SUPERUSER")
	require.ErrorIs(t, err, domain.ErrUnknownRole)
}
