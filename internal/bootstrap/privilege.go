// SPDX-License-Identifier: MPL-2.0

package bootstrap

import (
	"errors"
	"fmt"
	"os/user"
	"slices"
	"strconv"

	"golang.org/x/sys/unix"
)

var (
	// ErrUnknownUser is wrapped when the --user account cannot be resolved.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnknownGroup is wrapped when the --group cannot be resolved.
	ErrUnknownGroup = errors.New("unknown group")
	// ErrPrivilegeDrop is wrapped when the kernel refuses an identity or root change.
	ErrPrivilegeDrop = errors.New("privilege change refused")
)

// Privilege-drop steps, reported in errors and recorded by test systems.
const (
	StepSetgid    = "setgid"
	StepSetgroups = "setgroups"
	StepChroot    = "chroot"
	StepChdir     = "chdir"
	StepSetuid    = "setuid"
)

type (
	// System is the slice of the operating system the privilege drop needs.
	System interface {
		LookupGroup(name string) (*user.Group, error)
		LookupUser(name string) (*user.User, error)
		// GroupIds lists the supplementary group ids of u.
		GroupIds(u *user.User) ([]string, error)
		Setgid(gid int) error
		Setgroups(gids []int) error
		Chroot(path string) error
		Chdir(path string) error
		Setuid(uid int) error
	}

	// Identity is a resolved target user and group.
	Identity struct {
		User  string
		Group string
		UID   int
		GID   int
		// Groups is the supplementary group list, GID included.
		Groups []int
	}

	unixSystem struct{}
)

// OS returns the System backed by the running kernel.
func OS() System { return unixSystem{} }

func (unixSystem) LookupGroup(name string) (*user.Group, error) { return user.LookupGroup(name) }
func (unixSystem) LookupUser(name string) (*user.User, error)   { return user.Lookup(name) }
func (unixSystem) GroupIds(u *user.User) ([]string, error)      { return u.GroupIds() }
func (unixSystem) Setgid(gid int) error                         { return unix.Setgid(gid) }
func (unixSystem) Setgroups(gids []int) error                   { return unix.Setgroups(gids) }
func (unixSystem) Chroot(path string) error                     { return unix.Chroot(path) }
func (unixSystem) Chdir(path string) error                      { return unix.Chdir(path) }
func (unixSystem) Setuid(uid int) error                         { return unix.Setuid(uid) }

// ResolveIdentity looks up the group, then the user, and computes the
// supplementary group list the way initgroups(3) would. Nothing is changed.
func ResolveIdentity(sys System, userName, groupName string) (*Identity, error) {
	g, err := sys.LookupGroup(groupName)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownGroup, groupName, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return nil, fmt.Errorf("%w %q: non-numeric gid %q", ErrUnknownGroup, groupName, g.Gid)
	}

	u, err := sys.LookupUser(userName)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownUser, userName, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, fmt.Errorf("%w %q: non-numeric uid %q", ErrUnknownUser, userName, u.Uid)
	}

	ids, err := sys.GroupIds(u)
	if err != nil {
		return nil, fmt.Errorf("%w %q: list groups: %w", ErrUnknownUser, userName, err)
	}
	groups := []int{gid}
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		if !slices.Contains(groups, n) {
			groups = append(groups, n)
		}
	}

	return &Identity{User: userName, Group: groupName, UID: uid, GID: gid, Groups: groups}, nil
}

// DropPrivileges switches to id and confines the process to root:
// setgid, setgroups, chroot, chdir("/"), setuid. The group identity is set
// while the process can still change it; setuid comes last. The first
// failure stops the sequence.
func DropPrivileges(sys System, id *Identity, root string) error {
	steps := []struct {
		name string
		run  func() error
	}{
		{StepSetgid, func() error { return sys.Setgid(id.GID) }},
		{StepSetgroups, func() error { return sys.Setgroups(id.Groups) }},
		{StepChroot, func() error { return sys.Chroot(root) }},
		{StepChdir, func() error { return sys.Chdir("/") }},
		{StepSetuid, func() error { return sys.Setuid(id.UID) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPrivilegeDrop, step.name, err)
		}
	}
	return nil
}
