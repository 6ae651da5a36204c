// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	InvalidConfigId Id = iota + 1
	ListenFailedId
	UnknownUserId
	UnknownGroupId
	PrivilegeDropFailedId
	DaemonizeFailedId
	SyslogUnavailableId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // manual pages for the failing call
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue Markdown through glamour with the given style
// ("dark", "light", "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	invalidConfigIssue = &Issue{
		id: InvalidConfigId,
		mdMsg: `
# Invalid configuration!

The command line did not describe a configuration the server can run with.

## Things you can try:
- Pass exactly one document root:
~~~
$ myhttpd --port=8080 /srv/www
~~~

- Keep the port between 0 and 65535
- When using ` + "`--chroot`" + `, also pass ` + "`--user`" + ` and ` + "`--group`" + `:
~~~
$ sudo myhttpd --chroot --user=www-data --group=www-data /srv/www
~~~

- Print the effective configuration without starting:
~~~
$ myhttpd config --port=8080 /srv/www
~~~`,
	}

	listenFailedIssue = &Issue{
		id: ListenFailedId,
		mdMsg: `
# Could not listen on the requested address!

None of the addresses resolved for the listener could be bound.

## Common causes:
- Another process already uses the port
- Ports below 1024 need root or CAP_NET_BIND_SERVICE
- With ` + "`--chroot`" + ` the socket is bound after switching to ` + "`--user`" + `, so a low port fails there too
- The --host value does not belong to this machine

## Things you can try:
- Find the process holding the port:
~~~
$ ss -ltnp 'sport = :80'
~~~

- Use an unprivileged port such as ` + "`--port=8080`" + `
- Leave ` + "`--host`" + ` empty to bind every IPv4 interface`,
		docLinks: []HttpLink{"https://man7.org/linux/man-pages/man2/bind.2.html"},
	}

	unknownUserIssue = &Issue{
		id: UnknownUserId,
		mdMsg: `
# Unknown user!

The user given with ` + "`--user`" + ` does not exist, so privileges cannot be dropped.
Nothing was bound and the filesystem view was not changed.

## Things you can try:
- Check the account exists:
~~~
$ getent passwd www-data
~~~

- Create a dedicated account for the server:
~~~
$ sudo useradd --system --no-create-home --shell /usr/sbin/nologin www-data
~~~`,
		docLinks: []HttpLink{"https://man7.org/linux/man-pages/man3/getpwnam.3.html"},
	}

	unknownGroupIssue = &Issue{
		id: UnknownGroupId,
		mdMsg: `
# Unknown group!

The group given with ` + "`--group`" + ` does not exist, so privileges cannot be dropped.
Nothing was bound and the filesystem view was not changed.

## Things you can try:
- Check the group exists:
~~~
$ getent group www-data
~~~

- Create it:
~~~
$ sudo groupadd --system www-data
~~~`,
		docLinks: []HttpLink{"https://man7.org/linux/man-pages/man3/getgrnam.3.html"},
	}

	privilegeDropFailedIssue = &Issue{
		id: PrivilegeDropFailedId,
		mdMsg: `
# Failed to drop privileges!

The identity change or chroot was refused by the kernel.
The server stops here rather than serve with partial privileges.

## Common causes:
- The server was not started as root
- The document root does not exist or is not a directory
- A security module (SELinux, AppArmor, seccomp) forbids chroot

## Things you can try:
- Start the server with sudo when using ` + "`--chroot`" + `
- Run without ` + "`--chroot`" + ` as an unprivileged user on a high port`,
		docLinks: []HttpLink{
			"https://man7.org/linux/man-pages/man2/chroot.2.html",
			"https://man7.org/linux/man-pages/man2/setuid.2.html",
		},
	}

	daemonizeFailedIssue = &Issue{
		id: DaemonizeFailedId,
		mdMsg: `
# Failed to detach from the terminal!

The server could not start its background process.

## Things you can try:
- Run in the foreground to see the failure directly:
~~~
$ myhttpd --debug --port=8080 /srv/www
~~~

- Check that the executable is still readable at its original path`,
		docLinks: []HttpLink{"https://man7.org/linux/man-pages/man2/setsid.2.html"},
	}

	syslogUnavailableIssue = &Issue{
		id: SyslogUnavailableId,
		mdMsg: `
# System logger unavailable!

A detached server logs through syslog, but no system logger accepted the connection.

## Things you can try:
- Make sure a syslog daemon or journald is running
- Run with ` + "`--debug`" + ` to log to the terminal instead`,
		docLinks: []HttpLink{"https://man7.org/linux/man-pages/man3/syslog.3.html"},
	}

	issues = map[Id]*Issue{
		invalidConfigIssue.Id():       invalidConfigIssue,
		listenFailedIssue.Id():        listenFailedIssue,
		unknownUserIssue.Id():         unknownUserIssue,
		unknownGroupIssue.Id():        unknownGroupIssue,
		privilegeDropFailedIssue.Id(): privilegeDropFailedIssue,
		daemonizeFailedIssue.Id():     daemonizeFailedIssue,
		syslogUnavailableIssue.Id():   syslogUnavailableIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id - b.id) })
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
