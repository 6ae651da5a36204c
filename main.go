// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/myhttpd/myhttpd/cmd/myhttpd"

func main() {
	cmd.Execute()
}
