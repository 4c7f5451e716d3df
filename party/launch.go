package party

import (
	"strings"

	"github.com/compartya/compartya/types/msgparty"
)

// Launch URIs, as an OS URI handler passes them on.
var launchPrefixes = []string{
	"compartya://open:",
	`compartya::\open:`,
	"compartya::%5Copen:",
}

// ParseLaunchOrder turns a launch URI into the order to join the server it names.
func ParseLaunchOrder(uri string) (msgparty.Order, bool) {
	for _, prefix := range launchPrefixes {
		id, ok := strings.CutPrefix(uri, prefix)
		if !ok {
			continue
		}

		id = strings.TrimSuffix(id, "/")
		if id == "" {
			return msgparty.Order{}, false
		}

		return msgparty.NewJoinServer(id, ""), true
	}

	return msgparty.Order{}, false
}

// FindLaunchOrder returns the order of the first launch URI among args.
func FindLaunchOrder(args []string) (msgparty.Order, bool) {
	for _, arg := range args {
		if o, ok := ParseLaunchOrder(arg); ok {
			return o, true
		}
	}

	return msgparty.Order{}, false
}
