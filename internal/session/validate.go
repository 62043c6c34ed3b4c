package session

import (
	"fmt"
	"regexp"
)

var idRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// ValidateName checks that name conforms to session naming rules. A session
// runs as the user with the same id.
func ValidateName(name string) error {
	return validateID("session name", name)
}

// ValidateUserID checks a peer id given on the command line.
func ValidateUserID(id string) error {
	return validateID("user id", id)
}

func validateID(what, s string) error {
	if !idRegexp.MatchString(s) {
		return fmt.Errorf("invalid %s %q: must match %s", what, s, idRegexp)
	}
	return nil
}
