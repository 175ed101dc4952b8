package security

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// GitHub user and organization names: alphanumerics and single hyphens,
	// no leading or trailing hyphen, at most 39 characters.
	ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9]|-[a-zA-Z0-9])*$`)
	// Repository names: alphanumerics, '.', '_' and '-'.
	repoPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateOwner checks that owner is a well-formed GitHub account name.
func ValidateOwner(owner string) error {
	if len(owner) > 39 || !ownerPattern.MatchString(owner) {
		return fmt.Errorf("invalid repository owner: %q", owner)
	}
	return nil
}

// ValidateRepoName checks that name is a well-formed repository name. The
// names "." and ".." are reserved.
func ValidateRepoName(name string) error {
	if !repoPattern.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid repository name: %q", name)
	}
	return nil
}

// ValidateRepository checks both halves of owner/name.
func ValidateRepository(owner, name string) error {
	if err := ValidateOwner(owner); err != nil {
		return err
	}
	return ValidateRepoName(name)
}

// ValidateLabelName rejects label names GitHub would refuse: empty, longer
// than 50 characters, or containing control characters.
func ValidateLabelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("label name is empty")
	}
	if len([]rune(name)) > 50 {
		return fmt.Errorf("label name too long: %q", name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("label name contains control character: %q", name)
		}
	}
	return nil
}
