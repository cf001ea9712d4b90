// Package imageref classifies and validates container image references.
package imageref

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// RegistryHost returns the text before the first "/" of an image reference,
// or "" when the reference has no path separator (e.g. "app:latest").
func RegistryHost(imageRef string) string {
	host, _, found := strings.Cut(imageRef, "/")
	if !found {
		return ""
	}
	return host
}

// IsPrivateRegistry reports whether imageRef targets a private registry:
// its first path component must contain a domain separator (".") or a port
// separator (":"). Bare names and "user/app" namespaces are public.
//
//	myregistry.example.com:5000/app:latest -> true
//	registry.local/app                    -> true
//	app:latest                            -> false
//	user/app                              -> false
func IsPrivateRegistry(imageRef string) bool {
	host := RegistryHost(imageRef)
	return host != "" && strings.ContainsAny(host, ".:")
}

// PrivateRegistryHost returns the registry host of imageRef and whether it is
// private.
func PrivateRegistryHost(imageRef string) (string, bool) {
	if !IsPrivateRegistry(imageRef) {
		return "", false
	}
	return RegistryHost(imageRef), true
}

// Validate checks that imageRef is a well-formed image reference. A first
// path component that is not a registry host by IsPrivateRegistry is part of
// the repository name and must be lowercase, even though the reference
// grammar would accept it as a host.
func Validate(imageRef string) error {
	if strings.TrimSpace(imageRef) == "" {
		return fmt.Errorf("image reference is empty")
	}
	if host := RegistryHost(imageRef); host != "" && !IsPrivateRegistry(imageRef) && host != strings.ToLower(host) {
		return fmt.Errorf("invalid image reference %q: repository name must be lowercase", imageRef)
	}
	if _, err := reference.ParseNormalizedNamed(imageRef); err != nil {
		return fmt.Errorf("invalid image reference %q: %w", imageRef, err)
	}
	return nil
}
