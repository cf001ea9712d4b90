package domain

import "strings"

// RegistryCredential holds the login material for a private image registry.
// It is read-only during container operations.
type RegistryCredential struct {
	Name     string
	URL      string
	Login    string
	Password string
}

// RegistryCredentialPublic is a RegistryCredential without its password.
type RegistryCredentialPublic struct {
	Name  string
	URL   string
	Login string
}

// Public strips the password.
func (c RegistryCredential) Public() RegistryCredentialPublic {
	return RegistryCredentialPublic{Name: c.Name, URL: c.URL, Login: c.Login}
}

// Validate checks that every field is set.
func (c RegistryCredential) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return NewError(KindInvalid, "", "registry name is required", nil)
	case strings.TrimSpace(c.URL) == "":
		return NewError(KindInvalid, "", "registry url is required", nil)
	case strings.TrimSpace(c.Login) == "":
		return NewError(KindInvalid, "", "registry login is required", nil)
	case c.Password == "":
		return NewError(KindInvalid, "", "registry password is required", nil)
	}
	return nil
}

// MatchesHost reports whether the credential's URL designates host.
// Scheme, trailing slashes and case are ignored.
func (c RegistryCredential) MatchesHost(host string) bool {
	return NormalizeRegistryURL(c.URL) == NormalizeRegistryURL(host)
}

// NormalizeRegistryURL reduces a registry URL to its host[:port][/path] form.
func NormalizeRegistryURL(raw string) string {
	u := strings.TrimSpace(strings.ToLower(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	return strings.TrimRight(u, "/")
}
