package dto

import "github.com/bnema/dockmaster/internal/domain"

// Registry is the body of POST /registry.
type Registry struct {
	Name     string `json:"name" validate:"required"`
	URL      string `json:"url" validate:"required"`
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ToDomain converts the request body to a credential.
func (r Registry) ToDomain() domain.RegistryCredential {
	return domain.RegistryCredential{Name: r.Name, URL: r.URL, Login: r.Login, Password: r.Password}
}

// RegistryOut is a credential without its password.
type RegistryOut struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Login string `json:"login"`
}

// FromRegistryPublic converts a public credential.
func FromRegistryPublic(c domain.RegistryCredentialPublic) RegistryOut {
	return RegistryOut{Name: c.Name, URL: c.URL, Login: c.Login}
}

// FromRegistryPublicList converts a list of public credentials.
func FromRegistryPublicList(list []domain.RegistryCredentialPublic) []RegistryOut {
	out := make([]RegistryOut, 0, len(list))
	for _, c := range list {
		out = append(out, FromRegistryPublic(c))
	}
	return out
}
