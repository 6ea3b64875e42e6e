package tenant

import (
	"errors"
	"testing"
)

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateTenantInput
		wantErr error
	}{
		{
			name: "valid input",
			input: CreateTenantInput{
				Slug:         "acme",
				Name:         "Acme Corp",
				DirectoryURL: "https://directory.acme.example.com",
			},
			wantErr: nil,
		},
		{
			name: "empty slug",
			input: CreateTenantInput{
				Name:         "Acme Corp",
				DirectoryURL: "https://directory.acme.example.com",
			},
			wantErr: ErrSlugRequired,
		},
		{
			name: "whitespace slug",
			input: CreateTenantInput{
				Slug:         "   ",
				Name:         "Acme Corp",
				DirectoryURL: "https://directory.acme.example.com",
			},
			wantErr: ErrSlugRequired,
		},
		{
			name: "empty name",
			input: CreateTenantInput{
				Slug:         "acme",
				DirectoryURL: "https://directory.acme.example.com",
			},
			wantErr: ErrNameRequired,
		},
		{
			name: "directory url without scheme",
			input: CreateTenantInput{
				Slug:         "acme",
				Name:         "Acme Corp",
				DirectoryURL: "directory.acme.example.com",
			},
			wantErr: ErrDirectoryURLInvalid,
		},
		{
			name: "directory url without host",
			input: CreateTenantInput{
				Slug:         "acme",
				Name:         "Acme Corp",
				DirectoryURL: "https://",
			},
			wantErr: ErrDirectoryURLInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCreate(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateCreate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
