package auth

import (
	"context"
	"errors"
	"testing"
)

func TestTokenProvider_TenantFromRequest(t *testing.T) {
	provider := NewTokenProvider(map[string]string{
		"token-alpha": "tenant-a",
		"token-beta":  "tenant-b",
	})

	tests := []struct {
		name          string
		authorization string
		wantTenant    string
		wantErr       bool
	}{
		{name: "valid token", authorization: "Bearer token-alpha", wantTenant: "tenant-a"},
		{name: "second tenant", authorization: "Bearer token-beta", wantTenant: "tenant-b"},
		{name: "unknown token", authorization: "Bearer nope", wantErr: true},
		{name: "missing scheme", authorization: "token-alpha", wantErr: true},
		{name: "empty header", authorization: "", wantErr: true},
		{name: "bare scheme", authorization: "Bearer ", wantErr: true},
		{name: "wrong scheme", authorization: "Basic dXNlcjpwYXNz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant, err := provider.TenantFromRequest(context.Background(), tt.authorization)
			if tt.wantErr {
				if !errors.Is(err, ErrUnauthenticated) {
					t.Fatalf("err = %v, want ErrUnauthenticated", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tenant != tt.wantTenant {
				t.Errorf("tenant = %q, want %q", tenant, tt.wantTenant)
			}
		})
	}
}

func TestTenantContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := TenantFromContext(ctx); ok {
		t.Error("empty context should carry no tenant")
	}

	ctx = WithTenant(ctx, "tenant-a")
	tenant, ok := TenantFromContext(ctx)
	if !ok || tenant != "tenant-a" {
		t.Errorf("got (%q, %v), want (tenant-a, true)", tenant, ok)
	}

	if _, ok := TenantFromContext(WithTenant(context.Background(), "")); ok {
		t.Error("empty tenant id should read as unauthenticated")
	}
}
