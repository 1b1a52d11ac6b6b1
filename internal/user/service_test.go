// Inventra | 2026
// service_test.go

package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/inventra/auth-service/internal/core"
)

// =============================================================================
// Mock Repository
// =============================================================================

type mockRepository struct {
	createFunc           func(ctx context.Context, user *User) error
	getByIDFunc          func(ctx context.Context, id string) (*User, error)
	getByEmailFunc       func(ctx context.Context, email string) (*User, error)
	getByResetDigestFunc func(ctx context.Context, digest string) (*User, error)
	updateFunc           func(ctx context.Context, user *User) error
	updateRoleFunc       func(ctx context.Context, id, role string) error
	updateStatusFunc     func(ctx context.Context, id string, active bool) error
	updatePasswordFunc   func(ctx context.Context, id, passwordHash string) error
	consumeResetFunc     func(ctx context.Context, id, passwordHash string) error
	setInSessionFunc     func(ctx context.Context, id string, inSession bool) error
	setResetGrantFunc    func(ctx context.Context, id, digest string, expiresAt time.Time) error
	clearResetGrantFunc  func(ctx context.Context, id string) error
	softDeleteFunc       func(ctx context.Context, id string) error
	listFunc             func(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

func (m *mockRepository) Create(ctx context.Context, user *User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) GetByResetDigest(ctx context.Context, digest string) (*User, error) {
	if m.getByResetDigestFunc != nil {
		return m.getByResetDigestFunc(ctx, digest)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) Update(ctx context.Context, user *User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) UpdateRole(ctx context.Context, id, role string) error {
	if m.updateRoleFunc != nil {
		return m.updateRoleFunc(ctx, id, role)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id string, active bool) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, active)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.updatePasswordFunc != nil {
		return m.updatePasswordFunc(ctx, id, passwordHash)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) ConsumeResetGrant(ctx context.Context, id, passwordHash string) error {
	if m.consumeResetFunc != nil {
		return m.consumeResetFunc(ctx, id, passwordHash)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SetInSession(ctx context.Context, id string, inSession bool) error {
	if m.setInSessionFunc != nil {
		return m.setInSessionFunc(ctx, id, inSession)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SetResetGrant(ctx context.Context, id, digest string, expiresAt time.Time) error {
	if m.setResetGrantFunc != nil {
		return m.setResetGrantFunc(ctx, id, digest, expiresAt)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) ClearResetGrant(ctx context.Context, id string) error {
	if m.clearResetGrantFunc != nil {
		return m.clearResetGrantFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) SoftDelete(ctx context.Context, id string) error {
	if m.softDeleteFunc != nil {
		return m.softDeleteFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, params)
	}
	return nil, 0, errors.New("not implemented")
}

// =============================================================================
// Tests
// =============================================================================

func TestCreateDefaults(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)

	var created *User
	repo.createFunc = func(ctx context.Context, user *User) error {
		created = user
		return nil
	}

	info, err := svc.Create(
		context.Background(),
		"Alice@Example.COM",
		"hashed-password",
		"Alice",
		"",
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", created.Email)
	}
	if created.Role != RoleSeller {
		t.Errorf("role = %q, new accounts must default to seller", created.Role)
	}
	if !created.Active {
		t.Error("new accounts must start active")
	}
	if created.ID == "" {
		t.Error("no id assigned")
	}
	if info.Role != RoleSeller {
		t.Errorf("returned role = %q, want seller", info.Role)
	}
}

func TestGetByEmailLowercases(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)

	var lookedUp string
	repo.getByEmailFunc = func(ctx context.Context, email string) (*User, error) {
		lookedUp = email
		return &User{ID: "user-1", Email: email, Role: RoleSeller, Active: true}, nil
	}

	if _, err := svc.GetByEmail(context.Background(), "MixedCase@Example.com"); err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if lookedUp != "mixedcase@example.com" {
		t.Errorf("lookup used %q, want lowercased email", lookedUp)
	}
}

func TestUpdateUserRole(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		wantErr error
	}{
		{"promote to admin", RoleAdmin, nil},
		{"demote to seller", RoleSeller, nil},
		{"unknown role", "superuser", core.ErrInvalidInput},
		{"empty role", "", core.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			svc := NewService(repo)

			repo.updateRoleFunc = func(ctx context.Context, id, role string) error {
				return nil
			}
			repo.getByIDFunc = func(ctx context.Context, id string) (*User, error) {
				return &User{ID: id, Role: tt.role}, nil
			}

			_, err := svc.UpdateUserRole(context.Background(), "user-1", tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateUserRole error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanDeleteUser(t *testing.T) {
	admin := &User{ID: "admin-1", Role: RoleAdmin}
	otherAdmin := &User{ID: "admin-2", Role: RoleAdmin}
	seller := &User{ID: "seller-1", Role: RoleSeller}

	users := map[string]*User{
		admin.ID:      admin,
		otherAdmin.ID: otherAdmin,
		seller.ID:     seller,
	}

	tests := []struct {
		name        string
		requesterID string
		targetID    string
		wantErr     error
	}{
		{"self deletion", "seller-1", "seller-1", nil},
		{"admin deletes seller", "admin-1", "seller-1", nil},
		{"seller deletes other", "seller-1", "admin-1", core.ErrForbidden},
		{"admin deletes admin", "admin-1", "admin-2", core.ErrForbidden},
		{"unknown target", "admin-1", "ghost", core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			svc := NewService(repo)

			repo.getByIDFunc = func(ctx context.Context, id string) (*User, error) {
				if u, ok := users[id]; ok {
					return u, nil
				}
				return nil, core.ErrNotFound
			}

			err := svc.CanDeleteUser(context.Background(), tt.requesterID, tt.targetID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CanDeleteUser error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateUserPartialFields(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)

	existing := &User{
		ID:    "user-1",
		Name:  "Old Name",
		Phone: "111-222",
		Role:  RoleSeller,
	}

	repo.getByIDFunc = func(ctx context.Context, id string) (*User, error) {
		copied := *existing
		return &copied, nil
	}

	var updated *User
	repo.updateFunc = func(ctx context.Context, user *User) error {
		updated = user
		return nil
	}

	newName := "New Name"
	_, err := svc.UpdateUser(context.Background(), "user-1", UpdateUserRequest{
		Name: &newName,
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if updated.Name != "New Name" {
		t.Errorf("name = %q, want New Name", updated.Name)
	}
	if updated.Phone != "111-222" {
		t.Errorf("phone = %q, untouched fields must survive", updated.Phone)
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleAdmin) || !ValidRole(RoleSeller) {
		t.Error("known roles rejected")
	}
	if ValidRole("superuser") || ValidRole("") || ValidRole("Admin") {
		t.Error("unknown role accepted")
	}
}
