package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Permission struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
}

type Role struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	IsSystem    bool      `json:"is_system" db:"is_system"`
	Permissions []string  `json:"permissions,omitempty" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Default role names seeded for every tenant.
const (
	RoleTenantAdmin = "TenantAdmin"
	RoleInspector   = "Inspector"
	RoleViewer      = "Viewer"
)

// Permission names.
const (
	PermTenantsRead         = "tenants:read"
	PermTenantsWrite        = "tenants:write"
	PermUsersRead           = "users:read"
	PermUsersWrite          = "users:write"
	PermRolesRead           = "roles:read"
	PermLocationsRead       = "locations:read"
	PermLocationsWrite      = "locations:write"
	PermTypesRead           = "extinguisher_types:read"
	PermTypesWrite          = "extinguisher_types:write"
	PermExtinguishersRead   = "extinguishers:read"
	PermExtinguishersWrite  = "extinguishers:write"
	PermTemplatesRead       = "checklist_templates:read"
	PermTemplatesWrite      = "checklist_templates:write"
	PermInspectionsRead     = "inspections:read"
	PermInspectionsWrite    = "inspections:write"
	PermInspectionsComplete = "inspections:complete"
	PermDeficienciesRead    = "deficiencies:read"
	PermDeficienciesWrite   = "deficiencies:write"
	PermPhotosWrite         = "photos:write"
	PermImportWrite         = "import:write"
	PermExportRead          = "export:read"
	PermAuditRead           = "audit:read"
	PermDashboardRead       = "dashboard:read"
)

// AllPermissions lists every permission with its description.
var AllPermissions = []Permission{
	{Name: PermTenantsRead, Description: "View tenant details"},
	{Name: PermTenantsWrite, Description: "Manage tenant settings"},
	{Name: PermUsersRead, Description: "View users"},
	{Name: PermUsersWrite, Description: "Manage users and role assignments"},
	{Name: PermRolesRead, Description: "View roles and permissions"},
	{Name: PermLocationsRead, Description: "View locations"},
	{Name: PermLocationsWrite, Description: "Manage locations"},
	{Name: PermTypesRead, Description: "View extinguisher types"},
	{Name: PermTypesWrite, Description: "Manage extinguisher types"},
	{Name: PermExtinguishersRead, Description: "View extinguishers"},
	{Name: PermExtinguishersWrite, Description: "Manage extinguishers"},
	{Name: PermTemplatesRead, Description: "View checklist templates"},
	{Name: PermTemplatesWrite, Description: "Manage checklist templates"},
	{Name: PermInspectionsRead, Description: "View inspections"},
	{Name: PermInspectionsWrite, Description: "Schedule and start inspections"},
	{Name: PermInspectionsComplete, Description: "Complete inspections"},
	{Name: PermDeficienciesRead, Description: "View deficiencies"},
	{Name: PermDeficienciesWrite, Description: "Create and update deficiencies"},
	{Name: PermPhotosWrite, Description: "Upload and delete inspection photos"},
	{Name: PermImportWrite, Description: "Import CSV files"},
	{Name: PermExportRead, Description: "Export CSV files"},
	{Name: PermAuditRead, Description: "View the audit log"},
	{Name: PermDashboardRead, Description: "View dashboard statistics"},
}

// DefaultRolePermissions maps the seeded roles to their permissions.
func DefaultRolePermissions() map[string][]string {
	all := make([]string, 0, len(AllPermissions))
	reads := []string{}
	for _, p := range AllPermissions {
		all = append(all, p.Name)
		if p.Name != PermTenantsRead && p.Name != PermAuditRead && strings.HasSuffix(p.Name, ":read") {
			reads = append(reads, p.Name)
		}
	}

	inspector := append([]string{}, reads...)
	inspector = append(inspector,
		PermInspectionsWrite,
		PermInspectionsComplete,
		PermDeficienciesWrite,
		PermPhotosWrite,
	)

	return map[string][]string{
		RoleTenantAdmin: all,
		RoleInspector:   inspector,
		RoleViewer:      reads,
	}
}
