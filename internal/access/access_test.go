package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsFor(t *testing.T) {
	tests := []struct {
		name        string
		accountType string
		want        AccountLimits
	}{
		{
			name:        "free",
			accountType: AccountFree,
			want:        AccountLimits{SearchLimit: 10, ExportLimit: 0},
		},
		{
			name:        "basic",
			accountType: AccountBasic,
			want:        AccountLimits{SearchLimit: 100, ExportLimit: 10, CanExportData: true, CanSaveSearches: true, MaxSavedSearches: 5},
		},
		{
			name:        "premium",
			accountType: AccountPremium,
			want:        AccountLimits{SearchLimit: 500, ExportLimit: 50, CanExportData: true, CanSaveSearches: true, MaxSavedSearches: 20},
		},
		{
			name:        "enterprise unlimited",
			accountType: AccountEnterprise,
			want:        AccountLimits{SearchLimit: -1, ExportLimit: -1, CanExportData: true, CanSaveSearches: true, MaxSavedSearches: -1},
		},
		{
			name:        "неизвестный тариф сводится к Free",
			accountType: "Gold",
			want:        AccountLimits{SearchLimit: 10, ExportLimit: 0},
		},
		{
			name:        "пустой тариф сводится к Free",
			accountType: "",
			want:        AccountLimits{SearchLimit: 10, ExportLimit: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LimitsFor(tt.accountType))
		})
	}
}

func TestPermissionsFor(t *testing.T) {
	all := Permissions{
		ManageUsers: true, ManageAdmins: true, ManageSantiere: true, DeleteSantiere: true,
		ManagePayments: true, ViewReports: true, ExportData: true, ManageSettings: true, ViewLogs: true,
	}

	tests := []struct {
		name      string
		adminType string
		want      Permissions
	}{
		{name: "super admin", adminType: AdminSuper, want: all},
		{
			name:      "admin",
			adminType: AdminRegular,
			want: Permissions{
				ManageUsers: true, ManageSantiere: true, DeleteSantiere: true,
				ManagePayments: true, ViewReports: true, ExportData: true, ViewLogs: true,
			},
		},
		{name: "moderator", adminType: AdminModerator, want: Permissions{ManageSantiere: true, ViewReports: true, ExportData: true}},
		{name: "support", adminType: AdminSupport, want: Permissions{}},
		{name: "empty", adminType: "", want: Permissions{}},
		{name: "unknown", adminType: "Root", want: Permissions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PermissionsFor(tt.adminType))
		})
	}
}

func TestTablesAreNotMutable(t *testing.T) {
	l := LimitsFor(AccountBasic)
	l.SearchLimit = 1
	assert.Equal(t, 100, LimitsFor(AccountBasic).SearchLimit)

	types := AccountTypes()
	types[0] = "changed"
	assert.Equal(t, AccountFree, AccountTypes()[0])
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(AdminSupport))
	assert.False(t, IsAdmin(""))
	assert.True(t, IsKnownAdminType(""))
	assert.False(t, IsKnownAdminType("Root"))
	assert.True(t, IsKnownAccountType(AccountPremium))
	assert.False(t, IsKnownAccountType("Gold"))
}
