// Package access содержит статические таблицы лимитов тарифов и прав администраторов.
//
// Таблицы неизменяемы: наружу отдаются только копии значений, ключом служит строковое
// название категории. Неизвестный тариф сводится к Free, неизвестный тип администратора
// к пустому набору прав.
package access

// Unlimited обозначает отсутствие ограничения в числовом поле лимита.
const Unlimited = -1

// Тарифы.
const (
	AccountFree       = "Free"
	AccountBasic      = "Basic"
	AccountPremium    = "Premium"
	AccountEnterprise = "Enterprise"
)

// Типы администраторов.
const (
	AdminSuper     = "SuperAdmin"
	AdminRegular   = "Admin"
	AdminModerator = "Moderator"
	AdminSupport   = "Support"

	// AdminNone значение фильтра для пользователей без прав администратора.
	AdminNone = "None"
)

// AccountLimits лимиты тарифа.
type AccountLimits struct {
	SearchLimit      int  `json:"search_limit"`
	ExportLimit      int  `json:"export_limit"`
	CanExportData    bool `json:"can_export_data"`
	CanSaveSearches  bool `json:"can_save_searches"`
	MaxSavedSearches int  `json:"max_saved_searches"`
}

// Permissions набор прав администратора.
type Permissions struct {
	ManageUsers    bool `json:"manage_users"`
	ManageAdmins   bool `json:"manage_admins"`
	ManageSantiere bool `json:"manage_santiere"`
	DeleteSantiere bool `json:"delete_santiere"`
	ManagePayments bool `json:"manage_payments"`
	ViewReports    bool `json:"view_reports"`
	ExportData     bool `json:"export_data"`
	ManageSettings bool `json:"manage_settings"`
	ViewLogs       bool `json:"view_logs"`
}

var accountOrder = []string{AccountFree, AccountBasic, AccountPremium, AccountEnterprise}

var accountLimits = map[string]AccountLimits{
	AccountFree:       {SearchLimit: 10, ExportLimit: 0},
	AccountBasic:      {SearchLimit: 100, ExportLimit: 10, CanExportData: true, CanSaveSearches: true, MaxSavedSearches: 5},
	AccountPremium:    {SearchLimit: 500, ExportLimit: 50, CanExportData: true, CanSaveSearches: true, MaxSavedSearches: 20},
	AccountEnterprise: {SearchLimit: Unlimited, ExportLimit: Unlimited, CanExportData: true, CanSaveSearches: true, MaxSavedSearches: Unlimited},
}

var adminOrder = []string{AdminSuper, AdminRegular, AdminModerator, AdminSupport}

var adminPermissions = map[string]Permissions{
	AdminSuper: {
		ManageUsers: true, ManageAdmins: true, ManageSantiere: true, DeleteSantiere: true,
		ManagePayments: true, ViewReports: true, ExportData: true, ManageSettings: true, ViewLogs: true,
	},
	AdminRegular: {
		ManageUsers: true, ManageSantiere: true, DeleteSantiere: true,
		ManagePayments: true, ViewReports: true, ExportData: true, ViewLogs: true,
	},
	AdminModerator: {ManageSantiere: true, ViewReports: true, ExportData: true},
	AdminSupport:   {},
}

// LimitsFor возвращает лимиты тарифа. Для неизвестного тарифа возвращаются лимиты Free.
func LimitsFor(accountType string) AccountLimits {
	if l, ok := accountLimits[accountType]; ok {
		return l
	}
	return accountLimits[AccountFree]
}

// PermissionsFor возвращает права администратора. Пустой или неизвестный тип даёт пустой набор прав.
func PermissionsFor(adminType string) Permissions {
	return adminPermissions[adminType]
}

// IsAdmin сообщает, назначен ли пользователю какой-либо тип администратора.
func IsAdmin(adminType string) bool {
	return adminType != ""
}

// IsKnownAccountType проверяет, что тариф присутствует в таблице.
func IsKnownAccountType(accountType string) bool {
	_, ok := accountLimits[accountType]
	return ok
}

// IsKnownAdminType проверяет тип администратора. Пустая строка допустима и означает обычного пользователя.
func IsKnownAdminType(adminType string) bool {
	if adminType == "" {
		return true
	}
	_, ok := adminPermissions[adminType]
	return ok
}

// AccountTypes возвращает тарифы в порядке возрастания привилегий.
func AccountTypes() []string {
	return append([]string(nil), accountOrder...)
}

// AdminTypes возвращает типы администраторов от старшего к младшему.
func AdminTypes() []string {
	return append([]string(nil), adminOrder...)
}
