package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"
)

// CRM permissions by module.
const (
	PermClientView = "crm.client.view"
	PermClientEdit = "crm.client.edit"

	PermPipelineView = "crm.pipeline.view"
	PermPipelineEdit = "crm.pipeline.edit"

	PermCatalogView = "crm.catalog.view"
	PermCatalogEdit = "crm.catalog.edit"

	PermQuoteView       = "crm.quote.view"
	PermQuoteCreate     = "crm.quote.create"
	PermQuoteEdit       = "crm.quote.edit"
	PermQuoteTransition = "crm.quote.transition"

	PermInvoiceView = "crm.invoice.view"

	PermReportView   = "crm.report.view"
	PermReportExport = "crm.report.export"

	PermAgentView = "crm.agent.view"
	PermAgentEdit = "crm.agent.edit"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
	}
}

// CRMScopes lists all CRM module permissions.
func CRMScopes() []string {
	return []string{
		PermClientView,
		PermClientEdit,
		PermPipelineView,
		PermPipelineEdit,
		PermCatalogView,
		PermCatalogEdit,
		PermQuoteView,
		PermQuoteCreate,
		PermQuoteEdit,
		PermQuoteTransition,
		PermInvoiceView,
		PermReportView,
		PermReportExport,
		PermAgentView,
		PermAgentEdit,
	}
}
