package errors

import "sort"

// Registered error codes.
const (
	CodeConfigInvalid    = "SC001"
	CodeConfigValue      = "SC002"
	CodeConfigRead       = "SC003"
	CodeLeadInvalid      = "SC020"
	CodeOpportunityInput = "SC021"
	CodeBadRequest       = "SC022"
	CodeLeadNotFound     = "SC040"
	CodeUnknownColl      = "SC041"
	CodeNothingToRetry   = "SC060"
	CodeConfirmFailed    = "SC080"
	CodeServerFailed     = "SC100"
	CodeBadFlag          = "SC101"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (SC001-SC019)
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid sellerconsole.json",
		Detail:   "The configuration file is not valid JSON or has fields of the wrong type.",
	},
	CodeConfigValue: {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	CodeConfigRead: {
		Category: CategoryConfig,
		Message:  "Configuration file not readable",
	},

	// Validation (SC020-SC039)
	CodeLeadInvalid: {
		Category: CategoryValidation,
		Message:  "Lead failed validation",
	},
	CodeOpportunityInput: {
		Category: CategoryValidation,
		Message:  "Opportunity failed validation",
	},
	CodeBadRequest: {
		Category: CategoryValidation,
		Message:  "Malformed request",
	},

	// Not found (SC040-SC059)
	CodeLeadNotFound: {
		Category: CategoryNotFound,
		Message:  "Lead not found",
	},
	CodeUnknownColl: {
		Category: CategoryNotFound,
		Message:  "Unknown collection",
		Detail:   "Collections are \"leads\" and \"opportunities\".",
	},

	// Conflict (SC060-SC079)
	CodeNothingToRetry: {
		Category: CategoryConflict,
		Message:  "Nothing to retry",
		Detail:   "The collection has no failed mutation.",
	},

	// Confirmation (SC080-SC099)
	CodeConfirmFailed: {
		Category: CategoryConfirm,
		Message:  "Backend confirmation failed",
	},

	// CLI (SC100-SC119)
	CodeServerFailed: {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
	CodeBadFlag: {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry. It must be called
// during initialization.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
