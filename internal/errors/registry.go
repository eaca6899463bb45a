package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
	DocURL     string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// State Errors (T001-T009)
	// ============================================

	"T001": {
		Category:   CategoryState,
		Message:    "State is read-only",
		Suggestion: "Mutate state inside an action; subscribable state only records reads",
		DocURL:     "https://trackstore.dev/docs/errors/T001",
	},
	"T002": {
		Category:   CategoryState,
		Message:    "Invalid state shape",
		Suggestion: "Create the container from a map with string keys",
		DocURL:     "https://trackstore.dev/docs/errors/T002",
	},
	"T003": {
		Category:   CategoryState,
		Message:    "Unsupported state value",
		Suggestion: "Store maps, slices, strings, numbers, booleans, *big.Int, symbols or nil",
		DocURL:     "https://trackstore.dev/docs/errors/T003",
	},
	"T004": {
		Category: CategoryState,
		Message:  "List index out of range",
		DocURL:   "https://trackstore.dev/docs/errors/T004",
	},
	"T005": {
		Category:   CategoryState,
		Message:    "Write after action returned",
		Suggestion: "Do not keep changable state beyond the action that received it",
		DocURL:     "https://trackstore.dev/docs/errors/T005",
	},
	"T006": {
		Category: CategoryState,
		Message:  "Cyclic state",
		DocURL:   "https://trackstore.dev/docs/errors/T006",
	},

	// ============================================
	// Action Errors (T010-T019)
	// ============================================

	"T010": {
		Category:   CategoryAction,
		Message:    "Unknown action",
		Suggestion: "Register the action in the Actions map passed to the store",
		DocURL:     "https://trackstore.dev/docs/errors/T010",
	},

	// ============================================
	// Config Errors (T100-T119)
	// ============================================

	"T100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		DocURL:   "https://trackstore.dev/docs/errors/T100",
	},
	"T101": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create trackstore.json, trackstore.yaml or trackstore.toml",
		DocURL:     "https://trackstore.dev/docs/errors/T101",
	},
	"T102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		DocURL:   "https://trackstore.dev/docs/errors/T102",
	},
	"T103": {
		Category:   CategoryConfig,
		Message:    "Unsupported configuration format",
		Suggestion: "Use a .json, .yaml, .yml or .toml file",
		DocURL:     "https://trackstore.dev/docs/errors/T103",
	},

	// ============================================
	// CLI Errors (T200-T219)
	// ============================================

	"T200": {
		Category: CategoryCLI,
		Message:  "Invalid command",
		DocURL:   "https://trackstore.dev/docs/errors/T200",
	},
	"T201": {
		Category: CategoryCLI,
		Message:  "Invalid path",
		DocURL:   "https://trackstore.dev/docs/errors/T201",
	},
	"T202": {
		Category:   CategoryCLI,
		Message:    "Cannot read state file",
		Suggestion: "Pass a .json or .yaml file whose top level is an object",
		DocURL:     "https://trackstore.dev/docs/errors/T202",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
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

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
