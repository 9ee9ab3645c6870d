package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Analysis Tools
	EntryAnalyzeFileDescription = `Find every fillable entry space in a contract PDF and write its manifest.

**When to use:** A new or edited contract document needs a fresh map of where parties sign, initial, date and fill in blanks.

**Why it's useful:** Combines native form widgets with detected underlines and labels, so even flat scanned-then-typed forms get a usable field map with page coordinates.

**Examples:**
• New package: "Analyze Buyer Package/Purchase Agreement.pdf so I know where the buyers sign"
• Re-check after edits: "Re-run analysis on Listing/Exclusive Right to Sell.pdf after the broker replaced page 3"
• Quality gate: "Analyze Seller Package/Counterproposal.pdf and tell me if any test data is left"

**Common workflows:**
1. Intake: entry_analyze_file → entry_signature_locations → send for signing
2. Cleanup: entry_analyze_file → review issues (test_data, incomplete_fields) → fix source → entry_update
3. Date review: entry_analyze_file → entry_date_locations → confirm every day-count deadline

**Best practices:** The path must be inside the configured source directory. The folder defaults to the PDF's parent directory name, which is also the package name used by the other tools.`

	EntryCheckChangesDescription = `Compare the source directory with the last recorded content hashes.

**When to use:** Before re-analyzing, to see which contract documents were added, changed or removed since the last run.

**Why it's useful:** Hashing is cheap compared with analysis, so this tells you whether an update is needed without touching any manifest.

**Examples:**
• Morning check: "Did anyone change a document in the contract packages overnight?"
• Before sending: "Confirm nothing in Seller Package changed since it was last analyzed"

**Common workflows:**
1. Incremental refresh: entry_check_changes → entry_update if anything is new or changed
2. Audit: entry_check_changes → report removed documents to the transaction coordinator

**Best practices:** This tool is read-only. It never updates the stored hashes; only entry_update records a new history entry.`

	EntryUpdateDescription = `Re-analyze only new and changed documents and record the run in the version history.

**When to use:** After documents were added or edited in the source directory and their manifests need to catch up.

**Why it's useful:** Skips unchanged documents, bumps the manifest version of changed ones (3.0.0 → 3.0.1) and keeps an auditable history of every run.

**Examples:**
• After edits: "Update the manifests for everything that changed today"
• After adding a package: "A new Buyer Package folder was dropped in, bring the manifests up to date"

**Common workflows:**
1. Maintenance: entry_check_changes → entry_update → entry_field_locations on the reanalyzed files
2. Continuous: run the watch mode and use entry_update manually only when needed

**Best practices:** Failed documents are reported individually and do not stop the rest of the run.`

	// Query Tools
	EntryFieldLocationsDescription = `List the entry spaces recorded in a document's manifest, optionally filtered.

**When to use:** Need the coordinates of fields on a specific page or of a specific kind, for example to place text or stamps.

**Why it's useful:** Answers from the stored manifest without re-reading the PDF, so lookups are instant even for large packages.

**Examples:**
• All fields: "List every entry space in Buyer Package/Purchase Agreement.pdf"
• One page: "What fields are on page 4 of Listing/Exclusive Right to Sell.pdf?"
• By kind: "Show all address blanks in Seller Package/Disclosure.pdf"

**Common workflows:**
1. Form filling: entry_field_locations(category="entry_address") → place the property address at each bbox
2. Page review: entry_field_locations(page=N) → compare with the rendered page

**Best practices:** Categories match case-insensitively. Any signature alias (signature, signature_area, entry_signature) selects the whole signature set, initials included. Page 0 or an omitted page means every page. Coordinates are points from the top-left corner.`

	EntrySignatureLocationsDescription = `List where a document must be signed or initialed.

**When to use:** Preparing a document for signing and you need every signature and initial location.

**Why it's useful:** Collects native signature widgets together with detected signature and initial lines in one list.

**Examples:**
• Signing prep: "Where do the buyers sign in Buyer Package/Purchase Agreement.pdf?"
• Completeness check: "Count the initial boxes in Seller Package/Counterproposal.pdf"

**Common workflows:**
1. E-signature setup: entry_signature_locations → create signing tabs at each bbox
2. Review: entry_signature_locations → verify each party has a place to sign

**Best practices:** Run entry_analyze_file or entry_update first if the document changed since its manifest was written.`

	EntryDateLocationsDescription = `List the date fields of a document together with its day-count deadlines.

**When to use:** Reviewing deadlines, or preparing to fill in dates next to signatures.

**Why it's useful:** Returns both the date blanks and every "N days" review item, so nothing time-sensitive is missed.

**Examples:**
• Deadline review: "Which day-count deadlines are in Buyer Package/Purchase Agreement.pdf?"
• Dating: "Where do the dates go in Seller Package/Counterproposal.pdf?"

**Common workflows:**
1. Timeline: entry_date_locations → build the transaction calendar from the time-length options
2. Signing prep: entry_signature_locations + entry_date_locations → date each signature

**Best practices:** The time-length options are review items. Confirm each number of days with the parties before relying on it.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"entry_analyze_file":        EntryAnalyzeFileDescription,
	"entry_field_locations":     EntryFieldLocationsDescription,
	"entry_signature_locations": EntrySignatureLocationsDescription,
	"entry_date_locations":      EntryDateLocationsDescription,
	"entry_check_changes":       EntryCheckChangesDescription,
	"entry_update":              EntryUpdateDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all available tool names, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
