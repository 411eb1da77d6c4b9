// ABOUTME: Diagnostic and Report types shared by built-in rules, external adapters, and report writers.
// ABOUTME: The JSON shape {"result":[{rule,ids,name,severity,message}]} is the engine's only output.
package lint

// Severity is the level of a diagnostic.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Diagnostic is one finding. Rule names the owning rule group ("core" for built-ins),
// Name the specific check, and IDs every implicated node or tab in a stable order.
type Diagnostic struct {
	Rule     string   `json:"rule"`
	IDs      []string `json:"ids"`
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report is the merged output of one run. Result is never nil so that it encodes as [].
type Report struct {
	Result []Diagnostic `json:"result"`
}

// Count returns the number of diagnostics with the given severity.
func (r *Report) Count(sev Severity) int {
	n := 0
	for _, d := range r.Result {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Report) HasErrors() bool {
	return r.Count(SeverityError) > 0
}
