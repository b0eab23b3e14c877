package spl

import "fmt"

// Orchestration statements. These take lookup names already vetted by
// ValidateLookupName (backup names add only a numeric timestamp suffix),
// so plain interpolation is safe here.

// LookupExistsQuery lists the lookup table files on the search head and
// keeps only the entry matching name. Zero results means the lookup does
// not exist yet.
func LookupExistsQuery(name string) string {
	return fmt.Sprintf(`| rest /services/data/lookup-table-files splunk_server=local | search title="%s" | fields title`, name)
}

// BackupCopy copies the current content of name into backup. Splunk has
// no SPL-level rename, so the backup is a copy; the original is replaced
// by the first outputlookup of the publish phase.
func BackupCopy(name, backup string) string {
	return fmt.Sprintf(`| inputlookup "%s" | outputlookup "%s"`, name, backup)
}

// RowCountQuery counts the rows currently stored under name. Used after
// publish to verify the lookup holds what was sent.
func RowCountQuery(name string) string {
	return fmt.Sprintf(`| inputlookup "%s" | stats count`, name)
}
