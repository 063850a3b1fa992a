// Package sanitizer normalizes untrusted input before validation and storage.
//
// Emails are lowercased and cleaned of stray dots so a user always maps to
// the same account document; filenames are stripped of path components to
// block traversal through uploaded names.
package sanitizer
