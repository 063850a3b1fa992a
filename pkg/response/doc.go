// Package response defines the JSON envelope and HTTP error mapping shared by
// all handlers.
//
// Domain errors are translated at the router layer into HTTPError values;
// validation failures carry per-field details. Authorization failures on file
// operations are rendered identically to not-found so responses never reveal
// whether a file exists for someone else.
package response
